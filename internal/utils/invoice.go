package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/skip2/go-qrcode"

	"velours_back_end/internal/models"
)

// GenerateUPIQR génère un QR de paiement UPI en base64, prêt pour <img src="...">
func GenerateUPIQR(payeeVPA, payeeName, ref string, amount float64) (string, error) {
	params := url.Values{}
	params.Set("pa", payeeVPA)
	params.Set("pn", payeeName)
	params.Set("am", fmt.Sprintf("%.2f", amount))
	params.Set("cu", "INR")
	params.Set("tn", ref)

	png, err := qrcode.Encode("upi://pay?"+params.Encode(), qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GenerateInvoicePDF rend la facture HTML en PDF via Chrome headless
func GenerateInvoicePDF(order models.Order, userEmail string) ([]byte, error) {
	vpa := os.Getenv("STORE_UPI_VPA")
	if vpa == "" {
		vpa = "velours@upi"
	}
	storeName := os.Getenv("STORE_NAME")
	if storeName == "" {
		storeName = "Velours"
	}

	ref := fmt.Sprintf("FACT-%s", order.ID)
	qrBase64, err := GenerateUPIQR(vpa, storeName, ref, order.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("erreur génération QR: %v", err)
	}

	html := invoiceHTML(order, userEmail, ref, qrBase64)

	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var pdfBuf []byte
	err = chromedp.Run(ctx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return pdfBuf, nil
}

func invoiceHTML(order models.Order, userEmail, ref, qrBase64 string) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>₹%.2f</td>
				<td>₹%.2f</td>
			</tr>`, item.Name, item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>%s</title></head>
<body style="font-family: Arial, sans-serif; padding: 40px;">
	<h1>Facture %s</h1>
	<p>Commande %s — %s<br>Client : %s</p>
	<table style="width: 100%%; border-collapse: collapse;" border="1" cellpadding="8">
		<thead>
			<tr><th>Produit</th><th>Quantité</th><th>Prix unitaire</th><th>Total</th></tr>
		</thead>
		<tbody>%s</tbody>
		<tfoot>
			<tr><td colspan="3" style="text-align: right;"><strong>Total</strong></td><td><strong>₹%.2f</strong></td></tr>
		</tfoot>
	</table>
	<div style="margin-top: 40px;">
		<p>Payable par UPI :</p>
		<img src="%s" width="180" height="180" alt="QR UPI">
	</div>
</body>
</html>`, ref, ref, order.ID, order.CreatedAt.Format("02/01/2006"), userEmail, itemsHTML, order.TotalAmount, qrBase64)
}

package payement

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"velours_back_end/internal/catalog"
	"velours_back_end/internal/checkout"
	"velours_back_end/internal/models"
	"velours_back_end/internal/utils"
)

// StripeWebhook reçoit les événements signés du prestataire. C'est le seul
// chemin qui fait foi pour « paiement réussi » : le callback côté client
// n'est jamais accepté comme preuve de paiement.
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	var event stripe.Event

	if secret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET — mode test")
		if err := json.Unmarshal(payload, &event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON invalide"})
			return
		}
	} else {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			log.Println("❌ Signature Stripe invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
	}

	log.Printf("📥 Événement Stripe reçu : %s", event.Type)
	if err := handleStripeEvent(event); err != nil {
		// Non-2xx : Stripe relivrera l'événement, la clé d'idempotence
		// garantit qu'un rejeu ne produit pas de seconde commande
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Échec traitement événement"})
		return
	}

	c.Status(http.StatusOK)
}

func handleStripeEvent(event stripe.Event) error {
	if event.Type != "payment_intent.succeeded" {
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		return nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Println("❌ Erreur décodage PaymentIntent:", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := placeFromIntent(ctx, &pi); err != nil {
		log.Printf("❌ Placement commande depuis webhook %s: %v", pi.ID, err)
		// Échec définitif (panier invalide) : inutile de redemander l'événement
		if checkout.IsValidationError(err) {
			return nil
		}
		return err
	}
	return nil
}

// placeFromIntent place la commande associée à un payment intent confirmé.
// L'id de l'intent sert de clé d'idempotence : webhook rejoué ou client qui
// double-clique, même résultat : une seule commande, un seul décrément.
func placeFromIntent(ctx context.Context, pi *stripe.PaymentIntent) (*checkout.Result, error) {
	userID := pi.Metadata["user_id"]
	userEmail := pi.Metadata["email"]
	cartData := pi.Metadata["cart"]

	if userID == "" || cartData == "" {
		log.Println("⚠️ Métadonnées incomplètes sur", pi.ID)
		return nil, checkout.ErrEmptyCart
	}

	var cartItems []models.CartItem
	if err := json.Unmarshal([]byte(cartData), &cartItems); err != nil {
		return nil, err
	}

	lines := make([]checkout.Line, 0, len(cartItems))
	for _, item := range cartItems {
		lines = append(lines, checkout.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	result, err := engine.PlaceOrder(ctx, userID, pi.ID, lines)
	if err != nil {
		return nil, err
	}
	if result.Duplicate {
		log.Printf("🔁 Commande déjà enregistrée pour %s, on ignore.", pi.ID)
		return result, nil
	}

	// Paiement confirmé par le prestataire → la commande passe PAID
	if err := orderStore.UpdateStatus(ctx, result.OrderID, models.OrderStatusPaid); err != nil {
		log.Printf("⚠️ Passage PAID impossible pour %s: %v", result.OrderID, err)
	}

	recordSaleMovements(ctx, result.OrderID, userID, cartItems)
	clearCart(ctx, userID)

	if userEmail != "" {
		go sendConfirmation(result.OrderID, userEmail)
	}

	return result, nil
}

// recordSaleMovements trace un mouvement "sale" par ligne, best effort
func recordSaleMovements(ctx context.Context, orderID, userID string, items []models.CartItem) {
	store := catalog.NewStore()
	for _, item := range items {
		product, err := store.FindProduct(ctx, item.ProductID)
		if err != nil || !product.TracksStock() {
			continue
		}
		store.RecordMovement(ctx, models.StockMovement{
			ID:        gocql.TimeUUID(),
			ProductID: product.ID,
			Type:      "sale",
			Quantity:  item.Quantity,
			PrevStock: *product.Stock + item.Quantity,
			NewStock:  *product.Stock,
			Reason:    "commande " + orderID,
			OrderID:   orderID,
			UserID:    userID,
			CreatedAt: time.Now(),
		})
	}
}

func sendConfirmation(orderID, userEmail string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	order, err := orderStore.GetOrder(ctx, orderID)
	if err != nil {
		log.Println("❌ Commande introuvable pour confirmation:", err)
		return
	}

	html := utils.GenerateOrderConfirmationHTML(*order)

	pdf, err := utils.GenerateInvoicePDF(*order, userEmail)
	if err != nil {
		log.Println("❌ Erreur génération PDF :", err)
		pdf = nil
	}

	if err := utils.SendConfirmationEmail(userEmail, "Confirmation de votre commande Velours", html, pdf); err != nil {
		log.Println("❌ Erreur envoi e-mail confirmation :", err)
	} else {
		log.Println("📧 E-mail de confirmation envoyé à", userEmail)
	}
}

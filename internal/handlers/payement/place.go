package payement

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"

	"velours_back_end/internal/checkout"
)

// PlaceOrder est le point d'entrée client « paiement terminé ». Le client
// n'est pas cru sur parole : l'intent est relu chez le prestataire et la
// commande n'est placée que si le paiement y est réellement confirmé.
// Le webhook fait la même chose : le premier des deux gagne, l'autre
// retombe sur la commande existante via la clé d'idempotence.
func PlaceOrder(c *gin.Context) {
	var req struct {
		PaymentIntentID string `json:"payment_intent_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "payment_intent_id requis"})
		return
	}

	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Vous devez être connecté pour commander"})
		return
	}

	// Vérification serveur → prestataire : état réel du paiement
	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		log.Println("❌ Intent introuvable chez le prestataire:", err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Paiement introuvable"})
		return
	}

	if pi.Metadata["user_id"] != userID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Ce paiement ne vous appartient pas"})
		return
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Paiement non confirmé"})
		return
	}

	result, err := placeFromIntent(c.Request.Context(), pi)
	if err != nil {
		if errors.Is(err, checkout.ErrDuplicateRequest) {
			// Le webhook tient la clé et travaille encore : le client réessaie
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Commande en cours de traitement, réessayez dans un instant"})
			return
		}
		if checkout.IsValidationError(err) {
			// Erreur récupérable : message précis, panier laissé intact
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		log.Printf("❌ Échec placement commande pour %s: %v", req.PaymentIntentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Une erreur est survenue pendant le checkout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": result.OrderID})
}

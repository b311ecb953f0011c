package payement

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"velours_back_end/internal/catalog"
	"velours_back_end/internal/checkout"
	"velours_back_end/internal/database"
	"velours_back_end/internal/models"
	"velours_back_end/internal/payment"
)

// CreatePaymentIntent crée un payment intent pour un montant brut.
// Body: { amount } en roupies, réponse { orderId, amount (paise), currency, key }.
func CreatePaymentIntent(c *gin.Context) {
	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}

	intent, err := gateway.CreateIntent(c.Request.Context(), req.Amount, map[string]string{
		"user_id": c.GetString("user_id"),
		"email":   c.GetString("email"),
	})
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Un montant positif valide (en INR) est requis"})
			return
		}
		log.Println("❌ Erreur passerelle:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orderId":      intent.ID,
		"amount":       intent.Amount,
		"currency":     intent.Currency,
		"key":          intent.PublicKey,
		"clientSecret": intent.ClientSecret,
	})
}

// Checkout démarre le paiement d'un panier : relit le panier Redis, revalide
// chaque ligne contre le catalogue (disponibilité + prix courant ; les lignes
// périmées sont corrigées, pas silencieusement acceptées), calcule le total
// côté serveur et crée le payment intent avec le panier en métadonnées.
// Aucun stock n'est réservé ici : la commande est placée par le webhook,
// après confirmation du paiement par le prestataire.
func Checkout(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
		Address   string `json:"address" binding:"required"`
		City      string `json:"city" binding:"required"`
		ZipCode   string `json:"zip_code" binding:"required"`
		Country   string `json:"country" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	email := c.GetString("email")
	if userID == "" || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	// 1. Récupérer le panier depuis Redis
	ctx := c.Request.Context()
	cartData, err := database.Redis.Get(ctx, "cart:"+userID).Result()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide ou introuvable"})
		return
	}

	var cartItems []models.CartItem
	if err := json.Unmarshal([]byte(cartData), &cartItems); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}
	if len(cartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	// 2. Revalider chaque ligne : produit existant, stock suffisant,
	// prix remplacé par le prix catalogue courant
	store := catalog.NewStore()
	for i, item := range cartItems {
		if item.Quantity < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide pour " + item.ProductID})
			return
		}

		product, err := store.FindProduct(ctx, item.ProductID)
		if err != nil {
			var notFound *checkout.ProductNotFoundError
			if errors.As(err, &notFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable: " + item.ProductID})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
			return
		}

		if product.TracksStock() && *product.Stock < item.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Stock insuffisant",
				"product":   product.Name,
				"available": *product.Stock,
				"requested": item.Quantity,
			})
			return
		}

		cartItems[i].Name = product.Name
		cartItems[i].Price = product.Price
	}

	// 3. Total côté serveur, à partir des prix catalogue
	totalPrice := calcTotal(cartItems)

	// 4. Sérialiser le panier pour les métadonnées du payment intent :
	// le webhook placera la commande à partir de cette copie
	cartJSON, err := json.Marshal(cartItems)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sérialisation panier"})
		return
	}

	intent, err := gateway.CreateIntent(ctx, totalPrice, map[string]string{
		"user_id":  userID,
		"email":    email,
		"cart":     string(cartJSON),
		"shipping": req.FirstName + " " + req.LastName + ", " + req.Address + ", " + req.ZipCode + " " + req.City + ", " + req.Country,
	})
	if err != nil {
		log.Println("❌ Erreur passerelle:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement"})
		return
	}

	log.Printf("💳 Checkout créé: %s (₹%.2f) pour %s", intent.ID, totalPrice, email)

	c.JSON(http.StatusOK, gin.H{
		"client_secret": intent.ClientSecret,
		"payment_id":    intent.ID,
		"amount":        intent.Amount,
		"currency":      intent.Currency,
		"key":           intent.PublicKey,
		"items_count":   len(cartItems),
	})
}

// clearCart supprime le panier Redis d'un utilisateur après commande committée
func clearCart(ctx context.Context, userID string) {
	key := "cart:" + userID
	if err := database.Redis.Del(ctx, key).Err(); err == nil {
		database.Redis.Publish(ctx, "cart_events:"+userID, "cleared")
		log.Printf("🧹 Panier supprimé pour %s", userID)
	}
}

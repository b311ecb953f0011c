package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"velours_back_end/internal/catalog"
	"velours_back_end/internal/checkout"
	"velours_back_end/internal/database"
	"velours_back_end/internal/models"
)

// Le panier appartient au client : il vit dans Redis sous cart:<user_id>,
// survit aux rechargements de page, et n'est jamais une source de vérité
// pour les prix : ceux-ci sont revalidés au checkout.

func cartKey(userID string) string {
	return "cart:" + userID
}

func loadCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	data, err := database.Redis.Get(ctx, cartKey(userID)).Result()
	if err != nil || data == "" {
		return []models.CartItem{}, nil
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func saveCart(ctx context.Context, userID string, items []models.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := database.Redis.Set(ctx, cartKey(userID), data, 0).Err(); err != nil {
		return err
	}
	// Notifier les onglets/appareils abonnés à la synchro panier
	database.Redis.Publish(ctx, "cart_events:"+userID, "updated")
	return nil
}

func GetCart(c *gin.Context) {
	items, err := loadCart(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage panier"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// AddToCart ajoute une ligne (ou fusionne avec une ligne existante du même
// produit). Le prix capturé est le prix catalogue du moment, pour affichage.
func AddToCart(c *gin.Context) {
	userID := c.GetString("user_id")

	var input struct {
		ProductID string `json:"productId" binding:"required"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	ctx := c.Request.Context()
	product, err := catalog.NewStore().FindProduct(ctx, input.ProductID)
	if err != nil {
		var notFound *checkout.ProductNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	items, err := loadCart(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage panier"})
		return
	}

	merged := false
	for i := range items {
		if items[i].ProductID == input.ProductID {
			items[i].Quantity += input.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, models.CartItem{
			ProductID: input.ProductID,
			Name:      product.Name,
			Quantity:  input.Quantity,
			Price:     product.Price,
		})
	}

	if err := saveCart(ctx, userID, items); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// UpdateCartItem change la quantité d'une ligne (0 = suppression)
func UpdateCartItem(c *gin.Context) {
	userID := c.GetString("user_id")

	var input struct {
		ProductID string `json:"productId" binding:"required"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	ctx := c.Request.Context()
	items, err := loadCart(ctx, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage panier"})
		return
	}

	next := items[:0]
	for _, item := range items {
		if item.ProductID == input.ProductID {
			if input.Quantity == 0 {
				continue
			}
			item.Quantity = input.Quantity
		}
		next = append(next, item)
	}

	if err := saveCart(ctx, userID, next); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": next})
}

// ClearCart vide le panier
func ClearCart(c *gin.Context) {
	userID := c.GetString("user_id")
	ctx := c.Request.Context()

	database.Redis.Del(ctx, cartKey(userID))
	database.Redis.Publish(ctx, "cart_events:"+userID, "cleared")

	c.JSON(http.StatusOK, gin.H{"items": []models.CartItem{}})
}

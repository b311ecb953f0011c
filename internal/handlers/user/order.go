package user

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"velours_back_end/internal/checkout"
)

var orderStore = checkout.NewScyllaOrders()

// GetMyOrders retourne les commandes de l'utilisateur connecté, récentes d'abord
func GetMyOrders(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	orders, err := orderStore.ListOrdersByUser(c.Request.Context(), userID)
	if err != nil {
		log.Println("❌ Erreur récupération commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrderByID retourne une commande, uniquement si elle appartient à
// l'utilisateur connecté
func GetOrderByID(c *gin.Context) {
	userID := c.GetString("user_id")

	order, err := orderStore.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commande"})
		return
	}

	if order.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	c.JSON(http.StatusOK, order)
}

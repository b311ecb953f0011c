package payement

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"velours_back_end/internal/checkout"
	"velours_back_end/internal/models"
)

// UpdateOrderStatus fait avancer une commande dans son cycle de vie.
// Transitions autorisées : PENDING → PAID → FULFILLED, ou annulation/échec.
func UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	next := strings.ToUpper(req.Status)
	switch next {
	case models.OrderStatusPaid, models.OrderStatusFulfilled, models.OrderStatusFailed, models.OrderStatusCancelled:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut inconnu: " + req.Status})
		return
	}

	if err := orderStore.UpdateStatus(c.Request.Context(), orderID, next); err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		log.Printf("❌ Transition statut %s: %v", orderID, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log.Printf("✅ Commande %s → %s", orderID, next)
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "status": next})
}

// GetOrderAdmin retourne n'importe quelle commande (sans contrôle de propriétaire)
func GetOrderAdmin(c *gin.Context) {
	order, err := orderStore.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, checkout.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commande"})
		return
	}
	c.JSON(http.StatusOK, order)
}

package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin est le point de décision d'autorisation unique : toute route
// privilégiée (catalogue, commandes, réglages) passe par ce allow/deny.
func RequireAdmin(c *gin.Context) {
	role, exists := c.Get("role")
	if !exists || role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
		c.Abort()
		return
	}
	c.Next()
}

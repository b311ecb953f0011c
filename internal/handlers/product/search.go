package product

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"velours_back_end/internal/services"
)

// SearchProducts recherche dans l'index Elasticsearch (nom + description)
func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre 'q' requis"})
		return
	}

	results, err := services.SearchProducts(query)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"results": []interface{}{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

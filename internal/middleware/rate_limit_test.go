package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Un body sans email court-circuite le limiteur : le handler derrière doit
// quand même pouvoir relire le body en entier.
func TestLoginRateLimit_BodyIntactWithoutEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var bindErr error
	var got struct {
		Password string `json:"password"`
	}

	r := gin.New()
	r.POST("/login", LoginRateLimit(), func(c *gin.Context) {
		bindErr = c.ShouldBindJSON(&got)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password":"tres-secret"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, bindErr)
	assert.Equal(t, "tres-secret", got.Password)
}

// Même garantie pour un body qui n'est pas du JSON
func TestLoginRateLimit_BodyIntactWithMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.POST("/login", LoginRateLimit(), func(c *gin.Context) {
		raw, _ := c.GetRawData()
		seen = string(raw)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("pas du json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pas du json", seen)
}

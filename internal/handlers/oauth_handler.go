package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/markbates/goth/gothic"

	"velours_back_end/internal/database"
	"velours_back_end/internal/models"
	"velours_back_end/internal/utils"
)

type ctxKey string

const ProviderKey ctxKey = "provider"

// BeginAuth démarre le flux OAuth pour un provider (google, facebook)
func BeginAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), ProviderKey, provider),
	)

	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// CallbackAuth termine le flux OAuth : upsert de l'utilisateur puis émission
// du même JWT que l'auth locale : le reste du serveur ne voit qu'une identité
// authentifiée avec un rôle.
func CallbackAuth(c *gin.Context) {
	provider := c.Param("provider")
	if provider == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "aucun provider spécifié"})
		return
	}

	c.Request = c.Request.WithContext(
		context.WithValue(c.Request.Context(), ProviderKey, provider),
	)

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := upsertOAuthUser(c.Request.Context(), gothUser.Email, gothUser.Name, provider)
	if err != nil {
		log.Println("❌ Erreur upsert utilisateur OAuth:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création utilisateur"})
		return
	}

	token, err := utils.GenerateJWT(*user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"userId":   user.ID,
		"email":    user.Email,
		"name":     user.Name,
		"role":     user.Role,
		"provider": provider,
	})
}

func upsertOAuthUser(ctx context.Context, email, name, provider string) (*models.User, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	var userID string
	err = session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`, email).
		WithContext(ctx).Scan(&userID)
	if err == nil {
		user := models.User{ID: userID}
		err = session.Query(`SELECT email, password, name, role, provider FROM users WHERE user_id = ?`, userID).
			WithContext(ctx).Scan(&user.Email, &user.Password, &user.Name, &user.Role, &user.Provider)
		if err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gocql.ErrNotFound) {
		return nil, err
	}

	// Premier login via ce provider : création du compte
	user := models.User{
		ID:       uuid.NewString(),
		Name:     name,
		Email:    email,
		Role:     "customer",
		Provider: provider,
	}

	if err := session.Query(`INSERT INTO users_by_email (email, user_id) VALUES (?, ?)`,
		user.Email, user.ID).WithContext(ctx).Exec(); err != nil {
		return nil, err
	}
	if err := session.Query(`INSERT INTO users (user_id, email, password, name, role, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, "", user.Name, user.Role, user.Provider, time.Now()).
		WithContext(ctx).Exec(); err != nil {
		return nil, err
	}

	log.Printf("✅ Compte OAuth créé : %s via %s", user.Email, provider)
	return &user, nil
}

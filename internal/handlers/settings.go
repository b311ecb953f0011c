package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"velours_back_end/internal/database"
	"velours_back_end/internal/models"
	"velours_back_end/internal/services"
)

const (
	settingsCacheKey = "store_settings"
	settingsCacheTTL = 10 * time.Minute
	// Ligne unique : les réglages boutique sont un singleton
	settingsRowID = 1
)

// GetSettings retourne les réglages boutique (logo + bannières), cache Redis d'abord
func GetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	if data, err := database.Redis.Get(ctx, settingsCacheKey).Result(); err == nil {
		var settings models.StoreSettings
		if json.Unmarshal([]byte(data), &settings) == nil {
			c.JSON(http.StatusOK, settings)
			return
		}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var settings models.StoreSettings
	err = session.Query(`SELECT logo_url, banner_urls, updated_at FROM store_settings WHERE id = ?`, settingsRowID).
		WithContext(ctx).Scan(&settings.LogoURL, &settings.BannerURLs, &settings.UpdatedAt)
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération réglages"})
		return
	}
	if settings.BannerURLs == nil {
		settings.BannerURLs = []string{}
	}

	if data, err := json.Marshal(settings); err == nil {
		database.Redis.Set(ctx, settingsCacheKey, data, settingsCacheTTL)
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings met à jour le singleton de réglages (admin). Multipart :
// logo (fichier, optionnel), new_banners (fichiers), kept_banners (JSON des
// URLs de bannières conservées).
func UpdateSettings(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form-data invalide"})
		return
	}

	ctx := c.Request.Context()
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Réglages actuels (le logo est conservé si aucun nouveau n'est envoyé)
	var current models.StoreSettings
	err = session.Query(`SELECT logo_url, banner_urls, updated_at FROM store_settings WHERE id = ?`, settingsRowID).
		WithContext(ctx).Scan(&current.LogoURL, &current.BannerURLs, &current.UpdatedAt)
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération réglages"})
		return
	}

	logoURL := current.LogoURL
	if files := form.File["logo"]; len(files) > 0 {
		url, err := services.SaveFile(ctx, files[0], services.FolderLogos)
		if err != nil {
			log.Println("❌ Upload logo échoué:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload logo"})
			return
		}
		logoURL = url
	}

	// Bannières conservées par l'admin, puis les nouvelles
	banners := []string{}
	if kept := c.PostForm("kept_banners"); kept != "" {
		if err := json.Unmarshal([]byte(kept), &banners); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kept_banners invalide"})
			return
		}
	}
	for _, fileHeader := range form.File["new_banners"] {
		url, err := services.SaveFile(ctx, fileHeader, services.FolderBanners)
		if err != nil {
			log.Println("⚠️ Upload bannière échoué:", err)
			continue
		}
		banners = append(banners, url)
	}

	settings := models.StoreSettings{
		LogoURL:    logoURL,
		BannerURLs: banners,
		UpdatedAt:  time.Now(),
	}

	err = session.Query(`INSERT INTO store_settings (id, logo_url, banner_urls, updated_at) VALUES (?, ?, ?, ?)`,
		settingsRowID, settings.LogoURL, settings.BannerURLs, settings.UpdatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		log.Println("❌ Erreur sauvegarde réglages:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde réglages"})
		return
	}

	// Invalider le cache pour que la boutique voie les changements
	database.Redis.Del(ctx, settingsCacheKey)

	log.Println("✅ Réglages boutique mis à jour")
	c.JSON(http.StatusOK, settings)
}

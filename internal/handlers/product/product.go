package product

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"velours_back_end/internal/database"
	"velours_back_end/internal/models"
	"velours_back_end/internal/services"
)

// ListProducts retourne les produits actifs de la boutique
func ListProducts(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, price, stock, category_id, image_urls, is_active, created_at, updated_at
		FROM products`).WithContext(c.Request.Context()).Iter()

	products := []models.Product{}
	var p models.Product
	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.ImageURLs, &p.IsActive, &p.CreatedAt, &p.UpdatedAt) {
		if p.IsActive {
			products = append(products, p)
		}
		p = models.Product{}
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur listing produits:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// GetProduct retourne un produit par id
func GetProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	p := models.Product{ID: productID}
	err = session.Query(`SELECT name, description, price, stock, category_id, image_urls, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, productID).WithContext(c.Request.Context()).
		Scan(&p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.ImageURLs, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produit"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// CreateProduct crée un produit (admin). Multipart : champs + images.
// Un champ stock absent = stock non suivi (jamais vérifié au checkout).
func CreateProduct(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Form-data invalide"})
		return
	}

	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Champ 'name' manquant"})
		return
	}

	price, err := strconv.ParseFloat(c.PostForm("price"), 64)
	if err != nil || price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prix invalide"})
		return
	}

	var stock *int
	if s := c.PostForm("stock"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stock invalide"})
			return
		}
		stock = &v
	}

	var categoryID *gocql.UUID
	if cid := c.PostForm("category_id"); cid != "" {
		parsed, err := gocql.ParseUUID(cid)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID catégorie invalide"})
			return
		}
		categoryID = &parsed
	}

	ctx := c.Request.Context()

	// Upload des images vers MinIO, URLs stables en retour
	imageURLs := []string{}
	for _, fileHeader := range form.File["images"] {
		url, err := services.SaveFile(ctx, fileHeader, services.FolderProducts)
		if err != nil {
			log.Println("⚠️ Upload image échoué:", err)
			continue
		}
		imageURLs = append(imageURLs, url)
	}

	now := time.Now()
	p := models.Product{
		ID:          gocql.TimeUUID(),
		Name:        name,
		Description: c.PostForm("description"),
		Price:       price,
		Stock:       stock,
		CategoryID:  categoryID,
		ImageURLs:   imageURLs,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	err = session.Query(`INSERT INTO products (product_id, name, description, price, stock, category_id, image_urls, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CategoryID, p.ImageURLs, p.IsActive, p.CreatedAt, p.UpdatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		log.Println("❌ Erreur insertion produit:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création produit"})
		return
	}

	services.IndexProduct(p)

	log.Printf("✅ Produit créé : %s (%s)", p.Name, p.ID)
	c.JSON(http.StatusCreated, p)
}

// UpdateProduct met à jour un produit (admin). Les images envoyées remplacent
// les anciennes ; sans nouvelles images, les URLs existantes sont conservées.
func UpdateProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

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

	p := models.Product{ID: productID}
	err = session.Query(`SELECT name, description, price, stock, category_id, image_urls, is_active, created_at
		FROM products WHERE product_id = ?`, productID).WithContext(ctx).
		Scan(&p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.ImageURLs, &p.IsActive, &p.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produit"})
		return
	}

	if name := c.PostForm("name"); name != "" {
		p.Name = name
	}
	if desc := c.PostForm("description"); desc != "" {
		p.Description = desc
	}
	if priceStr := c.PostForm("price"); priceStr != "" {
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Prix invalide"})
			return
		}
		p.Price = price
	}
	if s := c.PostForm("stock"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stock invalide"})
			return
		}
		p.Stock = &v
	}
	if cid := c.PostForm("category_id"); cid != "" {
		parsed, err := gocql.ParseUUID(cid)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID catégorie invalide"})
			return
		}
		p.CategoryID = &parsed
	}
	if active := c.PostForm("is_active"); active != "" {
		p.IsActive = active == "true"
	}

	if files := form.File["images"]; len(files) > 0 {
		imageURLs := []string{}
		for _, fileHeader := range files {
			url, err := services.SaveFile(ctx, fileHeader, services.FolderProducts)
			if err != nil {
				log.Println("⚠️ Upload image échoué:", err)
				continue
			}
			imageURLs = append(imageURLs, url)
		}
		if len(imageURLs) > 0 {
			p.ImageURLs = imageURLs
		}
	}

	p.UpdatedAt = time.Now()

	err = session.Query(`UPDATE products SET name = ?, description = ?, price = ?, stock = ?, category_id = ?, image_urls = ?, is_active = ?, updated_at = ?
		WHERE product_id = ?`,
		p.Name, p.Description, p.Price, p.Stock, p.CategoryID, p.ImageURLs, p.IsActive, p.UpdatedAt, productID).
		WithContext(ctx).Exec()
	if err != nil {
		log.Println("❌ Erreur mise à jour produit:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	services.IndexProduct(p)

	c.JSON(http.StatusOK, p)
}

// DeleteProduct supprime un produit (admin) et le retire de l'index
func DeleteProduct(c *gin.Context) {
	productID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(`DELETE FROM products WHERE product_id = ?`, productID).
		WithContext(c.Request.Context()).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}

	services.RemoveProductFromIndex(productID.String())

	log.Printf("🗑️ Produit supprimé : %s", productID)
	c.JSON(http.StatusOK, gin.H{"deleted": productID.String()})
}

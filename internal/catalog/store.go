// Package catalog implémente le contrat catalogue du checkout sur ScyllaDB :
// lecture produit et décrément/incrément de stock protégés contre les lost
// updates par des écritures conditionnelles (LWT) sur la ligne produit.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gocql/gocql"

	"velours_back_end/internal/checkout"
	"velours_back_end/internal/database"
	"velours_back_end/internal/models"
)

// Nombre de tentatives CAS avant d'abandonner un ajustement de stock.
// Un échec CAS signifie qu'un checkout concurrent a modifié la ligne.
const maxCASRetries = 8

type Store struct{}

func NewStore() *Store {
	return &Store{}
}

// FindProduct lit un produit par id. Renvoie ProductNotFoundError si l'id
// ne résout pas (id mal formé inclus : un id non-UUID ne résoudra jamais).
func (s *Store) FindProduct(ctx context.Context, productID string) (*models.Product, error) {
	uid, err := gocql.ParseUUID(productID)
	if err != nil {
		return nil, &checkout.ProductNotFoundError{ProductID: productID}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	p := models.Product{ID: uid}
	err = session.Query(`SELECT name, description, price, stock, category_id, image_urls, is_active, created_at, updated_at
		FROM products WHERE product_id = ?`, uid).WithContext(ctx).
		Scan(&p.Name, &p.Description, &p.Price, &p.Stock, &p.CategoryID, &p.ImageURLs, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, &checkout.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DecrementStock retire qty du stock du produit via un CAS read-then-write :
// UPDATE ... IF stock = ? garantit qu'aucun décrément concurrent ne passe
// inaperçu. Stock non suivi (null) : aucun effet.
func (s *Store) DecrementStock(ctx context.Context, productID string, qty int) error {
	return s.adjustStock(ctx, productID, -qty)
}

// IncrementStock rend qty au stock (compensation d'une tentative échouée)
func (s *Store) IncrementStock(ctx context.Context, productID string, qty int) error {
	return s.adjustStock(ctx, productID, qty)
}

func (s *Store) adjustStock(ctx context.Context, productID string, delta int) error {
	uid, err := gocql.ParseUUID(productID)
	if err != nil {
		return &checkout.ProductNotFoundError{ProductID: productID}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		return err
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		var stock *int
		var name string
		err := session.Query(`SELECT stock, name FROM products WHERE product_id = ?`, uid).
			WithContext(ctx).Scan(&stock, &name)
		if errors.Is(err, gocql.ErrNotFound) {
			return &checkout.ProductNotFoundError{ProductID: productID}
		}
		if err != nil {
			return err
		}

		// Stock non suivi : on ne vérifie ni ne modifie rien
		if stock == nil {
			return nil
		}

		newStock := *stock + delta
		if newStock < 0 {
			return &checkout.InsufficientStockError{
				ProductID: productID,
				Name:      name,
				Available: *stock,
				Requested: -delta,
			}
		}

		var prev int
		applied, err := session.Query(`UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ? IF stock = ?`,
			newStock, time.Now(), uid, *stock).WithContext(ctx).ScanCAS(&prev)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
		// CAS perdu : un autre checkout est passé, on relit et on réessaie
		log.Printf("🔄 CAS stock perdu pour %s (tentative %d)", productID, attempt+1)
	}

	return fmt.Errorf("ajustement stock %s: trop de conflits concurrents", productID)
}

// RecordMovement trace un mouvement de stock (vente, restock, ajustement).
// L'échec de la trace ne fait jamais échouer l'opération appelante.
func (s *Store) RecordMovement(ctx context.Context, m models.StockMovement) {
	session, err := database.GetProductsSession()
	if err != nil {
		log.Printf("⚠️ Mouvement de stock non tracé: %v", err)
		return
	}

	err = session.Query(`INSERT INTO stock_movements (id, product_id, type, quantity, prev_stock, new_stock, reason, order_id, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProductID, m.Type, m.Quantity, m.PrevStock, m.NewStock, m.Reason, m.OrderID, m.UserID, m.CreatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		log.Printf("⚠️ Erreur enregistrement mouvement stock: %v", err)
	}
}

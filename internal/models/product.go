package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Product struct {
	ID          gocql.UUID `json:"id" db:"product_id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Price       float64    `json:"price" db:"price"`
	// Stock nil = stock non suivi : jamais vérifié ni décrémenté au checkout
	Stock      *int        `json:"stock" db:"stock"`
	CategoryID *gocql.UUID `json:"category_id,omitempty" db:"category_id"`
	ImageURLs  []string    `json:"image_urls" db:"image_urls"`
	IsActive   bool        `json:"is_active" db:"is_active"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// TracksStock indique si le produit a un stock suivi
func (p *Product) TracksStock() bool {
	return p.Stock != nil
}

package models

import "time"

// StoreSettings est un enregistrement singleton (logo + bannières de la boutique)
type StoreSettings struct {
	LogoURL    string    `json:"logo_url,omitempty"`
	BannerURLs []string  `json:"banner_urls"`
	UpdatedAt  time.Time `json:"updated_at"`
}

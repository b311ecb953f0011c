package models

type Cart struct {
	UserID string     `json:"user_id"`
	Items  []CartItem `json:"items"`
}

type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	// Prix capturé à l'ajout, affichage uniquement, jamais utilisé pour le total
	Price float64 `json:"price"`
}

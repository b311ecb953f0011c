package models

import (
	"time"
)

// Statuts de commande. Transitions autorisées :
// PENDING → PAID → FULFILLED, ou PENDING → FAILED/CANCELLED
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusFulfilled = "FULFILLED"
	OrderStatusFailed    = "FAILED"
	OrderStatusCancelled = "CANCELLED"
)

type Order struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	PaymentIntentID string      `json:"payment_intent_id"`
	TotalAmount     float64     `json:"total_amount"`
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	Items           []OrderItem `json:"items"`
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// CanTransitionTo valide une transition de statut
func (o *Order) CanTransitionTo(next string) bool {
	switch o.Status {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusFailed || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusFulfilled || next == OrderStatusCancelled
	default:
		return false
	}
}

package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"velours_back_end/internal/database"
	"velours_back_end/internal/models"
)

// ScyllaOrders persiste les commandes dans le keyspace orders.
// Tables : orders, order_items, orders_by_user, orders_by_payment.
type ScyllaOrders struct{}

func NewScyllaOrders() *ScyllaOrders {
	return &ScyllaOrders{}
}

// CreateOrder insère la commande, ses lignes et l'entrée de listing
// utilisateur dans un batch logged : tout ou rien.
func (s *ScyllaOrders) CreateOrder(ctx context.Context, order *models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	orderUUID, err := gocql.ParseUUID(order.ID)
	if err != nil {
		return fmt.Errorf("order_id invalide: %v", err)
	}

	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (order_id, user_id, payment_intent_id, total_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		orderUUID, order.UserID, order.PaymentIntentID, order.TotalAmount, order.Status, order.CreatedAt)

	for _, item := range order.Items {
		batch.Query(`INSERT INTO order_items (order_id, product_id, name, quantity, price)
			VALUES (?, ?, ?, ?, ?)`,
			orderUUID, item.ProductID, item.Name, item.Quantity, item.Price)
	}

	batch.Query(`INSERT INTO orders_by_user (user_id, created_at, order_id)
		VALUES (?, ?, ?)`,
		order.UserID, order.CreatedAt, orderUUID)

	return session.ExecuteBatch(batch)
}

var ErrOrderNotFound = errors.New("commande introuvable")

// GetOrder recharge une commande et ses lignes
func (s *ScyllaOrders) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	orderUUID, err := gocql.ParseUUID(orderID)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	order := models.Order{ID: orderID}
	err = session.Query(`SELECT user_id, payment_intent_id, total_amount, status, created_at
		FROM orders WHERE order_id = ?`, orderUUID).WithContext(ctx).
		Scan(&order.UserID, &order.PaymentIntentID, &order.TotalAmount, &order.Status, &order.CreatedAt)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT product_id, name, quantity, price FROM order_items WHERE order_id = ?`,
		orderUUID).WithContext(ctx).Iter()
	var item models.OrderItem
	for iter.Scan(&item.ProductID, &item.Name, &item.Quantity, &item.Price) {
		order.Items = append(order.Items, item)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	return &order, nil
}

// ListOrdersByUser retourne les commandes d'un utilisateur, plus récentes d'abord
func (s *ScyllaOrders) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(`SELECT order_id FROM orders_by_user WHERE user_id = ? ORDER BY created_at DESC`,
		userID).WithContext(ctx).Iter()

	var ids []gocql.UUID
	var id gocql.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(ids))
	for _, oid := range ids {
		order, err := s.GetOrder(ctx, oid.String())
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				continue
			}
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

// UpdateStatus applique une transition de statut après l'avoir validée
func (s *ScyllaOrders) UpdateStatus(ctx context.Context, orderID, next string) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.CanTransitionTo(next) {
		return fmt.Errorf("transition de statut interdite: %s → %s", order.Status, next)
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	orderUUID, _ := gocql.ParseUUID(orderID)
	return session.Query(`UPDATE orders SET status = ? WHERE order_id = ?`, next, orderUUID).
		WithContext(ctx).Exec()
}

// ScyllaIdempotency réserve les clés d'idempotence (id de payment intent)
// par INSERT ... IF NOT EXISTS sur orders_by_payment.
type ScyllaIdempotency struct{}

func NewScyllaIdempotency() *ScyllaIdempotency {
	return &ScyllaIdempotency{}
}

func (s *ScyllaIdempotency) Claim(ctx context.Context, key, orderID string) (string, bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return "", false, err
	}

	orderUUID, err := gocql.ParseUUID(orderID)
	if err != nil {
		return "", false, fmt.Errorf("order_id invalide: %v", err)
	}

	prev := make(map[string]interface{})
	applied, err := session.Query(`INSERT INTO orders_by_payment (payment_intent_id, order_id)
		VALUES (?, ?) IF NOT EXISTS`, key, orderUUID).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return "", false, err
	}
	if !applied {
		if existing, ok := prev["order_id"].(gocql.UUID); ok {
			return existing.String(), false, nil
		}
		return "", false, fmt.Errorf("clé %s déjà réservée sans order_id", key)
	}
	return "", true, nil
}

func (s *ScyllaIdempotency) Release(ctx context.Context, key string) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}
	return session.Query(`DELETE FROM orders_by_payment WHERE payment_intent_id = ?`, key).
		WithContext(ctx).Exec()
}

// LookupOrderByPayment retrouve la commande associée à un payment intent
func (s *ScyllaIdempotency) LookupOrderByPayment(ctx context.Context, paymentIntentID string) (string, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return "", err
	}

	var orderID gocql.UUID
	err = session.Query(`SELECT order_id FROM orders_by_payment WHERE payment_intent_id = ?`,
		paymentIntentID).WithContext(ctx).Scan(&orderID)
	if errors.Is(err, gocql.ErrNotFound) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return orderID.String(), nil
}

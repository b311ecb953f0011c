package payement

import (
	"velours_back_end/internal/catalog"
	"velours_back_end/internal/checkout"
	"velours_back_end/internal/models"
	"velours_back_end/internal/payment"
)

var (
	gateway    *payment.Adapter
	engine     *checkout.Engine
	orderStore *checkout.ScyllaOrders
	idemStore  *checkout.ScyllaIdempotency
)

// Setup câble le moteur de placement de commande sur ses collaborateurs
// ScyllaDB et l'adaptateur Stripe. Appelé une fois au démarrage.
func Setup() {
	gateway = payment.NewAdapter()
	orderStore = checkout.NewScyllaOrders()
	idemStore = checkout.NewScyllaIdempotency()
	engine = checkout.NewEngine(catalog.NewStore(), orderStore, idemStore)
}

// calcTotal calcule le montant total d'un panier à partir des prix catalogue
// déjà revalidés, jamais depuis les prix soumis par le client
func calcTotal(items []models.CartItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"velours_back_end/internal/models"
)

// Line est une ligne de panier telle que soumise par le client. Le prix
// client n'est jamais utilisé pour le total, seul le prix catalogue fait foi.
type Line struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Result est le résultat d'un placement de commande
type Result struct {
	OrderID     string
	TotalAmount float64
	// Duplicate = true si la clé d'idempotence avait déjà produit une commande
	Duplicate bool
}

// Catalog est le contrat du magasin catalogue côté checkout.
// DecrementStock doit être protégé contre les lost updates (CAS sur la ligne
// produit) et renvoyer InsufficientStockError si le stock ne suffit plus.
// Un produit au stock non suivi (nil) est décrémenté sans effet.
type Catalog interface {
	FindProduct(ctx context.Context, productID string) (*models.Product, error)
	DecrementStock(ctx context.Context, productID string, qty int) error
	IncrementStock(ctx context.Context, productID string, qty int) error
}

// OrderStore persiste la commande et ses lignes en une seule unité :
// jamais de commande sans lignes, jamais de lignes sans commande.
// GetOrder renvoie ErrOrderNotFound si l'id ne résout pas.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// IdempotencyStore réserve une clé d'idempotence. Claim renvoie l'order_id
// existant si la clé a déjà été réservée, sinon réserve orderID atomiquement.
type IdempotencyStore interface {
	Claim(ctx context.Context, key, orderID string) (existing string, claimed bool, err error)
	Release(ctx context.Context, key string) error
}

// Engine orchestre la transaction de placement de commande : validation des
// lignes, réservation du stock, calcul du total et création de la commande.
type Engine struct {
	Catalog     Catalog
	Orders      OrderStore
	Idempotency IdempotencyStore
}

func NewEngine(catalog Catalog, orders OrderStore, idem IdempotencyStore) *Engine {
	return &Engine{Catalog: catalog, Orders: orders, Idempotency: idem}
}

// decrement garde la trace d'une réservation à compenser en cas d'échec
type decrement struct {
	productID string
	qty       int
}

// mergeLines fusionne les lignes d'un même produit en cumulant les quantités.
// order_items est clusterisé par produit : deux lignes du même produit
// s'écraseraient l'une l'autre à l'insertion.
func mergeLines(lines []Line) []Line {
	merged := make([]Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}

// PlaceOrder convertit un panier en commande persistée avec stock décrémenté.
// key est la clé d'idempotence (l'id du payment intent) : un rappel avec la
// même clé renvoie la commande d'origine sans redécrémenter le stock.
// Tout échec après décrément partiel relâche chaque réservation de la
// tentative : aucun décrément ne survit sans commande committée.
func (e *Engine) PlaceOrder(ctx context.Context, userID, key string, lines []Line) (*Result, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if key == "" {
		return nil, ErrMissingKey
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w (produit %s)", ErrInvalidQuantity, l.ProductID)
		}
	}
	lines = mergeLines(lines)

	orderID := uuid.NewString()

	// Réserver la clé d'idempotence avant de toucher au stock
	existing, claimed, err := e.Idempotency.Claim(ctx, key, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !claimed {
		// La clé est tenue, mais ça ne suffit pas : la première tentative est
		// peut-être encore en vol, voire vouée à l'échec. On ne répond
		// "dupliqué" que si sa commande existe réellement.
		order, err := e.Orders.GetOrder(ctx, existing)
		if errors.Is(err, ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: clé %s en cours de traitement", ErrDuplicateRequest, key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		log.Printf("🔁 Commande déjà placée pour la clé %s → %s", key, existing)
		return &Result{OrderID: existing, TotalAmount: order.TotalAmount, Duplicate: true}, nil
	}

	var (
		total      float64
		done       []decrement
		orderItems []models.OrderItem
	)

	// En cas d'échec : relâcher chaque décrément déjà appliqué (Released)
	// et libérer la clé pour qu'un nouvel essai reste possible
	rollback := func() {
		for _, d := range done {
			if rbErr := e.Catalog.IncrementStock(ctx, d.productID, d.qty); rbErr != nil {
				log.Printf("❌ Échec compensation stock %s (+%d): %v", d.productID, d.qty, rbErr)
			}
		}
		if rbErr := e.Idempotency.Release(ctx, key); rbErr != nil {
			log.Printf("❌ Échec libération clé d'idempotence %s: %v", key, rbErr)
		}
	}

	for _, l := range lines {
		product, err := e.Catalog.FindProduct(ctx, l.ProductID)
		if err != nil {
			rollback()
			if IsValidationError(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		// Le prix catalogue fait foi, le prix client n'est que de l'affichage
		total += product.Price * float64(l.Quantity)

		// DecrementStock est un CAS sur la ligne produit : deux checkouts
		// concurrents ne peuvent pas dépasser le stock disponible.
		// Stock non suivi (nil) : aucun effet, conservé tel quel.
		if err := e.Catalog.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			rollback()
			if IsValidationError(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if product.TracksStock() {
			done = append(done, decrement{productID: l.ProductID, qty: l.Quantity})
		}

		orderItems = append(orderItems, models.OrderItem{
			ProductID: l.ProductID,
			Name:      product.Name,
			Quantity:  l.Quantity,
			Price:     product.Price,
		})
	}

	order := &models.Order{
		ID:              orderID,
		UserID:          userID,
		PaymentIntentID: key,
		TotalAmount:     total,
		Status:          models.OrderStatusPending,
		CreatedAt:       time.Now(),
		Items:           orderItems,
	}

	if err := e.Orders.CreateOrder(ctx, order); err != nil {
		rollback()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Printf("✅ Commande %s placée pour %s (%.2f, %d articles)", orderID, userID, total, len(orderItems))
	return &Result{OrderID: orderID, TotalAmount: total}, nil
}

package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velours_back_end/internal/models"
)

// fakeCatalog reproduit la sémantique CAS du magasin Scylla : décrément
// protégé par verrou, stock nil jamais touché.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
}

func newFakeCatalog(products ...*models.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[string]*models.Product)}
	for _, p := range products {
		c.products[p.ID.String()] = p
	}
	return c
}

func (c *fakeCatalog) FindProduct(_ context.Context, productID string) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, &ProductNotFoundError{ProductID: productID}
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCatalog) DecrementStock(_ context.Context, productID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return &ProductNotFoundError{ProductID: productID}
	}
	if p.Stock == nil {
		return nil
	}
	if *p.Stock < qty {
		return &InsufficientStockError{ProductID: productID, Name: p.Name, Available: *p.Stock, Requested: qty}
	}
	*p.Stock -= qty
	return nil
}

func (c *fakeCatalog) IncrementStock(_ context.Context, productID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return &ProductNotFoundError{ProductID: productID}
	}
	if p.Stock == nil {
		return nil
	}
	*p.Stock += qty
	return nil
}

func (c *fakeCatalog) stock(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.products[productID].Stock
}

type fakeOrders struct {
	mu     sync.Mutex
	orders []*models.Order
	failOn error
	gate   chan struct{} // si non-nil, CreateOrder attend sa fermeture
}

func (o *fakeOrders) CreateOrder(_ context.Context, order *models.Order) error {
	if o.gate != nil {
		<-o.gate
	}
	if o.failOn != nil {
		return o.failOn
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders = append(o.orders, order)
	return nil
}

func (o *fakeOrders) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, order := range o.orders {
		if order.ID == orderID {
			cp := *order
			return &cp, nil
		}
	}
	return nil, ErrOrderNotFound
}

type fakeIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: make(map[string]string)}
}

func (i *fakeIdempotency) Claim(_ context.Context, key, orderID string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if existing, ok := i.keys[key]; ok {
		return existing, false, nil
	}
	i.keys[key] = orderID
	return "", true, nil
}

func (i *fakeIdempotency) Release(_ context.Context, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.keys, key)
	return nil
}

func (i *fakeIdempotency) held(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.keys[key]
	return ok
}

func intPtr(n int) *int { return &n }

func testProduct(name string, price float64, stock *int) *models.Product {
	return &models.Product{ID: gocql.TimeUUID(), Name: name, Price: price, Stock: stock, IsActive: true}
}

func TestPlaceOrder_Success(t *testing.T) {
	p := testProduct("Coussin velours", 500, intPtr(10))
	catalog := newFakeCatalog(p)
	orders := &fakeOrders{}
	engine := NewEngine(catalog, orders, newFakeIdempotency())

	res, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_1", []Line{
		{ProductID: p.ID.String(), Quantity: 2, Price: 500},
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.False(t, res.Duplicate)
	assert.NotEmpty(t, res.OrderID)
	assert.Equal(t, 1000.0, res.TotalAmount)
	assert.Equal(t, 8, catalog.stock(p.ID.String()))

	require.Len(t, orders.orders, 1)
	order := orders.orders[0]
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "pi_test_1", order.PaymentIntentID)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Coussin velours", order.Items[0].Name)
	assert.Equal(t, 2, order.Items[0].Quantity)
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	p := testProduct("Plaid", 200, intPtr(10))
	catalog := newFakeCatalog(p)
	orders := &fakeOrders{}
	engine := NewEngine(catalog, orders, newFakeIdempotency())

	_, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_2", []Line{
		{ProductID: p.ID.String(), Quantity: 20},
	})
	require.Error(t, err)

	var noStock *InsufficientStockError
	require.ErrorAs(t, err, &noStock)
	assert.Equal(t, 10, noStock.Available)
	assert.Equal(t, 20, noStock.Requested)

	// Aucun décrément ne survit à l'échec, aucune commande créée
	assert.Equal(t, 10, catalog.stock(p.ID.String()))
	assert.Empty(t, orders.orders)
}

func TestPlaceOrder_Validation(t *testing.T) {
	p := testProduct("Rideau", 300, intPtr(5))
	engine := NewEngine(newFakeCatalog(p), &fakeOrders{}, newFakeIdempotency())
	ctx := context.Background()

	_, err := engine.PlaceOrder(ctx, "", "pi_x", []Line{{ProductID: p.ID.String(), Quantity: 1}})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = engine.PlaceOrder(ctx, "user-1", "pi_x", nil)
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = engine.PlaceOrder(ctx, "user-1", "", []Line{{ProductID: p.ID.String(), Quantity: 1}})
	assert.ErrorIs(t, err, ErrMissingKey)

	_, err = engine.PlaceOrder(ctx, "user-1", "pi_x", []Line{{ProductID: p.ID.String(), Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	p := testProduct("Tapis", 800, intPtr(3))
	catalog := newFakeCatalog(p)
	engine := NewEngine(catalog, &fakeOrders{}, newFakeIdempotency())

	_, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_3", []Line{
		{ProductID: p.ID.String(), Quantity: 1},
		{ProductID: "inconnu", Quantity: 1},
	})
	require.Error(t, err)

	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "inconnu", notFound.ProductID)

	// La première ligne avait été décrémentée : compensation attendue
	assert.Equal(t, 3, catalog.stock(p.ID.String()))
}

func TestPlaceOrder_RollbackOnCreateFailure(t *testing.T) {
	p := testProduct("Lampe", 150, intPtr(6))
	catalog := newFakeCatalog(p)
	orders := &fakeOrders{failOn: errors.New("scylla injoignable")}
	idem := newFakeIdempotency()
	engine := NewEngine(catalog, orders, idem)

	_, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_4", []Line{
		{ProductID: p.ID.String(), Quantity: 4},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)

	// Stock restauré et clé libérée : un nouvel essai doit réussir
	assert.Equal(t, 6, catalog.stock(p.ID.String()))

	orders.failOn = nil
	res, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_4", []Line{
		{ProductID: p.ID.String(), Quantity: 4},
	})
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 2, catalog.stock(p.ID.String()))
}

func TestPlaceOrder_Idempotent(t *testing.T) {
	p := testProduct("Bougie", 90, intPtr(10))
	catalog := newFakeCatalog(p)
	orders := &fakeOrders{}
	engine := NewEngine(catalog, orders, newFakeIdempotency())

	lines := []Line{{ProductID: p.ID.String(), Quantity: 2}}
	first, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_5", lines)
	require.NoError(t, err)

	second, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_5", lines)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	// Une seule commande, un seul décrément
	assert.Len(t, orders.orders, 1)
	assert.Equal(t, 8, catalog.stock(p.ID.String()))
}

func TestPlaceOrder_DuplicateWhileFirstAttemptInFlight(t *testing.T) {
	p := testProduct("Canapé", 9000, intPtr(4))
	catalog := newFakeCatalog(p)
	gate := make(chan struct{})
	orders := &fakeOrders{gate: gate}
	idem := newFakeIdempotency()
	engine := NewEngine(catalog, orders, idem)

	lines := []Line{{ProductID: p.ID.String(), Quantity: 2}}

	firstErr := make(chan error, 1)
	go func() {
		_, err := engine.PlaceOrder(context.Background(), "user-1", "pi_race", lines)
		firstErr <- err
	}()

	// Attendre que la première tentative tienne la clé, bloquée sur CreateOrder
	require.Eventually(t, func() bool { return idem.held("pi_race") }, time.Second, time.Millisecond)

	// Le rappel ne doit pas annoncer une commande qui n'existe pas encore
	_, err := engine.PlaceOrder(context.Background(), "user-1", "pi_race", lines)
	require.ErrorIs(t, err, ErrDuplicateRequest)

	// La première tentative échoue à la persistance : compensation complète
	orders.failOn = errors.New("scylla injoignable")
	close(gate)
	require.ErrorIs(t, <-firstErr, ErrPersistence)
	assert.Equal(t, 4, catalog.stock(p.ID.String()))

	// Clé libérée : un nouvel essai propre aboutit
	orders.failOn = nil
	orders.gate = nil
	res, err := engine.PlaceOrder(context.Background(), "user-1", "pi_race", lines)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 2, catalog.stock(p.ID.String()))
}

func TestPlaceOrder_MergesDuplicateLines(t *testing.T) {
	p := testProduct("Coussin", 300, intPtr(10))
	catalog := newFakeCatalog(p)
	orders := &fakeOrders{}
	engine := NewEngine(catalog, orders, newFakeIdempotency())

	// Deux lignes du même produit : une seule ligne de commande cumulée
	res, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_8", []Line{
		{ProductID: p.ID.String(), Quantity: 2},
		{ProductID: p.ID.String(), Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 1500.0, res.TotalAmount)
	assert.Equal(t, 5, catalog.stock(p.ID.String()))
	require.Len(t, orders.orders, 1)
	require.Len(t, orders.orders[0].Items, 1)
	assert.Equal(t, 5, orders.orders[0].Items[0].Quantity)
}

func TestPlaceOrder_CatalogPriceWins(t *testing.T) {
	p := testProduct("Miroir", 450, intPtr(5))
	catalog := newFakeCatalog(p)
	orders := &fakeOrders{}
	engine := NewEngine(catalog, orders, newFakeIdempotency())

	// Le client prétend payer 1 roupie : le prix catalogue fait foi
	res, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_6", []Line{
		{ProductID: p.ID.String(), Quantity: 2, Price: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 900.0, res.TotalAmount)
	assert.Equal(t, 450.0, orders.orders[0].Items[0].Price)
}

func TestPlaceOrder_UntrackedStock(t *testing.T) {
	p := testProduct("Carte cadeau", 1000, nil)
	catalog := newFakeCatalog(p)
	orders := &fakeOrders{}
	engine := NewEngine(catalog, orders, newFakeIdempotency())

	res, err := engine.PlaceOrder(context.Background(), "user-1", "pi_test_7", []Line{
		{ProductID: p.ID.String(), Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 3000.0, res.TotalAmount)
	assert.Nil(t, catalog.products[p.ID.String()].Stock)
}

func TestPlaceOrder_ConcurrentNoOversell(t *testing.T) {
	p := testProduct("Fauteuil", 2500, intPtr(5))
	catalog := newFakeCatalog(p)
	orders := &fakeOrders{}
	engine := NewEngine(catalog, orders, newFakeIdempotency())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = engine.PlaceOrder(context.Background(), "user-1", "pi_concurrent_"+string(rune('a'+n)), []Line{
				{ProductID: p.ID.String(), Quantity: 3},
			})
		}(i)
	}
	wg.Wait()

	// Stock 5, deux commandes de 3 : exactement une passe
	var ok, noStock int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		var insufficient *InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
		noStock++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, noStock)
	assert.Equal(t, 2, catalog.stock(p.ID.String()))
	assert.Len(t, orders.orders, 1)
}

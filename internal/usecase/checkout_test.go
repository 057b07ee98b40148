package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// ---- in-memory store ----

// memStore backs the checkout coordinator with map-based state. WithinTx
// stages all writes on copies and publishes them only when fn succeeds, so
// rollback behaves like the real transaction.
type memStore struct {
	mu       sync.Mutex
	products map[string]*usecase.ProductSnapshot
	carts    map[string]*usecase.CartRecord      // by user id
	items    map[string][]usecase.CartItemRecord // by cart id
	orders   []*usecase.OrderRecord

	// beforeTx, when set, runs at the start of every transaction while the
	// store lock is held. Tests use it to race a product update in between
	// the snapshot reads and the conditional writes.
	beforeTx func(s *memStore)
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]*usecase.ProductSnapshot{},
		carts:    map[string]*usecase.CartRecord{},
		items:    map[string][]usecase.CartItemRecord{},
	}
}

func (s *memStore) addProduct(id string, price, stock, version int64) {
	s.products[id] = &usecase.ProductSnapshot{ID: id, Name: "p-" + id, PriceCents: price, Stock: stock, Version: version}
}

func (s *memStore) addCart(userID, cartID string, items ...usecase.CartItemRecord) {
	s.carts[userID] = &usecase.CartRecord{ID: cartID, UserID: userID}
	s.items[cartID] = items
}

func (s *memStore) GetCart(_ context.Context, userID string) (*usecase.CartRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		return nil, usecase.ErrCartNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memStore) GetCartItems(_ context.Context, cartID string) ([]usecase.CartItemRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]usecase.CartItemRecord(nil), s.items[cartID]...), nil
}

func (s *memStore) GetProduct(_ context.Context, productID string) (*usecase.ProductSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, usecase.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) WithinTx(_ context.Context, fn func(tx usecase.CheckoutTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.beforeTx != nil {
		s.beforeTx(s)
	}

	staged := make(map[string]*usecase.ProductSnapshot, len(s.products))
	for id, p := range s.products {
		cp := *p
		staged[id] = &cp
	}
	tx := &memTx{products: staged}
	if err := fn(tx); err != nil {
		return err
	}

	s.products = staged
	s.orders = append(s.orders, tx.orders...)
	for _, cartID := range tx.clearedCarts {
		s.items[cartID] = nil
	}
	return nil
}

type memTx struct {
	products     map[string]*usecase.ProductSnapshot
	orders       []*usecase.OrderRecord
	clearedCarts []string
}

func (t *memTx) TryAdjustStock(_ context.Context, productID string, expectedVersion, delta int64) (bool, error) {
	p, ok := t.products[productID]
	if !ok {
		return false, nil
	}
	if p.Version != expectedVersion || p.Stock+delta < 0 {
		return false, nil
	}
	p.Stock += delta
	p.Version++
	return true, nil
}

func (t *memTx) GetProduct(_ context.Context, productID string) (*usecase.ProductSnapshot, error) {
	p, ok := t.products[productID]
	if !ok {
		return nil, usecase.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) CreateOrder(_ context.Context, o *usecase.OrderRecord) error {
	cp := *o
	t.orders = append(t.orders, &cp)
	return nil
}

func (t *memTx) ClearCart(_ context.Context, cartID string) error {
	t.clearedCarts = append(t.clearedCarts, cartID)
	return nil
}

// ---- side-effect fakes ----

type fakeQueue struct {
	mu   sync.Mutex
	msgs []usecase.OrderConfirmedMsg
	err  error
}

func (q *fakeQueue) PublishOrderConfirmed(_ context.Context, msg usecase.OrderConfirmedMsg) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

type fakeCache struct {
	mu          sync.Mutex
	invalidated int
	err         error
}

func (c *fakeCache) Get(context.Context, string, any) (bool, error) { return false, nil }
func (c *fakeCache) Set(context.Context, string, any) error         { return nil }
func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.invalidated++
	return nil
}

type fakeIdem struct {
	mu     sync.Mutex
	locked map[string]bool
	stored map[string]string
}

func newFakeIdem() *fakeIdem {
	return &fakeIdem{locked: map[string]bool{}, stored: map[string]string{}}
}

func (i *fakeIdem) TryLock(_ context.Context, scope, key string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	k := scope + "/" + key
	if i.locked[k] {
		return false, nil
	}
	i.locked[k] = true
	return true, nil
}

func (i *fakeIdem) Unlock(_ context.Context, scope, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.locked, scope+"/"+key)
	return nil
}

func (i *fakeIdem) Remember(_ context.Context, scope, key, value string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stored[scope+"/"+key] = value
	return nil
}

func (i *fakeIdem) Recall(_ context.Context, scope, key string) (string, bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	v, ok := i.stored[scope+"/"+key]
	return v, ok, nil
}

func newCheckout(store usecase.CheckoutStore, q usecase.NotificationQueue, c usecase.CatalogCache) *usecase.Checkout {
	return usecase.NewCheckout(store, nil, q, c, discard())
}

// ---- tests ----

func TestCheckoutHappyPath(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 1999, 5, 0)
	store.addProduct("p2", 500, 5, 3)
	store.addCart("u1", "c1",
		usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 2},
		usecase.CartItemRecord{ID: "i2", CartID: "c1", ProductID: "p2", Quantity: 2},
	)

	q := &fakeQueue{}
	c := &fakeCache{}
	uc := newCheckout(store, q, c)

	order, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1", UserEmail: "u1@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "CONFIRMED", order.Status)
	assert.Equal(t, int64(2*1999+2*500), order.TotalCents)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, int64(1999), order.Lines[0].UnitPriceCents)
	assert.Equal(t, int64(500), order.Lines[1].UnitPriceCents)

	// stock decremented and versions bumped
	assert.Equal(t, int64(3), store.products["p1"].Stock)
	assert.Equal(t, int64(1), store.products["p1"].Version)
	assert.Equal(t, int64(3), store.products["p2"].Stock)
	assert.Equal(t, int64(4), store.products["p2"].Version)

	// cart cleared, order persisted
	assert.Empty(t, store.items["c1"])
	require.Len(t, store.orders, 1)
	assert.Equal(t, order.ID, store.orders[0].ID)

	// post-commit side effects
	require.Len(t, q.msgs, 1)
	assert.Equal(t, order.ID, q.msgs[0].OrderID)
	assert.Equal(t, "u1@example.com", q.msgs[0].UserEmail)
	assert.Equal(t, 2, q.msgs[0].ItemCount)
	assert.Equal(t, 1, c.invalidated)
}

func TestCheckoutEmptyCart(t *testing.T) {
	store := newMemStore()
	store.addCart("u1", "c1")

	uc := newCheckout(store, &fakeQueue{}, &fakeCache{})
	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1"})
	assert.ErrorIs(t, err, usecase.ErrEmptyCart)
	assert.Empty(t, store.orders)
}

func TestCheckoutCartNotFound(t *testing.T) {
	uc := newCheckout(newMemStore(), &fakeQueue{}, &fakeCache{})
	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "ghost"})
	assert.ErrorIs(t, err, usecase.ErrCartNotFound)
}

func TestCheckoutInsufficientStockBeforeTx(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 100, 3, 0)
	store.addCart("u1", "c1",
		usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 5},
	)

	uc := newCheckout(store, &fakeQueue{}, &fakeCache{})
	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1"})

	require.ErrorIs(t, err, usecase.ErrInsufficientStock)
	var se *usecase.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "p1", se.ProductID)
	assert.Equal(t, int64(3), se.Available)
	assert.Equal(t, int64(5), se.Requested)

	// nothing written
	assert.Equal(t, int64(3), store.products["p1"].Stock)
	assert.Len(t, store.items["c1"], 1)
}

func TestCheckoutRollbackOnMidCartFailure(t *testing.T) {
	store := newMemStore()
	store.addProduct("pA", 100, 10, 0)
	store.addProduct("pB", 200, 10, 0)
	store.addCart("u1", "c1",
		usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "pA", Quantity: 1},
		usecase.CartItemRecord{ID: "i2", CartID: "c1", ProductID: "pB", Quantity: 2},
	)

	// Drain pB after the snapshots were taken: pA's decrement applies first
	// inside the tx, then pB's conditional write rejects and everything must
	// roll back.
	store.beforeTx = func(s *memStore) {
		s.products["pB"].Stock = 1
		s.products["pB"].Version++
	}

	q := &fakeQueue{}
	c := &fakeCache{}
	uc := newCheckout(store, q, c)

	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrVersionConflict)

	// pA untouched despite its decrement having been applied in-tx
	assert.Equal(t, int64(10), store.products["pA"].Stock)
	assert.Equal(t, int64(0), store.products["pA"].Version)

	// no order, cart intact, no side effects
	assert.Empty(t, store.orders)
	assert.Len(t, store.items["c1"], 2)
	assert.Empty(t, q.msgs)
	assert.Equal(t, 0, c.invalidated)
}

func TestCheckoutClassifiesInTxStockShortfall(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 100, 5, 0)
	store.addCart("u1", "c1",
		usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 4},
	)

	// Same version, less stock: another order on the same snapshot would bump
	// the version too, so shrink stock without touching the version to force
	// the stock branch of the classifier.
	store.beforeTx = func(s *memStore) {
		s.products["p1"].Stock = 2
	}

	uc := newCheckout(store, &fakeQueue{}, &fakeCache{})
	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1"})

	require.ErrorIs(t, err, usecase.ErrInsufficientStock)
	var se *usecase.StockError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(2), se.Available)
	assert.Equal(t, int64(4), se.Requested)
}

func TestCheckoutVersionConflictOnConcurrentUpdate(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 100, 5, 7)
	store.addCart("u1", "c1",
		usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 1},
	)

	store.beforeTx = func(s *memStore) {
		// a price edit bumps the version without touching stock
		s.products["p1"].Version++
	}

	uc := newCheckout(store, &fakeQueue{}, &fakeCache{})
	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1"})
	assert.ErrorIs(t, err, usecase.ErrVersionConflict)
	assert.Equal(t, int64(5), store.products["p1"].Stock)
}

func TestCheckoutTwoRacersOneUnit(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 100, 1, 0)
	store.addCart("u1", "c1", usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 1})
	store.addCart("u2", "c2", usecase.CartItemRecord{ID: "i2", CartID: "c2", ProductID: "p1", Quantity: 1})

	uc := newCheckout(store, &fakeQueue{}, &fakeCache{})

	results := make([]error, 2)
	var g errgroup.Group
	for i, user := range []string{"u1", "u2"} {
		g.Go(func() error {
			_, results[i] = uc.Execute(context.Background(), usecase.CheckoutInput{UserID: user})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var wins, losses int
	for _, err := range results {
		if err == nil {
			wins++
			continue
		}
		losses++
		// the loser sees a conflict or a shortfall depending on interleaving
		assert.True(t,
			errors.Is(err, usecase.ErrVersionConflict) || errors.Is(err, usecase.ErrInsufficientStock),
			"unexpected error: %v", err)
	}

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
	assert.Equal(t, int64(0), store.products["p1"].Stock)
	assert.Len(t, store.orders, 1)
}

func TestCheckoutNoOverselling(t *testing.T) {
	const buyers = 20
	const initialStock = 5

	store := newMemStore()
	store.addProduct("p1", 250, initialStock, 0)
	for i := 0; i < buyers; i++ {
		user := string(rune('a' + i))
		store.addCart(user, "cart-"+user,
			usecase.CartItemRecord{ID: "i-" + user, CartID: "cart-" + user, ProductID: "p1", Quantity: 1})
	}

	uc := newCheckout(store, &fakeQueue{}, &fakeCache{})

	var g errgroup.Group
	results := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		g.Go(func() error {
			user := string(rune('a' + i))
			_, results[i] = uc.Execute(context.Background(), usecase.CheckoutInput{UserID: user})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var confirmed int
	for _, err := range results {
		if err == nil {
			confirmed++
		}
	}

	final := store.products["p1"].Stock
	assert.GreaterOrEqual(t, final, int64(0), "stock must never go negative")
	assert.Equal(t, int64(initialStock)-final, int64(confirmed), "every confirmed order is backed by a decrement")
	assert.LessOrEqual(t, confirmed, initialStock)
	assert.Len(t, store.orders, confirmed)
}

func TestCheckoutSequentialBuyersDrainStockExactly(t *testing.T) {
	const initialStock = 3

	store := newMemStore()
	store.addProduct("p1", 100, initialStock, 0)
	uc := newCheckout(store, &fakeQueue{}, &fakeCache{})

	for i := 0; i < initialStock; i++ {
		user := string(rune('a' + i))
		store.addCart(user, "cart-"+user,
			usecase.CartItemRecord{ID: "i-" + user, CartID: "cart-" + user, ProductID: "p1", Quantity: 1})
		_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: user})
		require.NoError(t, err)
	}

	store.addCart("late", "cart-late",
		usecase.CartItemRecord{ID: "i-late", CartID: "cart-late", ProductID: "p1", Quantity: 1})
	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "late"})
	assert.ErrorIs(t, err, usecase.ErrInsufficientStock)
	assert.Equal(t, int64(0), store.products["p1"].Stock)
	assert.Len(t, store.orders, initialStock)
}

func TestCheckoutPriceCapturedAtPurchase(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 1000, 10, 0)
	store.addCart("u1", "c1", usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 1})

	uc := newCheckout(store, &fakeQueue{}, &fakeCache{})
	order, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1"})
	require.NoError(t, err)

	// a later price change must not reach the stored line
	store.products["p1"].PriceCents = 9999
	assert.Equal(t, int64(1000), store.orders[0].Lines[0].UnitPriceCents)
	assert.Equal(t, int64(1000), order.TotalCents)
}

func TestCheckoutNotificationFailureDoesNotFail(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 100, 5, 0)
	store.addCart("u1", "c1", usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 1})

	q := &fakeQueue{err: errors.New("broker down")}
	c := &fakeCache{err: errors.New("redis down")}
	uc := newCheckout(store, q, c)

	order, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", order.Status)
	assert.Equal(t, int64(4), store.products["p1"].Stock)
}

func TestCheckoutIdempotencyRecall(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 100, 5, 0)
	store.addCart("u1", "c1", usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 1})

	idem := newFakeIdem()
	uc := usecase.NewCheckout(store, idem, &fakeQueue{}, &fakeCache{}, discard())

	first, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1", IdempotencyKey: "k1"})
	require.NoError(t, err)

	// the replay returns the committed order instead of re-running checkout
	second, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(4), store.products["p1"].Stock)
	assert.Len(t, store.orders, 1)
}

func TestCheckoutProductDeletedMidTransaction(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 100, 5, 0)
	store.addProduct("p2", 200, 5, 0)
	store.addCart("u1", "c1",
		usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 1},
		usecase.CartItemRecord{ID: "i2", CartID: "c1", ProductID: "p2", Quantity: 1},
	)

	// p2 is removed after the snapshots were taken; p1's decrement applies
	// first in-tx, so the abort must also undo it.
	store.beforeTx = func(s *memStore) {
		delete(s.products, "p2")
	}

	q := &fakeQueue{}
	uc := newCheckout(store, q, &fakeCache{})

	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1"})
	require.ErrorIs(t, err, usecase.ErrProductNotFound)
	assert.NotErrorIs(t, err, usecase.ErrInsufficientStock)

	assert.Equal(t, int64(5), store.products["p1"].Stock)
	assert.Equal(t, int64(0), store.products["p1"].Version)
	assert.Empty(t, store.orders)
	assert.Len(t, store.items["c1"], 2)
	assert.Empty(t, q.msgs)
}

func TestCheckoutRetryWithSameKeyAfterFailure(t *testing.T) {
	store := newMemStore()
	store.addProduct("p1", 100, 5, 0)
	store.addCart("u1", "c1", usecase.CartItemRecord{ID: "i1", CartID: "c1", ProductID: "p1", Quantity: 1})

	// first attempt loses to a concurrent product update
	store.beforeTx = func(s *memStore) {
		s.products["p1"].Version++
		s.beforeTx = nil
	}

	idem := newFakeIdem()
	uc := usecase.NewCheckout(store, idem, &fakeQueue{}, &fakeCache{}, discard())

	_, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1", IdempotencyKey: "k1"})
	require.ErrorIs(t, err, usecase.ErrVersionConflict)

	// the failed attempt must not burn the key: the retry goes through
	order, err := uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1", IdempotencyKey: "k1"})
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", order.Status)
	assert.Equal(t, int64(4), store.products["p1"].Stock)
	assert.Len(t, store.orders, 1)
}

func TestCheckoutIdempotencyInFlightDuplicate(t *testing.T) {
	store := newMemStore()
	store.addCart("u1", "c1")

	idem := newFakeIdem()
	// simulate a lock already held by an in-flight request
	ok, err := idem.TryLock(context.Background(), "u1", "k1")
	require.NoError(t, err)
	require.True(t, ok)

	uc := usecase.NewCheckout(store, idem, &fakeQueue{}, &fakeCache{}, discard())
	_, err = uc.Execute(context.Background(), usecase.CheckoutInput{UserID: "u1", IdempotencyKey: "k1"})
	assert.ErrorIs(t, err, usecase.ErrDuplicate)
}

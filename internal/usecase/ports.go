package usecase

import (
	"context"
	"time"

	domain "github.com/aq2208/goshop-api/internal/entity"
)

// Persistence shapes (kept out of domain).

// ProductSnapshot is the pre-transaction read used for optimistic locking:
// Version is the expected value for the conditional decrement, PriceCents is
// the price-at-purchase captured into order lines.
type ProductSnapshot struct {
	ID         string
	Name       string
	PriceCents int64
	Stock      int64
	Version    int64
}

type CartRecord struct {
	ID     string
	UserID string
}

type CartItemRecord struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int64

	// Joined product columns, populated by list reads.
	ProductName  string
	UnitPrice    int64
	ProductStock int64
}

type OrderLineRecord struct {
	ProductID      string
	Quantity       int64
	UnitPriceCents int64 // captured at purchase time, never updated
}

type OrderRecord struct {
	ID         string
	UserID     string
	Status     string
	TotalCents int64
	CreatedAt  time.Time
	Lines      []OrderLineRecord
}

// CheckoutTx is the slice of the store visible inside the checkout
// transaction. Every mutation either commits as a whole or rolls back.
type CheckoutTx interface {
	// TryAdjustStock applies delta iff the product's version still equals
	// expectedVersion and the resulting stock stays non-negative, as one
	// atomic conditional write. Returns whether the write was applied.
	TryAdjustStock(ctx context.Context, productID string, expectedVersion, delta int64) (bool, error)

	// GetProduct re-reads the authoritative row inside the transaction,
	// used to classify a rejected conditional write.
	GetProduct(ctx context.Context, productID string) (*ProductSnapshot, error)

	CreateOrder(ctx context.Context, o *OrderRecord) error
	ClearCart(ctx context.Context, cartID string) error
}

type CheckoutStore interface {
	GetCart(ctx context.Context, userID string) (*CartRecord, error)
	GetCartItems(ctx context.Context, cartID string) ([]CartItemRecord, error)
	GetProduct(ctx context.Context, productID string) (*ProductSnapshot, error)

	// WithinTx runs fn inside a single database transaction; a non-nil error
	// from fn rolls back everything fn did.
	WithinTx(ctx context.Context, fn func(tx CheckoutTx) error) error
}

type ProductFilter struct {
	Category  string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

type ProductPage struct {
	Items []domain.Product
	Total int64
	Page  int
	Limit int
	Pages int
}

type ProductRepo interface {
	List(ctx context.Context, f ProductFilter) (*ProductPage, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	// Update bumps the product version by 1 on success.
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
}

type CartRepo interface {
	GetByUserID(ctx context.Context, userID string) (*CartRecord, error)
	GetOrCreate(ctx context.Context, userID string) (*CartRecord, error)
	Items(ctx context.Context, cartID string) ([]CartItemRecord, error)
	GetItem(ctx context.Context, cartID, itemID string) (*CartItemRecord, error)
	// UpsertItem accumulates quantity when the (cart, product) pair exists.
	UpsertItem(ctx context.Context, cartID, productID string, quantity int64) (*CartItemRecord, error)
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int64) error
	RemoveItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
}

type OrderPage struct {
	Items []OrderRecord
	Total int64
	Page  int
	Limit int
	Pages int
}

type OrderRepo interface {
	GetByID(ctx context.Context, id string) (*OrderRecord, error)
	ListByUser(ctx context.Context, userID string, page, limit int) (*OrderPage, error)
	ListAll(ctx context.Context, status string, page, limit int) (*OrderPage, error)
	// UpdateStatusIf performs a guarded transition; rows==0 means the order
	// was not in fromStatus (or does not exist).
	UpdateStatusIf(ctx context.Context, id, fromStatus, toStatus string) (bool, error)
}

// CatalogCache is the read-view cache for the product catalog namespace.
// Invalidate clears the whole namespace prefix, not individual entries.
type CatalogCache interface {
	Get(ctx context.Context, key string, v any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Invalidate(ctx context.Context) error
}

// NotificationQueue hands order confirmations to an asynchronous dispatcher.
// At-least-once is acceptable; failures must never unwind a checkout.
type NotificationQueue interface {
	PublishOrderConfirmed(ctx context.Context, msg OrderConfirmedMsg) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	// Unlock releases a held lock so a failed attempt can be retried with
	// the same key.
	Unlock(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

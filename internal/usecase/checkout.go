package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domain "github.com/aq2208/goshop-api/internal/entity"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checkoutOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome",
	},
	[]string{"outcome"},
)

// Checkout turns a cart into a confirmed order as one atomic unit:
// conditional per-item stock decrements, order + line creation and cart clear
// all share a single transaction. Version conflicts are surfaced to the
// caller, never retried here: an internal retry would have to re-validate the
// whole cart against possibly-changed prices and would mask legitimate state
// changes from the user.
type Checkout struct {
	store CheckoutStore
	idem  IdempotencyStore
	queue NotificationQueue
	cache CatalogCache
	log   *slog.Logger
}

func NewCheckout(store CheckoutStore, idem IdempotencyStore, queue NotificationQueue, cache CatalogCache, log *slog.Logger) *Checkout {
	return &Checkout{store: store, idem: idem, queue: queue, cache: cache, log: log}
}

type CheckoutInput struct {
	UserID, UserEmail, IdempotencyKey string
}

func (uc *Checkout) Execute(ctx context.Context, in CheckoutInput) (*OrderRecord, error) {
	// Fast path: idempotency recall
	if uc.idem != nil && in.IdempotencyKey != "" {
		if id, ok, _ := uc.idem.Recall(ctx, in.UserID, in.IdempotencyKey); ok {
			return &OrderRecord{ID: id, UserID: in.UserID, Status: string(domain.StatusConfirmed)}, nil
		}
		ok, err := uc.idem.TryLock(ctx, in.UserID, in.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrDuplicate
		}
	}

	order, err := uc.execute(ctx, in.UserID)
	if err != nil {
		checkoutOutcomes.WithLabelValues(outcomeLabel(err)).Inc()
		// A failed attempt committed nothing, so the same key must be usable
		// again: conflicts are retryable by contract.
		if uc.idem != nil && in.IdempotencyKey != "" {
			if uerr := uc.idem.Unlock(ctx, in.UserID, in.IdempotencyKey); uerr != nil {
				uc.log.Warn("idempotency unlock failed", "user_id", in.UserID, "err", uerr)
			}
		}
		return nil, err
	}
	checkoutOutcomes.WithLabelValues("confirmed").Inc()

	// Post-commit side effects are fire-and-forget: the order is already
	// durable, so neither may fail the call.
	if uc.queue != nil {
		msg := OrderConfirmedMsg{
			OrderID:    order.ID,
			UserID:     order.UserID,
			UserEmail:  in.UserEmail,
			TotalCents: order.TotalCents,
			ItemCount:  len(order.Lines),
		}
		if err := uc.queue.PublishOrderConfirmed(ctx, msg); err != nil {
			uc.log.Warn("order confirmation enqueue failed", "order_id", order.ID, "err", err)
		}
	}
	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx); err != nil {
			uc.log.Warn("catalog cache invalidation failed", "order_id", order.ID, "err", err)
		}
	}
	if uc.idem != nil && in.IdempotencyKey != "" {
		_ = uc.idem.Remember(ctx, in.UserID, in.IdempotencyKey, order.ID)
	}

	return order, nil
}

func (uc *Checkout) execute(ctx context.Context, userID string) (*OrderRecord, error) {
	cart, err := uc.store.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Early rejection: checked before the write transaction on purpose. A
	// concurrently filled cart only helps, never hurts.
	items, err := uc.store.GetCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// Pre-transaction snapshots: expected versions for the conditional writes
	// and the price-at-purchase. The snapshot may go stale before commit;
	// the conditional write detects and rejects exactly that.
	snaps := make(map[string]*ProductSnapshot, len(items))
	for _, it := range items {
		snap, err := uc.store.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		// Advisory check only; the transaction below stays authoritative.
		if snap.Stock < it.Quantity {
			return nil, &StockError{ProductID: snap.ID, Available: snap.Stock, Requested: it.Quantity}
		}
		snaps[it.ProductID] = snap
	}

	order := &OrderRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    string(domain.StatusConfirmed),
		CreatedAt: time.Now().UTC(),
	}

	err = uc.store.WithinTx(ctx, func(tx CheckoutTx) error {
		for _, it := range items {
			snap := snaps[it.ProductID]

			applied, err := tx.TryAdjustStock(ctx, it.ProductID, snap.Version, -it.Quantity)
			if err != nil {
				return fmt.Errorf("adjust stock %s: %w", it.ProductID, err)
			}
			if !applied {
				return uc.classifyRejection(ctx, tx, snap, it.Quantity)
			}

			order.TotalCents += snap.PriceCents * it.Quantity
			order.Lines = append(order.Lines, OrderLineRecord{
				ProductID:      it.ProductID,
				Quantity:       it.Quantity,
				UnitPriceCents: snap.PriceCents,
			})
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := tx.ClearCart(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

// classifyRejection re-reads the row inside the transaction to tell a stale
// version apart from insufficient stock: both manifest as "zero rows matched"
// on the conditional write.
func (uc *Checkout) classifyRejection(ctx context.Context, tx CheckoutTx, snap *ProductSnapshot, requested int64) error {
	current, err := tx.GetProduct(ctx, snap.ID)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return fmt.Errorf("product %s vanished during checkout: %w", snap.ID, ErrProductNotFound)
		}
		return err
	}
	if current.Version != snap.Version {
		return ErrVersionConflict
	}
	if current.Stock < requested {
		return &StockError{ProductID: snap.ID, Available: current.Stock, Requested: requested}
	}
	return ErrVersionConflict
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrCartNotFound), errors.Is(err, ErrProductNotFound):
		return "not_found"
	default:
		return "error"
	}
}

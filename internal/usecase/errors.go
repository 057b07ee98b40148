package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrEmptyCart        = errors.New("cannot checkout with empty cart")
	ErrProductNotFound  = errors.New("product not found")
	ErrOrderNotFound    = errors.New("order not found")

	// ErrVersionConflict signals a legitimate concurrent modification: the
	// caller must re-fetch state and retry as a new top-level request. It is
	// never retried internally.
	ErrVersionConflict = errors.New("product was modified concurrently, please refresh and retry")

	ErrInsufficientStock = errors.New("insufficient stock")

	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrForbidden         = errors.New("forbidden")
	ErrDuplicate         = errors.New("duplicate idempotency key")
)

// StockError carries the per-product detail behind ErrInsufficientStock.
type StockError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

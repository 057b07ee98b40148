package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidPrice = errors.New("price must be greater than zero")
	ErrInvalidStock = errors.New("stock quantity cannot be negative")
)

// Product carries a monotonic version counter: every stock- or
// catalog-affecting write bumps it by exactly 1. Stock never goes negative.
type Product struct {
	ID         string
	Name       string
	Category   string
	PriceCents int64
	Stock      int64
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p *Product) Validate() error {
	if p.PriceCents <= 0 {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

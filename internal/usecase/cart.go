package usecase

import (
	"context"
	"log/slog"
)

// Cart handles per-user cart mutations. A cart is created lazily on the first
// mutation; a user who never added anything has no cart row.
type Cart struct {
	carts    CartRepo
	products ProductRepo
	log      *slog.Logger
}

func NewCart(carts CartRepo, products ProductRepo, log *slog.Logger) *Cart {
	return &Cart{carts: carts, products: products, log: log}
}

type CartView struct {
	Cart  CartRecord
	Items []CartItemRecord
}

func (uc *Cart) Get(ctx context.Context, userID string) (*CartView, error) {
	cart, err := uc.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := uc.carts.Items(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	return &CartView{Cart: *cart, Items: items}, nil
}

// AddItem merges quantity when the product is already in the cart.
func (uc *Cart) AddItem(ctx context.Context, userID, productID string, quantity int64) (*CartItemRecord, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if _, err := uc.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	cart, err := uc.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.carts.UpsertItem(ctx, cart.ID, productID, quantity)
}

func (uc *Cart) UpdateItem(ctx context.Context, userID, itemID string, quantity int64) (*CartItemRecord, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	cart, err := uc.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	item, err := uc.carts.GetItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}

	// Advisory stock check at read time; checkout re-verifies under the
	// transaction either way.
	product, err := uc.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > product.Stock {
		return nil, &StockError{ProductID: product.ID, Available: product.Stock, Requested: quantity}
	}

	if err := uc.carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
		return nil, err
	}
	item.Quantity = quantity
	return item, nil
}

func (uc *Cart) RemoveItem(ctx context.Context, userID, itemID string) error {
	cart, err := uc.carts.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := uc.carts.GetItem(ctx, cart.ID, itemID); err != nil {
		return err
	}
	return uc.carts.RemoveItem(ctx, cart.ID, itemID)
}

func (uc *Cart) Clear(ctx context.Context, userID string) error {
	cart, err := uc.carts.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	return uc.carts.Clear(ctx, cart.ID)
}

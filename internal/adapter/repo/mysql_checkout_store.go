package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aq2208/goshop-api/internal/usecase"
)

// MySQLCheckoutStore gives the checkout coordinator its transactional view of
// the inventory, cart and order tables. The pre-transaction reads run on the
// pool; WithinTx hands the coordinator a checkoutTx bound to one *sql.Tx so
// the conditional stock writes, the order insert and the cart clear commit or
// roll back together.
type MySQLCheckoutStore struct{ db *sql.DB }

func NewMySQLCheckoutStore(db *sql.DB) *MySQLCheckoutStore { return &MySQLCheckoutStore{db: db} }

func (s *MySQLCheckoutStore) GetCart(ctx context.Context, userID string) (*usecase.CartRecord, error) {
	return getCartByUser(ctx, s.db, userID)
}

func (s *MySQLCheckoutStore) GetCartItems(ctx context.Context, cartID string) ([]usecase.CartItemRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id,cart_id,product_id,quantity FROM cart_items WHERE cart_id=? ORDER BY id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.CartItemRecord
	for rows.Next() {
		var it usecase.CartItemRecord
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *MySQLCheckoutStore) GetProduct(ctx context.Context, productID string) (*usecase.ProductSnapshot, error) {
	return getProductSnapshot(ctx, s.db, productID)
}

func (s *MySQLCheckoutStore) WithinTx(ctx context.Context, fn func(tx usecase.CheckoutTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&checkoutTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type checkoutTx struct{ tx *sql.Tx }

func (t *checkoutTx) TryAdjustStock(ctx context.Context, productID string, expectedVersion, delta int64) (bool, error) {
	return tryAdjustStock(ctx, t.tx, productID, expectedVersion, delta)
}

func (t *checkoutTx) GetProduct(ctx context.Context, productID string) (*usecase.ProductSnapshot, error) {
	return getProductSnapshot(ctx, t.tx, productID)
}

func (t *checkoutTx) CreateOrder(ctx context.Context, o *usecase.OrderRecord) error {
	_, err := t.tx.ExecContext(ctx, `
INSERT INTO orders (id,user_id,status,total_cents,created_at,updated_at)
VALUES (?,?,?,?,?,NOW())`, o.ID, o.UserID, o.Status, o.TotalCents, o.CreatedAt)
	if err != nil {
		return err
	}

	for _, l := range o.Lines {
		_, err := t.tx.ExecContext(ctx, `
INSERT INTO order_items (order_id,product_id,quantity,price_cents_at_purchase)
VALUES (?,?,?,?)`, o.ID, l.ProductID, l.Quantity, l.UnitPriceCents)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *checkoutTx) ClearCart(ctx context.Context, cartID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id=?`, cartID)
	return err
}

var (
	_ usecase.CheckoutStore = (*MySQLCheckoutStore)(nil)
	_ usecase.CheckoutTx    = (*checkoutTx)(nil)
)

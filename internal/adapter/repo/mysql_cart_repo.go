package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/google/uuid"
)

type MySQLCartRepo struct{ db *sql.DB }

func NewMySQLCartRepo(db *sql.DB) *MySQLCartRepo { return &MySQLCartRepo{db: db} }

func (r *MySQLCartRepo) GetByUserID(ctx context.Context, userID string) (*usecase.CartRecord, error) {
	return getCartByUser(ctx, r.db, userID)
}

func getCartByUser(ctx context.Context, q queryer, userID string) (*usecase.CartRecord, error) {
	row := q.QueryRowContext(ctx, `SELECT id,user_id FROM carts WHERE user_id=?`, userID)
	var rec usecase.CartRecord
	err := row.Scan(&rec.ID, &rec.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetOrCreate lazily creates the cart row; user_id is unique, so a racing
// insert loses harmlessly and the follow-up read returns the winner's row.
func (r *MySQLCartRepo) GetOrCreate(ctx context.Context, userID string) (*usecase.CartRecord, error) {
	rec, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, usecase.ErrCartNotFound) {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO carts (id,user_id,created_at) VALUES (?,?,NOW())
ON DUPLICATE KEY UPDATE id=id`, uuid.NewString(), userID)
	if err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

func (r *MySQLCartRepo) Items(ctx context.Context, cartID string) ([]usecase.CartItemRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, p.name, p.price_cents, p.stock_quantity
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id=?
ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.CartItemRecord
	for rows.Next() {
		var it usecase.CartItemRecord
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity, &it.ProductName, &it.UnitPrice, &it.ProductStock); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *MySQLCartRepo) GetItem(ctx context.Context, cartID, itemID string) (*usecase.CartItemRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,cart_id,product_id,quantity FROM cart_items WHERE id=? AND cart_id=?`, itemID, cartID)
	var it usecase.CartItemRecord
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrCartItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *MySQLCartRepo) UpsertItem(ctx context.Context, cartID, productID string, quantity int64) (*usecase.CartItemRecord, error) {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO cart_items (id,cart_id,product_id,quantity)
VALUES (?,?,?,?)
ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		uuid.NewString(), cartID, productID, quantity)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
SELECT id,cart_id,product_id,quantity FROM cart_items WHERE cart_id=? AND product_id=?`, cartID, productID)
	var it usecase.CartItemRecord
	if err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *MySQLCartRepo) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int64) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE cart_items SET quantity=? WHERE id=? AND cart_id=?`, quantity, itemID, cartID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrCartItemNotFound
	}
	return nil
}

func (r *MySQLCartRepo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id=? AND cart_id=?`, itemID, cartID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrCartItemNotFound
	}
	return nil
}

func (r *MySQLCartRepo) Clear(ctx context.Context, cartID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id=?`, cartID)
	return err
}

var _ usecase.CartRepo = (*MySQLCartRepo)(nil)

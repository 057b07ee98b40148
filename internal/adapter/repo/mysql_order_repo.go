package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aq2208/goshop-api/internal/usecase"
)

type MySQLOrderRepo struct{ db *sql.DB }

func NewMySQLOrderRepo(db *sql.DB) *MySQLOrderRepo { return &MySQLOrderRepo{db: db} }

func (r *MySQLOrderRepo) GetByID(ctx context.Context, id string) (*usecase.OrderRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,user_id,status,total_cents,created_at FROM orders WHERE id=?`, id)
	var rec usecase.OrderRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Status, &rec.TotalCents, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	lines, err := r.lines(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Lines = lines
	return &rec, nil
}

func (r *MySQLOrderRepo) lines(ctx context.Context, orderID string) ([]usecase.OrderLineRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT product_id,quantity,price_cents_at_purchase FROM order_items WHERE order_id=? ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []usecase.OrderLineRecord
	for rows.Next() {
		var l usecase.OrderLineRecord
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPriceCents); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *MySQLOrderRepo) ListByUser(ctx context.Context, userID string, page, limit int) (*usecase.OrderPage, error) {
	return r.list(ctx, `WHERE user_id=?`, []any{userID}, page, limit)
}

func (r *MySQLOrderRepo) ListAll(ctx context.Context, status string, page, limit int) (*usecase.OrderPage, error) {
	if status != "" {
		return r.list(ctx, `WHERE status=?`, []any{status}, page, limit)
	}
	return r.list(ctx, ``, nil, page, limit)
}

func (r *MySQLOrderRepo) list(ctx context.Context, where string, args []any, page, limit int) (*usecase.OrderPage, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id,user_id,status,total_cents,created_at FROM orders `+where+`
ORDER BY created_at DESC LIMIT ? OFFSET ?`, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &usecase.OrderPage{Page: page, Limit: limit, Total: total}
	for rows.Next() {
		var rec usecase.OrderRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Status, &rec.TotalCents, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out.Items = append(out.Items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out.Items {
		lines, err := r.lines(ctx, out.Items[i].ID)
		if err != nil {
			return nil, err
		}
		out.Items[i].Lines = lines
	}
	out.Pages = int((total + int64(limit) - 1) / int64(limit))
	return out, nil
}

func (r *MySQLOrderRepo) UpdateStatusIf(ctx context.Context, id, fromStatus, toStatus string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE orders SET status=?, updated_at=NOW() WHERE id=? AND status=?`, toStatus, id, fromStatus)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	// rows == 0 -> nothing matched (either not found or status mismatch)
	return rows > 0, nil
}

var _ usecase.OrderRepo = (*MySQLOrderRepo)(nil)

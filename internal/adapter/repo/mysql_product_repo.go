package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/aq2208/goshop-api/internal/entity"
	"github.com/aq2208/goshop-api/internal/usecase"
)

// execer and queryer are satisfied by both *sql.DB and *sql.Tx so the
// conditional stock write below runs identically inside and outside a
// transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type MySQLProductRepo struct{ db *sql.DB }

func NewMySQLProductRepo(db *sql.DB) *MySQLProductRepo { return &MySQLProductRepo{db: db} }

var sortColumns = map[string]string{
	"name":       "name",
	"price":      "price_cents",
	"created_at": "created_at",
}

func (r *MySQLProductRepo) List(ctx context.Context, f usecase.ProductFilter) (*usecase.ProductPage, error) {
	where := ""
	args := []any{}
	if f.Category != "" {
		where = " WHERE category = ?"
		args = append(args, f.Category)
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "name"
	}
	dir := "ASC"
	if strings.EqualFold(f.SortOrder, "desc") {
		dir = "DESC"
	}

	page, limit := f.Page, f.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(`
SELECT id,name,category,price_cents,stock_quantity,version,created_at,updated_at
FROM products%s ORDER BY %s %s LIMIT ? OFFSET ?`, where, col, dir)
	rows, err := r.db.QueryContext(ctx, q, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := &usecase.ProductPage{Page: page, Limit: limit, Total: total}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out.Items = append(out.Items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out.Pages = int((total + int64(limit) - 1) / int64(limit))
	return out, nil
}

func (r *MySQLProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id,name,category,price_cents,stock_quantity,version,created_at,updated_at
FROM products WHERE id=?`, id)
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MySQLProductRepo) Create(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO products (id,name,category,price_cents,stock_quantity,version,created_at,updated_at)
VALUES (?,?,?,?,?,0,NOW(),NOW())
`, p.ID, p.Name, p.Category, p.PriceCents, p.Stock)
	return err
}

// Update is an administrative overwrite; it still bumps the version so any
// in-flight checkout snapshot of this product is invalidated.
func (r *MySQLProductRepo) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE products
SET name=?, category=?, price_cents=?, stock_quantity=?, version=version+1, updated_at=NOW()
WHERE id=?`, p.Name, p.Category, p.PriceCents, p.Stock, p.ID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrProductNotFound
	}
	return nil
}

func (r *MySQLProductRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return usecase.ErrProductNotFound
	}
	return nil
}

// tryAdjustStock is the optimistic-locking primitive: a single conditional
// UPDATE that mutates (stock, version) iff the version still matches and the
// resulting stock stays non-negative. Zero affected rows means the predicate
// did not hold; the caller re-reads to tell which half failed.
func tryAdjustStock(ctx context.Context, ex execer, productID string, expectedVersion, delta int64) (bool, error) {
	res, err := ex.ExecContext(ctx, `
UPDATE products
SET stock_quantity = stock_quantity + ?, version = version + 1, updated_at = NOW()
WHERE id = ? AND version = ? AND stock_quantity + ? >= 0`,
		delta, productID, expectedVersion, delta,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func getProductSnapshot(ctx context.Context, q queryer, productID string) (*usecase.ProductSnapshot, error) {
	row := q.QueryRowContext(ctx, `
SELECT id,name,price_cents,stock_quantity,version FROM products WHERE id=?`, productID)
	var s usecase.ProductSnapshot
	err := row.Scan(&s.ID, &s.Name, &s.PriceCents, &s.Stock, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, usecase.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

var _ usecase.ProductRepo = (*MySQLProductRepo)(nil)

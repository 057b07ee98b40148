package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domain "github.com/aq2208/goshop-api/internal/entity"
	"github.com/google/uuid"
)

// Catalog serves product reads through the cache and performs the
// administrative writes. Every catalog-affecting write clears the whole
// cached namespace afterwards: read views are filter/pagination-keyed, so
// per-entity invalidation would not reach them anyway.
type Catalog struct {
	products ProductRepo
	cache    CatalogCache
	log      *slog.Logger
}

func NewCatalog(products ProductRepo, cache CatalogCache, log *slog.Logger) *Catalog {
	return &Catalog{products: products, cache: cache, log: log}
}

func (uc *Catalog) List(ctx context.Context, f ProductFilter) (*ProductPage, error) {
	key := listKey(f)

	var cached ProductPage
	if uc.cache != nil {
		if hit, err := uc.cache.Get(ctx, key, &cached); err != nil {
			uc.log.Warn("catalog cache get failed", "key", key, "err", err)
		} else if hit {
			return &cached, nil
		}
	}

	page, err := uc.products.List(ctx, f)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, page); err != nil {
			uc.log.Warn("catalog cache set failed", "key", key, "err", err)
		}
	}
	return page, nil
}

func (uc *Catalog) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return uc.products.GetByID(ctx, id)
}

func (uc *Catalog) Create(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Version = 0
	if err := uc.products.Create(ctx, p); err != nil {
		return nil, err
	}
	uc.invalidate(ctx)
	return p, nil
}

func (uc *Catalog) Update(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := uc.products.GetByID(ctx, p.ID); err != nil {
		return nil, err
	}
	if err := uc.products.Update(ctx, p); err != nil {
		return nil, err
	}
	uc.invalidate(ctx)
	return uc.products.GetByID(ctx, p.ID)
}

func (uc *Catalog) Delete(ctx context.Context, id string) error {
	if _, err := uc.products.GetByID(ctx, id); err != nil {
		return err
	}
	if err := uc.products.Delete(ctx, id); err != nil {
		return err
	}
	uc.invalidate(ctx)
	return nil
}

// invalidate is best-effort: a failure leaves stale read views behind until
// TTL expiry, never a failed write.
func (uc *Catalog) invalidate(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx); err != nil {
		uc.log.Warn("catalog cache invalidation failed", "err", err)
	}
}

func listKey(f ProductFilter) string {
	return fmt.Sprintf("list:%s:%s:%s:%d:%d", f.Category, f.SortBy, f.SortOrder, f.Page, f.Limit)
}

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aq2208/goshop-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// Namespace prefix for all cached catalog read views. Invalidation clears
// everything under it: list results are filter/pagination-keyed, so selective
// per-product invalidation could never find them.
const catalogNamespace = "products:"

type RedisCatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCatalogCache(rdb *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCatalogCache) Get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := c.rdb.Get(ctx, catalogNamespace+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisCatalogCache) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, catalogNamespace+key, raw, c.ttl).Err()
}

// Invalidate deletes every key under the namespace. SCAN instead of KEYS so a
// shared Redis is not blocked.
func (c *RedisCatalogCache) Invalidate(ctx context.Context) error {
	iter := c.rdb.Scan(ctx, 0, catalogNamespace+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

var _ usecase.CatalogCache = (*RedisCatalogCache)(nil)

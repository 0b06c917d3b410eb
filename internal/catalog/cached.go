package catalog

import (
	"context"
	"encoding/json"
	"time"

	"storefront-restock-api/internal/cache"
	"storefront-restock-api/internal/model"

	"go.uber.org/zap"
)

// CachedCatalog caches product lookups. Cache failures fall through to the
// underlying catalog; unknown products are not cached.
type CachedCatalog struct {
	next   Lookup
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedCatalog wraps next with c.
func NewCachedCatalog(next Lookup, c cache.Cache, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedCatalog{next: next, cache: c, ttl: ttl, logger: logger.Named("catalog_cache")}
}

func productKey(id string) string { return "product:" + id }

// Lookup returns the product, preferring the cache.
func (c *CachedCatalog) Lookup(ctx context.Context, productID string) (*model.Product, error) {
	if data, err := c.cache.Get(ctx, productKey(productID)); err == nil {
		var p model.Product
		if err := json.Unmarshal(data, &p); err == nil {
			return &p, nil
		}
		_ = c.cache.Delete(ctx, productKey(productID))
	}

	p, err := c.next.Lookup(ctx, productID)
	if err != nil || p == nil {
		return p, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.cache.Set(ctx, productKey(productID), data, c.ttl); err != nil {
			c.logger.Warn("cache set failed", zap.String("product_id", productID), zap.Error(err))
		}
	}
	return p, nil
}

// List is not cached; it drives backfill and reconciliation which need the
// current catalog.
func (c *CachedCatalog) List(ctx context.Context) ([]model.Product, error) {
	return c.next.List(ctx)
}

var _ Lookup = (*CachedCatalog)(nil)

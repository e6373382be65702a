package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ProductCache holds the rendered default storefront listing under
// KeyCatalogProducts.
type ProductCache struct{ R *redis.Client }

func (c *ProductCache) Get(ctx context.Context) ([]byte, error) {
	return c.R.Get(ctx, KeyCatalogProducts).Bytes()
}

func (c *ProductCache) Set(ctx context.Context, payload []byte) error {
	return c.R.Set(ctx, KeyCatalogProducts, payload, TTLCatalog).Err()
}

func (c *ProductCache) Drop(ctx context.Context) error {
	return c.R.Del(ctx, KeyCatalogProducts).Err()
}

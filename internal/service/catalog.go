package service

import (
	"context"

	"inventory-service/internal/models"
	"inventory-service/internal/store"
)

// CachedCatalog is the read-only product view served over HTTP. Single
// product reads overlay the cached quantity so another instance's sale is
// visible before the next database read. stockCache may be nil.
type CachedCatalog struct {
	store      *store.Store
	stockCache *StockCache
}

// NewCachedCatalog creates a new cached catalog
func NewCachedCatalog(store *store.Store, stockCache *StockCache) *CachedCatalog {
	return &CachedCatalog{store: store, stockCache: stockCache}
}

// GetProducts lists the catalog from the database.
func (c *CachedCatalog) GetProducts(ctx context.Context) ([]models.Product, error) {
	return c.store.GetProducts(ctx)
}

// GetProductByID retrieves one product, preferring the cached stock level.
func (c *CachedCatalog) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, err := c.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if c.stockCache != nil {
		if quantity, threshold, err := c.stockCache.Get(ctx, id); err == nil {
			product.Quantity = quantity
			product.LowStockThreshold = threshold
		}
	}
	return product, nil
}

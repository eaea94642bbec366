package service

import (
	"context"
	"fmt"

	"inventory-service/internal/models"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// StockCache mirrors on-hand quantities into Redis so the dashboard can
// read stock levels and the low-stock set without touching Postgres. The
// database stays the source of truth; the cache is refreshed at startup and
// after every sale.
type StockCache struct {
	store  *store.Store
	redis  *redisclient.Client
	logger *zap.Logger
}

// NewStockCache creates a new stock cache
func NewStockCache(store *store.Store, redis *redisclient.Client) *StockCache {
	return &StockCache{
		store:  store,
		redis:  redis,
		logger: util.GetLogger(),
	}
}

// SyncAll loads every product's quantity into the cache and rebuilds the
// low-stock set.
func (sc *StockCache) SyncAll(ctx context.Context) error {
	sc.logger.Info("Starting stock sync to Redis")

	products, err := sc.store.GetProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	for _, product := range products {
		if err := sc.redis.SetStock(ctx, product.ID, product.Quantity, product.LowStockThreshold); err != nil {
			sc.logger.Error("Failed to cache stock",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
			continue
		}

		if product.LowStock() {
			err = sc.redis.MarkLowStock(ctx, product.ID)
		} else {
			err = sc.redis.ClearLowStock(ctx, product.ID)
		}
		if err != nil {
			sc.logger.Error("Failed to update low-stock set",
				zap.Int64("product_id", product.ID),
				zap.Error(err))
		}
	}

	sc.logger.Info("Stock sync completed", zap.Int("count", len(products)))
	return nil
}

// Apply refreshes the cache with post-sale stock levels. Cache failures are
// logged, never surfaced; the sale has already committed.
func (sc *StockCache) Apply(ctx context.Context, levels []models.StockLevel) {
	for _, level := range levels {
		if err := sc.redis.SetStock(ctx, level.ProductID, level.Remaining, level.LowStockThreshold); err != nil {
			sc.logger.Error("Failed to refresh stock cache",
				zap.Int64("product_id", level.ProductID),
				zap.Error(err))
			continue
		}

		var err error
		if level.Low() {
			err = sc.redis.MarkLowStock(ctx, level.ProductID)
		} else {
			err = sc.redis.ClearLowStock(ctx, level.ProductID)
		}
		if err != nil {
			sc.logger.Error("Failed to update low-stock set",
				zap.Int64("product_id", level.ProductID),
				zap.Error(err))
		}
	}
}

// MarkLow flags a product in the low-stock set; used by the stock alert
// worker when it observes a LowStock event.
func (sc *StockCache) MarkLow(ctx context.Context, productID int64) error {
	return sc.redis.MarkLowStock(ctx, productID)
}

// RefreshProducts re-reads the given products from the database and rewrites
// their cache entries; used when another instance's sale is observed on the
// event stream.
func (sc *StockCache) RefreshProducts(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	products, err := sc.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to get products: %w", err)
	}

	levels := make([]models.StockLevel, 0, len(products))
	for _, product := range products {
		levels = append(levels, models.StockLevel{
			ProductID:         product.ID,
			SKU:               product.SKU,
			Name:              product.Name,
			Remaining:         product.Quantity,
			LowStockThreshold: product.LowStockThreshold,
		})
	}
	sc.Apply(ctx, levels)
	return nil
}

// LowProducts resolves the cached low-stock set to full product rows.
func (sc *StockCache) LowProducts(ctx context.Context) ([]models.Product, error) {
	ids, err := sc.redis.LowStockProductIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	return sc.store.GetProductsByIDs(ctx, ids)
}

// Get reads a product's cached quantity and threshold.
func (sc *StockCache) Get(ctx context.Context, productID int64) (quantity, threshold int, err error) {
	return sc.redis.GetStock(ctx, productID)
}

package service

import (
	"context"
	"time"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/store"
)

// ReportStore is the aggregation surface consumed by the dashboard.
type ReportStore interface {
	SalesSummary(ctx context.Context, userID int64) ([]store.DailySales, error)
	HighestSellingProduct(ctx context.Context) (*store.TopProduct, error)
	Profit(ctx context.Context, since time.Time, userID int64) (int64, error)
	Revenue(ctx context.Context, since time.Time, userID int64) (int64, error)
	CountBills(ctx context.Context, userID int64) (int64, error)
	LowStockProducts(ctx context.Context) ([]models.Product, error)
}

// DashboardService reads the ledger and catalog to produce summaries.
// Admins see the whole business; other users see their own figures.
type DashboardService struct {
	store      ReportStore
	stockCache *StockCache
}

// NewDashboardService creates a new dashboard service. stockCache may be
// nil; low-stock queries then go straight to the database.
func NewDashboardService(store ReportStore, stockCache *StockCache) *DashboardService {
	return &DashboardService{store: store, stockCache: stockCache}
}

// SalesSummary returns per-day sales totals.
func (s *DashboardService) SalesSummary(ctx context.Context, actor auth.Actor) ([]store.DailySales, error) {
	if actor.IsAdmin() {
		return s.store.SalesSummary(ctx, 0)
	}
	return s.store.SalesSummary(ctx, actor.UserID)
}

// TopProduct returns the highest-selling product, or nil when no sales
// exist yet.
func (s *DashboardService) TopProduct(ctx context.Context) (*store.TopProduct, error) {
	return s.store.HighestSellingProduct(ctx)
}

// ProfitResult is the outcome of a profit query. Non-admin actors see their
// own revenue instead of business profit.
type ProfitResult struct {
	Total int64  `json:"total"`
	Kind  string `json:"kind"` // "profit" or "revenue"
	Since string `json:"since"`
}

// Profit computes profit (admin, from snapshotted cost prices) or the
// actor's own revenue over the given range: today, week, month or year.
func (s *DashboardService) Profit(ctx context.Context, rangeName string, actor auth.Actor) (*ProfitResult, error) {
	since, err := rangeStart(rangeName, time.Now())
	if err != nil {
		return nil, err
	}

	result := &ProfitResult{Since: since.Format(time.RFC3339)}
	if actor.IsAdmin() {
		result.Kind = "profit"
		result.Total, err = s.store.Profit(ctx, since, 0)
	} else {
		result.Kind = "revenue"
		result.Total, err = s.store.Revenue(ctx, since, actor.UserID)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// TotalBills counts bills visible to the actor.
func (s *DashboardService) TotalBills(ctx context.Context, actor auth.Actor) (int64, error) {
	if actor.IsAdmin() {
		return s.store.CountBills(ctx, 0)
	}
	return s.store.CountBills(ctx, actor.UserID)
}

// LowStock lists products at or below their replenishment threshold. The
// cached low-stock set is preferred; the database answers when the cache is
// unavailable.
func (s *DashboardService) LowStock(ctx context.Context) ([]models.Product, error) {
	if s.stockCache != nil {
		products, err := s.stockCache.LowProducts(ctx)
		if err == nil {
			return products, nil
		}
	}
	return s.store.LowStockProducts(ctx)
}

func rangeStart(rangeName string, now time.Time) (time.Time, error) {
	switch rangeName {
	case "week":
		return now.AddDate(0, 0, -7), nil
	case "month":
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	case "year":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location()), nil
	case "", "today":
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	return time.Time{}, &models.InvalidInputError{Field: "range", Reason: "must be today, week, month or year"}
}

var _ ReportStore = (*store.Store)(nil)

package store

import (
	"context"
	"database/sql"
	"time"

	"inventory-service/internal/models"
)

// DailySales is one row of the per-day sales summary
type DailySales struct {
	Date        time.Time `db:"day" json:"date"`
	GeneratedBy string    `db:"generated_by" json:"generated_by"`
	TotalSales  int64     `db:"total_sales" json:"total_sales"`
}

// TopProduct is the highest-selling product by quantity
type TopProduct struct {
	Name      string `db:"name" json:"name"`
	TotalSold int64  `db:"total_sold" json:"total_sold"`
}

// SalesSummary aggregates bill totals per day and cashier. A zero userID
// covers all bills.
func (s *Store) SalesSummary(ctx context.Context, userID int64) ([]DailySales, error) {
	query := `
		SELECT date_trunc('day', created_at) AS day, generated_by, SUM(total_amount) AS total_sales
		FROM bills
		GROUP BY day, generated_by
		ORDER BY day`

	var rows []DailySales
	if userID == 0 {
		err := s.db.SelectContext(ctx, &rows, query)
		return rows, err
	}

	err := s.db.SelectContext(ctx, &rows, `
		SELECT date_trunc('day', created_at) AS day, generated_by, SUM(total_amount) AS total_sales
		FROM bills
		WHERE user_id = $1
		GROUP BY day, generated_by
		ORDER BY day`, userID)
	return rows, err
}

// HighestSellingProduct returns the product with the largest total quantity
// sold across all bills, or nil when nothing has sold yet.
func (s *Store) HighestSellingProduct(ctx context.Context) (*TopProduct, error) {
	var top TopProduct
	err := s.db.GetContext(ctx, &top, `
		SELECT name, SUM(quantity) AS total_sold
		FROM bill_items
		GROUP BY name
		ORDER BY total_sold DESC
		LIMIT 1`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &top, nil
}

// Profit sums (unit price - cost price) * quantity over bills created at or
// after since. Cost prices are the snapshots captured at sale time, so later
// catalog changes do not rewrite history. A zero userID covers all bills.
func (s *Store) Profit(ctx context.Context, since time.Time, userID int64) (int64, error) {
	var total int64
	if userID == 0 {
		err := s.db.GetContext(ctx, &total, `
			SELECT COALESCE(SUM((bi.unit_price - bi.cost_price) * bi.quantity), 0)
			FROM bill_items bi
			JOIN bills b ON b.id = bi.bill_id
			WHERE b.created_at >= $1`, since)
		return total, err
	}

	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM((bi.unit_price - bi.cost_price) * bi.quantity), 0)
		FROM bill_items bi
		JOIN bills b ON b.id = bi.bill_id
		WHERE b.created_at >= $1 AND b.user_id = $2`, since, userID)
	return total, err
}

// Revenue sums line totals over bills created at or after since for one
// user; non-admin callers see their sales volume instead of profit.
func (s *Store) Revenue(ctx context.Context, since time.Time, userID int64) (int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(bi.unit_price * bi.quantity), 0)
		FROM bill_items bi
		JOIN bills b ON b.id = bi.bill_id
		WHERE b.created_at >= $1 AND b.user_id = $2`, since, userID)
	return total, err
}

// CountBills counts bills, optionally restricted to one user.
func (s *Store) CountBills(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if userID == 0 {
		err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM bills")
		return count, err
	}
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM bills WHERE user_id = $1", userID)
	return count, err
}

// LowStockProducts lists products at or below their replenishment threshold.
func (s *Store) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE quantity <= low_stock_threshold ORDER BY quantity")
	return products, err
}

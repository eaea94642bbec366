package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"inventory-service/internal/models"
)

// CreateBill persists a bill and its stock decrements as one transaction:
// all referenced product rows are locked in ascending ID order, every line
// is validated against on-hand stock, and only then are the decrements,
// inventory log rows, bill and bill items written. Any failing line aborts
// the whole sale and leaves inventory untouched.
//
// The returned levels carry each product's post-sale quantity for low-stock
// signalling.
func (s *Store) CreateBill(ctx context.Context, bill *models.Bill, items []models.BillItem) ([]models.StockLevel, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// aggregate requested quantities; the same product may appear on
	// several lines
	needed := make(map[int64]int, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, seen := needed[item.ProductID]; !seen {
			ids = append(ids, item.ProductID)
		}
		needed[item.ProductID] += item.Quantity
	}
	// deterministic lock order avoids deadlocks between concurrent sales
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	type lockedRow struct {
		ID                int64  `db:"id"`
		SKU               string `db:"sku"`
		Name              string `db:"name"`
		Quantity          int    `db:"quantity"`
		LowStockThreshold int    `db:"low_stock_threshold"`
	}

	locked := make(map[int64]lockedRow, len(ids))
	for _, id := range ids {
		var row lockedRow
		err := tx.GetContext(ctx, &row,
			"SELECT id, sku, name, quantity, low_stock_threshold FROM products WHERE id = $1 FOR UPDATE", id)
		if err == sql.ErrNoRows {
			return nil, &models.NotFoundError{Kind: "product", ID: id}
		}
		if err != nil {
			return nil, err
		}
		locked[id] = row
	}

	// validate every line before mutating anything
	for _, id := range ids {
		row := locked[id]
		if row.Quantity < needed[id] {
			return nil, &models.InsufficientStockError{
				ProductID:   id,
				ProductName: row.Name,
				Available:   row.Quantity,
				Requested:   needed[id],
			}
		}
	}

	levels := make([]models.StockLevel, 0, len(ids))
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET quantity = quantity - $1, updated_at = NOW() WHERE id = $2 AND quantity >= $1",
			needed[id], id)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			// cannot happen while the row lock is held, but never
			// commit a decrement that did not apply
			row := locked[id]
			return nil, &models.InsufficientStockError{
				ProductID:   id,
				ProductName: row.Name,
				Available:   row.Quantity,
				Requested:   needed[id],
			}
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO inventory_log (product_id, change, reason) VALUES ($1, $2, $3)",
			id, -needed[id], models.StockReasonSale)
		if err != nil {
			return nil, err
		}

		row := locked[id]
		levels = append(levels, models.StockLevel{
			ProductID:         id,
			SKU:               row.SKU,
			Name:              row.Name,
			Remaining:         row.Quantity - needed[id],
			LowStockThreshold: row.LowStockThreshold,
		})
	}

	query := `
		INSERT INTO bills (invoice_number, customer_name, customer_phone, total_amount, user_id, generated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err = tx.GetContext(ctx, bill, query,
		bill.InvoiceNumber, bill.CustomerName, bill.CustomerPhone,
		bill.TotalAmount, bill.UserID, bill.GeneratedBy)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].BillID = bill.ID
		err := tx.GetContext(ctx, &items[i].ID,
			`INSERT INTO bill_items (bill_id, product_id, name, unit_price, cost_price, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			items[i].BillID, items[i].ProductID, items[i].Name,
			items[i].UnitPrice, items[i].CostPrice, items[i].Quantity)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return levels, nil
}

// GetBillByID retrieves a bill with its line items
func (s *Store) GetBillByID(ctx context.Context, id int64) (*models.Bill, []models.BillItem, error) {
	var bill models.Bill
	err := s.db.GetContext(ctx, &bill, "SELECT * FROM bills WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil, &models.NotFoundError{Kind: "bill", ID: id}
	}
	if err != nil {
		return nil, nil, err
	}

	var items []models.BillItem
	err = s.db.SelectContext(ctx, &items,
		"SELECT * FROM bill_items WHERE bill_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, nil, err
	}
	return &bill, items, nil
}

// GetBillByInvoiceNumber retrieves a bill by its invoice number
func (s *Store) GetBillByInvoiceNumber(ctx context.Context, invoiceNumber string) (*models.Bill, error) {
	var bill models.Bill
	err := s.db.GetContext(ctx, &bill,
		"SELECT * FROM bills WHERE invoice_number = $1", invoiceNumber)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bill %s: %w", invoiceNumber, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// ListBills retrieves bills, newest first. A zero userID lists all bills.
func (s *Store) ListBills(ctx context.Context, userID int64) ([]models.Bill, error) {
	var bills []models.Bill
	if userID == 0 {
		err := s.db.SelectContext(ctx, &bills,
			"SELECT * FROM bills ORDER BY created_at DESC")
		return bills, err
	}
	err := s.db.SelectContext(ctx, &bills,
		"SELECT * FROM bills WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return bills, err
}

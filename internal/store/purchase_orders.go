package store

import (
	"context"
	"database/sql"

	"inventory-service/internal/models"
)

// CreatePurchaseOrder creates a new purchase order in the pending state
func (s *Store) CreatePurchaseOrder(ctx context.Context, order *models.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (product_name, quantity, shipping_address, seller_name, created_by, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return s.db.GetContext(ctx, order, query,
		order.ProductName, order.Quantity, order.ShippingAddress,
		order.SellerName, order.CreatedBy, order.Status)
}

// GetPurchaseOrderByID retrieves a purchase order by ID
func (s *Store) GetPurchaseOrderByID(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.GetContext(ctx, &order, "SELECT * FROM purchase_orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Kind: "purchase order", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionPurchaseOrder moves an order out of pending. The status check is
// part of the UPDATE predicate, so two racing transitions cannot both win;
// the loser sees zero rows and reports an invalid transition.
func (s *Store) TransitionPurchaseOrder(ctx context.Context, id int64, from, to string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.GetContext(ctx, &order,
		`UPDATE purchase_orders SET status = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3
		 RETURNING *`,
		to, id, from)
	if err == sql.ErrNoRows {
		current, getErr := s.GetPurchaseOrderByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &models.InvalidTransitionError{OrderID: id, From: current.Status, To: to}
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListPurchaseOrders retrieves orders joined with creator details, newest
// first. A zero createdBy lists all orders.
func (s *Store) ListPurchaseOrders(ctx context.Context, createdBy int64) ([]models.PurchaseOrderView, error) {
	query := `
		SELECT po.*, u.name AS creator_name, u.email AS creator_email
		FROM purchase_orders po
		JOIN users u ON u.id = po.created_by
		ORDER BY po.created_at DESC`

	var orders []models.PurchaseOrderView
	if createdBy == 0 {
		err := s.db.SelectContext(ctx, &orders, query)
		return orders, err
	}

	err := s.db.SelectContext(ctx, &orders, `
		SELECT po.*, u.name AS creator_name, u.email AS creator_email
		FROM purchase_orders po
		JOIN users u ON u.id = po.created_by
		WHERE po.created_by = $1
		ORDER BY po.created_at DESC`, createdBy)
	return orders, err
}

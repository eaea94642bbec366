package models

import "time"

// Product represents a catalog product with its on-hand stock
type Product struct {
	ID                int64     `db:"id" json:"id"`
	SKU               string    `db:"sku" json:"sku"`
	Name              string    `db:"name" json:"name"`
	CategoryID        int64     `db:"category_id" json:"category_id"`
	SupplierID        int64     `db:"supplier_id" json:"supplier_id"`
	Price             int64     `db:"price" json:"price"`
	CostPrice         int64     `db:"cost_price" json:"cost_price"`
	Quantity          int       `db:"quantity" json:"quantity"`
	LowStockThreshold int       `db:"low_stock_threshold" json:"low_stock_threshold"`
	ImageURL          string    `db:"image_url" json:"image_url,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// LowStock reports whether on-hand quantity is at or below the threshold.
func (p *Product) LowStock() bool {
	return p.Quantity <= p.LowStockThreshold
}

// Bill is an immutable record of a completed sale. Line items snapshot the
// product's price and cost price at the time of sale.
type Bill struct {
	ID            int64     `db:"id" json:"id"`
	InvoiceNumber string    `db:"invoice_number" json:"invoice_number"`
	CustomerName  string    `db:"customer_name" json:"customer_name"`
	CustomerPhone string    `db:"customer_phone" json:"customer_phone"`
	TotalAmount   int64     `db:"total_amount" json:"total_amount"`
	UserID        int64     `db:"user_id" json:"user_id"`
	GeneratedBy   string    `db:"generated_by" json:"generated_by"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// BillItem is one line of a bill
type BillItem struct {
	ID        int64  `db:"id" json:"id"`
	BillID    int64  `db:"bill_id" json:"bill_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	CostPrice int64  `db:"cost_price" json:"cost_price"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

// PurchaseOrder is a request to acquire stock from a supplier, tracked
// through an approval workflow. Quantity and address are fixed after
// creation; only the status moves.
type PurchaseOrder struct {
	ID              int64     `db:"id" json:"id"`
	ProductName     string    `db:"product_name" json:"product_name"`
	Quantity        int       `db:"quantity" json:"quantity"`
	ShippingAddress string    `db:"shipping_address" json:"shipping_address"`
	SellerName      string    `db:"seller_name" json:"seller_name"`
	CreatedBy       int64     `db:"created_by" json:"created_by"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// PurchaseOrderView is a purchase order joined with its creator's details
type PurchaseOrderView struct {
	PurchaseOrder
	CreatorName  string `db:"creator_name" json:"creator_name"`
	CreatorEmail string `db:"creator_email" json:"creator_email"`
}

// Supplier is a reference entity used by the catalog and by the
// send-to-seller notification handoff
type Supplier struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Contact   string    `db:"contact" json:"contact"`
	Email     string    `db:"email" json:"email"`
	Address   string    `db:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Category is a reference entity for product grouping
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// User is a read-only view of an account; identity normally arrives via the
// auth token, the table backs creator lookups on listings
type User struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"name" json:"name"`
	Email   string `db:"email" json:"email"`
	Role    string `db:"role" json:"role"`
	Enabled bool   `db:"enabled" json:"enabled"`
}

// InventoryLog records a single stock movement
type InventoryLog struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Change    int       `db:"change" json:"change"`
	Reason    string    `db:"reason" json:"reason"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StockLevel reports a product's on-hand quantity after a mutation
type StockLevel struct {
	ProductID         int64  `json:"product_id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	Remaining         int    `json:"remaining"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// Low reports whether the level is at or below the product's threshold.
func (l StockLevel) Low() bool {
	return l.Remaining <= l.LowStockThreshold
}

// Purchase order statuses
const (
	OrderStatusPending      = "pending"
	OrderStatusApproved     = "approved"
	OrderStatusRejected     = "rejected"
	OrderStatusSentToSeller = "sent_to_seller"
	OrderStatusCancelled    = "cancelled"
)

// ValidOrderStatus reports whether s is a known purchase order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusRejected,
		OrderStatusSentToSeller, OrderStatusCancelled:
		return true
	}
	return false
}

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultSellerName is used when a purchase order omits the seller.
const DefaultSellerName = "Unknown Seller"

// StockReasonSale is the inventory log reason recorded for sale decrements.
const StockReasonSale = "sale"

package models

import "time"

// Event types
const (
	EventTypeBillCreated        = "BILL_CREATED"
	EventTypeLowStock           = "LOW_STOCK"
	EventTypeOrderCreated       = "PURCHASE_ORDER_CREATED"
	EventTypeOrderStatusChanged = "PURCHASE_ORDER_STATUS_CHANGED"
	EventTypeSupplierNotify     = "SUPPLIER_NOTIFICATION_REQUESTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// BillCreatedEvent published after a sale commits
type BillCreatedEvent struct {
	BaseEvent
	BillID        int64          `json:"bill_id"`
	InvoiceNumber string         `json:"invoice_number"`
	UserID        int64          `json:"user_id"`
	TotalAmount   int64          `json:"total_amount"`
	Items         []BillItemData `json:"items"`
}

// LowStockEvent published when a sale drops a product to or below its
// replenishment threshold
type LowStockEvent struct {
	BaseEvent
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Remaining int    `json:"remaining"`
	Threshold int    `json:"threshold"`
}

// OrderCreatedEvent published when a purchase order enters the workflow
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	CreatedBy   int64  `json:"created_by"`
}

// OrderStatusChangedEvent published on every purchase order transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	ActorID int64  `json:"actor_id"`
}

// SupplierNotifyEvent hands an order plus resolved supplier contact to the
// notification collaborator; delivery happens outside this service
type SupplierNotifyEvent struct {
	BaseEvent
	OrderID         int64  `json:"order_id"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	ShippingAddress string `json:"shipping_address"`
	SellerName      string `json:"seller_name"`
	SupplierName    string `json:"supplier_name,omitempty"`
	SupplierContact string `json:"supplier_contact,omitempty"`
	SupplierEmail   string `json:"supplier_email,omitempty"`
}

// BillItemData represents line item data in events
type BillItemData struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
}

package service

import (
	"context"
	"fmt"

	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// Notifier delivers a supplier notification. Actual delivery channels
// (messaging, email) live outside this service; implementations here only
// hand the composed payload over.
type Notifier interface {
	NotifySupplier(ctx context.Context, event *models.SupplierNotifyEvent) error
}

// LogNotifier composes the supplier message and logs it. It stands in for a
// real delivery integration and keeps the handoff observable.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a logging notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: util.GetLogger()}
}

// NotifySupplier composes and logs the supplier message.
func (n *LogNotifier) NotifySupplier(ctx context.Context, event *models.SupplierNotifyEvent) error {
	message := ComposeSupplierMessage(event)

	n.logger.Info("Supplier notification",
		zap.Int64("order_id", event.OrderID),
		zap.String("supplier_contact", event.SupplierContact),
		zap.String("message", message))
	return nil
}

// ComposeSupplierMessage renders the order summary sent to a supplier when
// an order moves to sent_to_seller.
func ComposeSupplierMessage(event *models.SupplierNotifyEvent) string {
	name := event.SupplierName
	if name == "" {
		name = event.SellerName
	}
	return fmt.Sprintf(
		"Hello %s,\n\nNew Order:\nProduct: %s\nQuantity: %d\nShipping Address: %s\nPlease process this order.",
		name, event.ProductName, event.Quantity, event.ShippingAddress)
}

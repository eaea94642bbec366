package worker

import (
	"context"
	"log"

	"inventory-service/internal/broker"
	"inventory-service/internal/models"
	"inventory-service/internal/service"
)

// NotificationWorker consumes purchase order events and hands supplier
// notifications to the configured notifier
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, notifier service.Notifier) *NotificationWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnSupplierNotify(func(ctx context.Context, event *models.SupplierNotifyEvent) error {
		return notifier.NotifySupplier(ctx, event)
	})

	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	log.Println("Starting notification worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	log.Println("Stopping notification worker...")
	return w.consumer.Close()
}

// StockAlertWorker consumes sale events and maintains the low-stock set
// observed by the dashboard
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, stockCache *service.StockCache) *StockAlertWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnLowStock(func(ctx context.Context, event *models.LowStockEvent) error {
		log.Printf("Low stock alert: product=%s remaining=%d threshold=%d",
			event.Name, event.Remaining, event.Threshold)
		return stockCache.MarkLow(ctx, event.ProductID)
	})
	eventHandler.OnBillCreated(func(ctx context.Context, event *models.BillCreatedEvent) error {
		// a sale on another instance moved stock; re-read the rows it touched
		ids := make([]int64, 0, len(event.Items))
		for _, item := range event.Items {
			ids = append(ids, item.ProductID)
		}
		return stockCache.RefreshProducts(ctx, ids)
	})

	return &StockAlertWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	log.Println("Starting stock alert worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	log.Println("Stopping stock alert worker...")
	return w.consumer.Close()
}

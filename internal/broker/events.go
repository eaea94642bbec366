package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"inventory-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishBillCreated publishes a BillCreated event
func (ep *EventPublisher) PublishBillCreated(ctx context.Context, event *models.BillCreatedEvent) error {
	key := fmt.Sprintf("bill-%d", event.BillID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishLowStock publishes a LowStock event
func (ep *EventPublisher) PublishLowStock(ctx context.Context, event *models.LowStockEvent) error {
	key := fmt.Sprintf("product-%d", event.ProductID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderCreated publishes a PurchaseOrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("purchase-order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderStatusChanged publishes a PurchaseOrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	key := fmt.Sprintf("purchase-order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSupplierNotify publishes a SupplierNotificationRequested event
func (ep *EventPublisher) PublishSupplierNotify(ctx context.Context, event *models.SupplierNotifyEvent) error {
	key := fmt.Sprintf("purchase-order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onSupplierNotify func(context.Context, *models.SupplierNotifyEvent) error
	onLowStock       func(context.Context, *models.LowStockEvent) error
	onBillCreated    func(context.Context, *models.BillCreatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSupplierNotify registers a handler for SupplierNotificationRequested events
func (eh *EventHandler) OnSupplierNotify(handler func(context.Context, *models.SupplierNotifyEvent) error) {
	eh.onSupplierNotify = handler
}

// OnLowStock registers a handler for LowStock events
func (eh *EventHandler) OnLowStock(handler func(context.Context, *models.LowStockEvent) error) {
	eh.onLowStock = handler
}

// OnBillCreated registers a handler for BillCreated events
func (eh *EventHandler) OnBillCreated(handler func(context.Context, *models.BillCreatedEvent) error) {
	eh.onBillCreated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeSupplierNotify:
		if eh.onSupplierNotify != nil {
			var event models.SupplierNotifyEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SupplierNotify event: %w", err)
			}
			return eh.onSupplierNotify(ctx, &event)
		}

	case models.EventTypeLowStock:
		if eh.onLowStock != nil {
			var event models.LowStockEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal LowStock event: %w", err)
			}
			return eh.onLowStock(ctx, &event)
		}

	case models.EventTypeBillCreated:
		if eh.onBillCreated != nil {
			var event models.BillCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal BillCreated event: %w", err)
			}
			return eh.onBillCreated(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}

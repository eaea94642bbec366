package service

import (
	"context"
	"errors"
	"strings"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// PurchaseOrderStore is the persistence surface of the purchase order
// engine.
type PurchaseOrderStore interface {
	CreatePurchaseOrder(ctx context.Context, order *models.PurchaseOrder) error
	GetPurchaseOrderByID(ctx context.Context, id int64) (*models.PurchaseOrder, error)
	TransitionPurchaseOrder(ctx context.Context, id int64, from, to string) (*models.PurchaseOrder, error)
	ListPurchaseOrders(ctx context.Context, createdBy int64) ([]models.PurchaseOrderView, error)
	ProductExistsByName(ctx context.Context, name string) (bool, error)
	GetSupplierByName(ctx context.Context, name string) (*models.Supplier, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// PurchaseEventPublisher publishes purchase-order domain events.
type PurchaseEventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishSupplierNotify(ctx context.Context, event *models.SupplierNotifyEvent) error
}

// PurchaseService manages the purchase order lifecycle: pending orders move
// to approved, rejected or sent_to_seller by an admin, or to cancelled by
// their own creator. Every other transition is refused.
type PurchaseService struct {
	store     PurchaseOrderStore
	publisher PurchaseEventPublisher
	logger    *zap.Logger
}

// NewPurchaseService creates a new purchase order service. publisher may be
// nil; events are then skipped.
func NewPurchaseService(store PurchaseOrderStore, publisher PurchaseEventPublisher) *PurchaseService {
	return &PurchaseService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create a purchase order
type CreateOrderRequest struct {
	ProductName     string `json:"product_name" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required,min=1"`
	ShippingAddress string `json:"shipping_address" binding:"required"`
	SellerName      string `json:"seller_name,omitempty"`
}

// OrderResponse is a purchase order plus the catalog_linked flag: the
// product name is deliberately freeform, so callers are told explicitly
// whether it matches a catalog product.
type OrderResponse struct {
	Order         models.PurchaseOrder `json:"order"`
	CatalogLinked bool                 `json:"catalog_linked"`
}

// CreateOrder creates a purchase order in the pending state, owned by the
// actor.
func (s *PurchaseService) CreateOrder(ctx context.Context, req *CreateOrderRequest, actor auth.Actor) (*OrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.CreateOrder")
	defer span.End()

	if err := auth.Authorize(actor, auth.ActionCreateOrder, auth.Resource{}); err != nil {
		return nil, err
	}
	if err := validateCreateOrderRequest(req); err != nil {
		return nil, err
	}

	sellerName := strings.TrimSpace(req.SellerName)
	if sellerName == "" {
		sellerName = models.DefaultSellerName
	}

	order := &models.PurchaseOrder{
		ProductName:     strings.TrimSpace(req.ProductName),
		Quantity:        req.Quantity,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		SellerName:      sellerName,
		CreatedBy:       actor.UserID,
		Status:          models.OrderStatusPending,
	}

	if err := s.store.CreatePurchaseOrder(ctx, order); err != nil {
		return nil, err
	}

	util.PurchaseOrdersCreatedTotal.Inc()
	s.logger.Info("Purchase order created",
		zap.Int64("order_id", order.ID),
		zap.String("product_name", order.ProductName),
		zap.Int64("created_by", actor.UserID))

	if s.publisher != nil {
		event := &models.OrderCreatedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
			OrderID:     order.ID,
			ProductName: order.ProductName,
			Quantity:    order.Quantity,
			CreatedBy:   order.CreatedBy,
		}
		if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		}
	}

	linked, err := s.store.ProductExistsByName(ctx, order.ProductName)
	if err != nil {
		s.logger.Warn("Catalog lookup failed", zap.Error(err))
		linked = false
	}

	return &OrderResponse{Order: *order, CatalogLinked: linked}, nil
}

// ChangeStatus transitions a pending order. Admins may approve, reject or
// send to seller; the creator may cancel. A sent_to_seller transition hands
// the order plus resolved supplier contact to the notification collaborator.
func (s *PurchaseService) ChangeStatus(ctx context.Context, orderID int64, newStatus string, actor auth.Actor) (*models.PurchaseOrder, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.ChangeStatus")
	defer span.End()

	order, err := s.store.GetPurchaseOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !models.ValidOrderStatus(newStatus) || newStatus == models.OrderStatusPending {
		util.PurchaseOrderTransitionsRejected.WithLabelValues("invalid_status").Inc()
		return nil, &models.InvalidTransitionError{OrderID: orderID, From: order.Status, To: newStatus}
	}

	if order.Status != models.OrderStatusPending {
		util.PurchaseOrderTransitionsRejected.WithLabelValues("terminal_state").Inc()
		return nil, &models.InvalidTransitionError{OrderID: orderID, From: order.Status, To: newStatus}
	}

	action := auth.ActionReviewOrder
	if newStatus == models.OrderStatusCancelled {
		action = auth.ActionCancelOrder
	}
	if err := auth.Authorize(actor, action, auth.Resource{OwnerID: order.CreatedBy}); err != nil {
		util.PurchaseOrderTransitionsRejected.WithLabelValues("forbidden").Inc()
		return nil, err
	}

	updated, err := s.store.TransitionPurchaseOrder(ctx, orderID, models.OrderStatusPending, newStatus)
	if err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			util.PurchaseOrderTransitionsRejected.WithLabelValues("lost_race").Inc()
		}
		return nil, err
	}

	util.PurchaseOrderTransitionsTotal.WithLabelValues(newStatus).Inc()
	s.logger.Info("Purchase order transitioned",
		zap.Int64("order_id", orderID),
		zap.String("status", newStatus),
		zap.Int64("actor_id", actor.UserID))

	if s.publisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderStatusChanged),
			OrderID:   orderID,
			Status:    newStatus,
			ActorID:   actor.UserID,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	if newStatus == models.OrderStatusSentToSeller {
		s.handOffToSupplier(ctx, updated)
	}

	return updated, nil
}

// GetOrder retrieves a purchase order with its creator's details; non-admin
// actors may only read their own.
func (s *PurchaseService) GetOrder(ctx context.Context, orderID int64, actor auth.Actor) (*models.PurchaseOrderView, error) {
	order, err := s.store.GetPurchaseOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.ActionViewOrder, auth.Resource{OwnerID: order.CreatedBy}); err != nil {
		return nil, err
	}

	view := &models.PurchaseOrderView{PurchaseOrder: *order}
	creator, err := s.store.GetUserByID(ctx, order.CreatedBy)
	if err != nil {
		s.logger.Warn("Failed to resolve order creator",
			zap.Int64("order_id", order.ID),
			zap.Int64("created_by", order.CreatedBy),
			zap.Error(err))
		return view, nil
	}
	view.CreatorName = creator.Name
	view.CreatorEmail = creator.Email
	return view, nil
}

// ListOrders lists all purchase orders; admin only.
func (s *PurchaseService) ListOrders(ctx context.Context, actor auth.Actor) ([]models.PurchaseOrderView, error) {
	if err := auth.Authorize(actor, auth.ActionListAllOrders, auth.Resource{}); err != nil {
		return nil, err
	}
	return s.store.ListPurchaseOrders(ctx, 0)
}

// ListMyOrders lists the actor's own purchase orders.
func (s *PurchaseService) ListMyOrders(ctx context.Context, actor auth.Actor) ([]models.PurchaseOrderView, error) {
	if actor.UserID == 0 {
		return nil, models.ErrUnauthorized
	}
	return s.store.ListPurchaseOrders(ctx, actor.UserID)
}

// handOffToSupplier resolves the supplier contact and publishes the
// notification event. Delivery is the collaborator's job; a missing
// supplier record downgrades the handoff, it never fails the transition.
func (s *PurchaseService) handOffToSupplier(ctx context.Context, order *models.PurchaseOrder) {
	if s.publisher == nil {
		return
	}

	event := &models.SupplierNotifyEvent{
		BaseEvent:       newBaseEvent(models.EventTypeSupplierNotify),
		OrderID:         order.ID,
		ProductName:     order.ProductName,
		Quantity:        order.Quantity,
		ShippingAddress: order.ShippingAddress,
		SellerName:      order.SellerName,
	}

	supplier, err := s.store.GetSupplierByName(ctx, order.SellerName)
	if err != nil {
		util.SupplierNotificationsTotal.WithLabelValues("no_contact").Inc()
		s.logger.Warn("No supplier contact for order",
			zap.Int64("order_id", order.ID),
			zap.String("seller_name", order.SellerName),
			zap.Error(err))
	} else {
		event.SupplierName = supplier.Name
		event.SupplierContact = supplier.Contact
		event.SupplierEmail = supplier.Email
	}

	if err := s.publisher.PublishSupplierNotify(ctx, event); err != nil {
		util.SupplierNotificationsTotal.WithLabelValues("publish_failed").Inc()
		s.logger.Error("Failed to publish SupplierNotify event", zap.Error(err))
		return
	}
	util.SupplierNotificationsTotal.WithLabelValues("handed_off").Inc()
}

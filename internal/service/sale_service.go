package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleStore is the persistence surface the sale engine needs: product
// resolution plus the atomic bill write.
type SaleStore interface {
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	CreateBill(ctx context.Context, bill *models.Bill, items []models.BillItem) ([]models.StockLevel, error)
	GetBillByID(ctx context.Context, id int64) (*models.Bill, []models.BillItem, error)
	GetBillByInvoiceNumber(ctx context.Context, invoiceNumber string) (*models.Bill, error)
	ListBills(ctx context.Context, userID int64) ([]models.Bill, error)
}

// SaleEventPublisher publishes sale-side domain events.
type SaleEventPublisher interface {
	PublishBillCreated(ctx context.Context, event *models.BillCreatedEvent) error
	PublishLowStock(ctx context.Context, event *models.LowStockEvent) error
}

// IdempotencyCache guards against duplicate sale submissions.
type IdempotencyCache interface {
	ClaimIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error)
	BindIdempotencyKey(ctx context.Context, key string, billID int64, ttl time.Duration) error
	LookupIdempotencyKey(ctx context.Context, key string) (int64, error)
}

// SaleService validates sale requests, snapshots pricing, performs the
// atomic stock decrement and records the immutable bill.
type SaleService struct {
	store         SaleStore
	publisher     SaleEventPublisher
	idem          IdempotencyCache
	stockCache    *StockCache
	invoicePrefix string
	logger        *zap.Logger
}

const (
	idempotencyTTL       = 24 * time.Hour
	defaultInvoicePrefix = "INV"
)

// NewSaleService creates a new sale service. publisher, idem and stockCache
// may be nil; the corresponding side effects are then skipped. An empty
// invoicePrefix falls back to "INV".
func NewSaleService(store SaleStore, publisher SaleEventPublisher, idem IdempotencyCache, stockCache *StockCache, invoicePrefix string) *SaleService {
	if invoicePrefix == "" {
		invoicePrefix = defaultInvoicePrefix
	}
	return &SaleService{
		store:         store,
		publisher:     publisher,
		idem:          idem,
		stockCache:    stockCache,
		invoicePrefix: invoicePrefix,
		logger:        util.GetLogger(),
	}
}

// RecordSaleRequest represents a request to record a sale
type RecordSaleRequest struct {
	CustomerName   string            `json:"customer_name" binding:"required"`
	CustomerPhone  string            `json:"customer_phone" binding:"required"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1"`
	IdempotencyKey string            `json:"idempotency_key,omitempty"`
}

// SaleItemRequest represents one requested line item
type SaleItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// BillResponse is a persisted bill with its line items
type BillResponse struct {
	Bill  models.Bill       `json:"bill"`
	Items []models.BillItem `json:"items"`
}

// RecordSale performs the whole sale as one transaction: every line is
// validated before any stock moves, prices and cost prices are snapshotted
// into the bill, and a failing line leaves all inventory untouched.
func (s *SaleService) RecordSale(ctx context.Context, req *RecordSaleRequest, actor auth.Actor) (*BillResponse, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.RecordSale")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SaleLatency.Observe(time.Since(start).Seconds())
	}()

	if err := auth.Authorize(actor, auth.ActionRecordSale, auth.Resource{}); err != nil {
		util.SalesFailedTotal.WithLabelValues("unauthorized").Inc()
		return nil, err
	}

	if err := validateSaleRequest(req); err != nil {
		util.SalesFailedTotal.WithLabelValues("invalid_input").Inc()
		return nil, err
	}

	if req.IdempotencyKey != "" && s.idem != nil {
		claimed, err := s.idem.ClaimIdempotencyKey(ctx, req.IdempotencyKey, idempotencyTTL)
		if err != nil {
			s.logger.Warn("Idempotency check failed, proceeding without it", zap.Error(err))
		} else if !claimed {
			billID, err := s.idem.LookupIdempotencyKey(ctx, req.IdempotencyKey)
			if err == nil && billID > 0 {
				s.logger.Info("Duplicate sale request detected",
					zap.String("idempotency_key", req.IdempotencyKey),
					zap.Int64("bill_id", billID))
				bill, items, err := s.store.GetBillByID(ctx, billID)
				if err != nil {
					return nil, err
				}
				return &BillResponse{Bill: *bill, Items: items}, nil
			}
			return nil, &models.InvalidInputError{Field: "idempotency_key", Reason: "request already in progress"}
		}
	}

	products, err := s.resolveProducts(ctx, req.Items)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}

	// snapshot price and cost price per line; later catalog changes must
	// not rewrite this bill
	items := make([]models.BillItem, 0, len(req.Items))
	var totalAmount int64
	for _, item := range req.Items {
		product := products[item.ProductID]
		items = append(items, models.BillItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			CostPrice: product.CostPrice,
			Quantity:  item.Quantity,
		})
		totalAmount += product.Price * int64(item.Quantity)
	}

	bill := &models.Bill{
		InvoiceNumber: s.newInvoiceNumber(),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: req.CustomerPhone,
		TotalAmount:   totalAmount,
		UserID:        actor.UserID,
		GeneratedBy:   actor.Email,
	}

	levels, err := s.store.CreateBill(ctx, bill, items)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInsufficientStock):
			util.SalesFailedTotal.WithLabelValues("insufficient_stock").Inc()
		case errors.Is(err, models.ErrNotFound):
			util.SalesFailedTotal.WithLabelValues("not_found").Inc()
		default:
			util.SalesFailedTotal.WithLabelValues("store_error").Inc()
		}
		return nil, err
	}

	util.SalesRecordedTotal.Inc()
	util.SaleAmountTotal.Add(float64(totalAmount))
	s.logger.Info("Sale recorded",
		zap.Int64("bill_id", bill.ID),
		zap.String("invoice_number", bill.InvoiceNumber),
		zap.Int64("total_amount", totalAmount))

	if req.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.BindIdempotencyKey(ctx, req.IdempotencyKey, bill.ID, idempotencyTTL); err != nil {
			s.logger.Warn("Failed to bind idempotency key", zap.Error(err))
		}
	}

	s.publishBillCreated(ctx, bill, items)
	s.signalStockLevels(ctx, levels)

	return &BillResponse{Bill: *bill, Items: items}, nil
}

// GetBill retrieves a bill; non-admin actors may only read their own.
func (s *SaleService) GetBill(ctx context.Context, billID int64, actor auth.Actor) (*BillResponse, error) {
	bill, items, err := s.store.GetBillByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.ActionViewBill, auth.Resource{OwnerID: bill.UserID}); err != nil {
		return nil, err
	}
	return &BillResponse{Bill: *bill, Items: items}, nil
}

// FindBillByInvoice looks a bill up by its invoice number, with the same
// ownership rule as GetBill.
func (s *SaleService) FindBillByInvoice(ctx context.Context, invoiceNumber string, actor auth.Actor) (*BillResponse, error) {
	bill, err := s.store.GetBillByInvoiceNumber(ctx, invoiceNumber)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.ActionViewBill, auth.Resource{OwnerID: bill.UserID}); err != nil {
		return nil, err
	}
	_, items, err := s.store.GetBillByID(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	return &BillResponse{Bill: *bill, Items: items}, nil
}

// ListBills lists bills: admins see every bill, users only their own.
func (s *SaleService) ListBills(ctx context.Context, actor auth.Actor) ([]models.Bill, error) {
	if err := auth.Authorize(actor, auth.ActionListAllBills, auth.Resource{}); err == nil {
		return s.store.ListBills(ctx, 0)
	}
	return s.store.ListBills(ctx, actor.UserID)
}

func (s *SaleService) resolveProducts(ctx context.Context, items []SaleItemRequest) (map[int64]*models.Product, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	productMap := make(map[int64]*models.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	for _, id := range ids {
		if _, ok := productMap[id]; !ok {
			return nil, &models.NotFoundError{Kind: "product", ID: id}
		}
	}
	return productMap, nil
}

func (s *SaleService) publishBillCreated(ctx context.Context, bill *models.Bill, items []models.BillItem) {
	if s.publisher == nil {
		return
	}

	itemData := make([]models.BillItemData, 0, len(items))
	for _, item := range items {
		itemData = append(itemData, models.BillItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	event := &models.BillCreatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeBillCreated),
		BillID:        bill.ID,
		InvoiceNumber: bill.InvoiceNumber,
		UserID:        bill.UserID,
		TotalAmount:   bill.TotalAmount,
		Items:         itemData,
	}
	if err := s.publisher.PublishBillCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish BillCreated event", zap.Error(err))
	}
}

// signalStockLevels refreshes the stock cache and raises low-stock signals.
// Signals never block or fail the sale.
func (s *SaleService) signalStockLevels(ctx context.Context, levels []models.StockLevel) {
	if s.stockCache != nil {
		s.stockCache.Apply(ctx, levels)
	}

	for _, level := range levels {
		if !level.Low() {
			continue
		}

		util.LowStockAlertsTotal.Inc()
		s.logger.Warn("Low stock",
			zap.Int64("product_id", level.ProductID),
			zap.String("name", level.Name),
			zap.Int("remaining", level.Remaining),
			zap.Int("threshold", level.LowStockThreshold))

		if s.publisher != nil {
			event := &models.LowStockEvent{
				BaseEvent: newBaseEvent(models.EventTypeLowStock),
				ProductID: level.ProductID,
				SKU:       level.SKU,
				Name:      level.Name,
				Remaining: level.Remaining,
				Threshold: level.LowStockThreshold,
			}
			if err := s.publisher.PublishLowStock(ctx, event); err != nil {
				s.logger.Error("Failed to publish LowStock event", zap.Error(err))
			}
		}
	}
}

func (s *SaleService) newInvoiceNumber() string {
	return fmt.Sprintf("%s-%s", s.invoicePrefix, strings.ToUpper(uuid.New().String()[:8]))
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

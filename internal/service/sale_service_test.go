package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSaleStore is an in-memory SaleStore with the same contract as the SQL
// store: every line is validated under the lock before any stock moves.
type fakeSaleStore struct {
	mu        sync.Mutex
	products  map[int64]*models.Product
	bills     map[int64]*models.Bill
	billItems map[int64][]models.BillItem
	nextBill  int64
}

func newFakeSaleStore(products ...*models.Product) *fakeSaleStore {
	s := &fakeSaleStore{
		products:  make(map[int64]*models.Product),
		bills:     make(map[int64]*models.Bill),
		billItems: make(map[int64][]models.BillItem),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeSaleStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeSaleStore) CreateBill(ctx context.Context, bill *models.Bill, items []models.BillItem) ([]models.StockLevel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needed := make(map[int64]int)
	for _, item := range items {
		needed[item.ProductID] += item.Quantity
	}

	for id, qty := range needed {
		p, ok := s.products[id]
		if !ok {
			return nil, &models.NotFoundError{Kind: "product", ID: id}
		}
		if p.Quantity < qty {
			return nil, &models.InsufficientStockError{
				ProductID:   id,
				ProductName: p.Name,
				Available:   p.Quantity,
				Requested:   qty,
			}
		}
	}

	var levels []models.StockLevel
	for id, qty := range needed {
		p := s.products[id]
		p.Quantity -= qty
		levels = append(levels, models.StockLevel{
			ProductID:         id,
			SKU:               p.SKU,
			Name:              p.Name,
			Remaining:         p.Quantity,
			LowStockThreshold: p.LowStockThreshold,
		})
	}

	s.nextBill++
	bill.ID = s.nextBill
	bill.CreatedAt = time.Now()

	stored := *bill
	s.bills[bill.ID] = &stored
	copied := make([]models.BillItem, len(items))
	copy(copied, items)
	for i := range copied {
		copied[i].BillID = bill.ID
		copied[i].ID = int64(i + 1)
	}
	s.billItems[bill.ID] = copied

	return levels, nil
}

func (s *fakeSaleStore) GetBillByID(ctx context.Context, id int64) (*models.Bill, []models.BillItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, ok := s.bills[id]
	if !ok {
		return nil, nil, &models.NotFoundError{Kind: "bill", ID: id}
	}
	b := *bill
	return &b, s.billItems[id], nil
}

func (s *fakeSaleStore) GetBillByInvoiceNumber(ctx context.Context, invoiceNumber string) (*models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, bill := range s.bills {
		if bill.InvoiceNumber == invoiceNumber {
			b := *bill
			return &b, nil
		}
	}
	return nil, fmt.Errorf("bill %s: %w", invoiceNumber, models.ErrNotFound)
}

func (s *fakeSaleStore) ListBills(ctx context.Context, userID int64) ([]models.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Bill
	for _, b := range s.bills {
		if userID == 0 || b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *fakeSaleStore) quantity(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Quantity
}

// fakePublisher records published events
type fakePublisher struct {
	mu       sync.Mutex
	created  []*models.BillCreatedEvent
	lowStock []*models.LowStockEvent
}

func (p *fakePublisher) PublishBillCreated(ctx context.Context, event *models.BillCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, event)
	return nil
}

func (p *fakePublisher) PublishLowStock(ctx context.Context, event *models.LowStockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lowStock = append(p.lowStock, event)
	return nil
}

func product(id int64, sku string, price, cost int64, qty int) *models.Product {
	return &models.Product{
		ID:                id,
		SKU:               sku,
		Name:              sku,
		Price:             price,
		CostPrice:         cost,
		Quantity:          qty,
		LowStockThreshold: 5,
	}
}

func cashier() auth.Actor {
	return auth.Actor{UserID: 7, Name: "Asha", Email: "asha@example.com", Role: models.RoleUser}
}

func saleRequest(items ...SaleItemRequest) *RecordSaleRequest {
	return &RecordSaleRequest{
		CustomerName:  "Ravi Kumar",
		CustomerPhone: "9876543210",
		Items:         items,
	}
}

func TestRecordSaleComputesTotalAndDecrementsStock(t *testing.T) {
	store := newFakeSaleStore(product(2, "SKU-2", 20, 12, 10))
	svc := NewSaleService(store, nil, nil, nil, "")

	resp, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 2, Quantity: 4},
	), cashier())
	require.NoError(t, err)

	assert.Equal(t, int64(80), resp.Bill.TotalAmount)
	assert.Equal(t, 6, store.quantity(2))
	assert.Regexp(t, `^INV-[0-9A-F]{8}$`, resp.Bill.InvoiceNumber)
	assert.Equal(t, int64(7), resp.Bill.UserID)
	assert.Equal(t, "asha@example.com", resp.Bill.GeneratedBy)
}

func TestInvoiceNumberUsesConfiguredPrefix(t *testing.T) {
	store := newFakeSaleStore(product(2, "SKU-2", 20, 12, 10))
	svc := NewSaleService(store, nil, nil, nil, "SHOP")

	resp, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 2, Quantity: 1},
	), cashier())
	require.NoError(t, err)

	assert.Regexp(t, `^SHOP-[0-9A-F]{8}$`, resp.Bill.InvoiceNumber)
}

func TestRecordSaleMultiItemTotal(t *testing.T) {
	store := newFakeSaleStore(
		product(1, "P-1", 100, 60, 50),
		product(2, "P-2", 50, 30, 50),
	)
	svc := NewSaleService(store, nil, nil, nil, "")

	resp, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 2},
		SaleItemRequest{ProductID: 2, Quantity: 3},
	), cashier())
	require.NoError(t, err)

	assert.Equal(t, int64(350), resp.Bill.TotalAmount)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, int64(100), resp.Items[0].UnitPrice)
	assert.Equal(t, int64(30), resp.Items[1].CostPrice)
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	store := newFakeSaleStore(product(1, "SKU-1", 20, 12, 10))
	svc := NewSaleService(store, nil, nil, nil, "")

	_, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 12},
	), cashier())

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))

	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "SKU-1", stockErr.ProductName)
	assert.Equal(t, 10, stockErr.Available)
	assert.Contains(t, err.Error(), "SKU-1 has only 10 item(s) in stock")

	assert.Equal(t, 10, store.quantity(1))
	assert.Empty(t, store.bills)
}

func TestRecordSaleAtomicAcrossLines(t *testing.T) {
	store := newFakeSaleStore(
		product(1, "P-1", 100, 60, 50),
		product(2, "P-2", 50, 30, 2),
	)
	svc := NewSaleService(store, nil, nil, nil, "")

	_, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 5},
		SaleItemRequest{ProductID: 2, Quantity: 3},
	), cashier())

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientStock))

	// the valid first line must not have moved any stock
	assert.Equal(t, 50, store.quantity(1))
	assert.Equal(t, 2, store.quantity(2))
	assert.Empty(t, store.bills)
}

func TestRecordSaleUnknownProduct(t *testing.T) {
	store := newFakeSaleStore(product(1, "P-1", 100, 60, 50))
	svc := NewSaleService(store, nil, nil, nil, "")

	_, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 99, Quantity: 1},
	), cashier())

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestRecordSalePriceSnapshotIsolation(t *testing.T) {
	store := newFakeSaleStore(product(1, "P-1", 100, 60, 50))
	svc := NewSaleService(store, nil, nil, nil, "")

	resp, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 1},
	), cashier())
	require.NoError(t, err)

	// a later price change must not rewrite the persisted bill
	store.mu.Lock()
	store.products[1].Price = 999
	store.products[1].CostPrice = 500
	store.mu.Unlock()

	bill, items, err := store.GetBillByID(context.Background(), resp.Bill.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), bill.TotalAmount)
	require.Len(t, items, 1)
	assert.Equal(t, int64(100), items[0].UnitPrice)
	assert.Equal(t, int64(60), items[0].CostPrice)
}

func TestRecordSaleValidation(t *testing.T) {
	store := newFakeSaleStore(product(1, "P-1", 100, 60, 50))
	svc := NewSaleService(store, nil, nil, nil, "")
	ctx := context.Background()

	cases := []struct {
		name string
		req  *RecordSaleRequest
	}{
		{"empty items", &RecordSaleRequest{CustomerName: "Ravi", CustomerPhone: "9876543210"}},
		{"zero quantity", saleRequest(SaleItemRequest{ProductID: 1, Quantity: 0})},
		{"negative quantity", saleRequest(SaleItemRequest{ProductID: 1, Quantity: -2})},
		{"digits in name", &RecordSaleRequest{
			CustomerName:  "Ravi 2",
			CustomerPhone: "9876543210",
			Items:         []SaleItemRequest{{ProductID: 1, Quantity: 1}},
		}},
		{"short phone", &RecordSaleRequest{
			CustomerName:  "Ravi",
			CustomerPhone: "987654321",
			Items:         []SaleItemRequest{{ProductID: 1, Quantity: 1}},
		}},
		{"phone starts below six", &RecordSaleRequest{
			CustomerName:  "Ravi",
			CustomerPhone: "1876543210",
			Items:         []SaleItemRequest{{ProductID: 1, Quantity: 1}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordSale(ctx, tc.req, cashier())
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidInput))
		})
	}

	// nothing above may have touched stock
	assert.Equal(t, 50, store.quantity(1))
}

func TestRecordSaleRequiresActor(t *testing.T) {
	store := newFakeSaleStore(product(1, "P-1", 100, 60, 50))
	svc := NewSaleService(store, nil, nil, nil, "")

	_, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 1},
	), auth.Actor{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestRecordSaleEmitsEvents(t *testing.T) {
	store := newFakeSaleStore(product(1, "P-1", 100, 60, 8))
	pub := &fakePublisher{}
	svc := NewSaleService(store, pub, nil, nil, "")

	// drops quantity to 4, at or below the threshold of 5
	_, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 4},
	), cashier())
	require.NoError(t, err)

	require.Len(t, pub.created, 1)
	assert.Equal(t, models.EventTypeBillCreated, pub.created[0].EventType)
	assert.Equal(t, int64(400), pub.created[0].TotalAmount)

	require.Len(t, pub.lowStock, 1)
	assert.Equal(t, int64(1), pub.lowStock[0].ProductID)
	assert.Equal(t, 4, pub.lowStock[0].Remaining)
	assert.Equal(t, 5, pub.lowStock[0].Threshold)
}

func TestRecordSaleNoLowStockEventAboveThreshold(t *testing.T) {
	store := newFakeSaleStore(product(1, "P-1", 100, 60, 50))
	pub := &fakePublisher{}
	svc := NewSaleService(store, pub, nil, nil, "")

	_, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 4},
	), cashier())
	require.NoError(t, err)

	assert.Empty(t, pub.lowStock)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	const initial = 10
	const attempts = 25

	store := newFakeSaleStore(product(1, "P-1", 100, 60, initial))
	svc := NewSaleService(store, nil, nil, nil, "")

	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordSale(context.Background(), saleRequest(
				SaleItemRequest{ProductID: 1, Quantity: 1},
			), cashier())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, models.ErrInsufficientStock))
		}
	}

	final := store.quantity(1)
	assert.GreaterOrEqual(t, final, 0)
	assert.Equal(t, initial, final+succeeded)
	assert.LessOrEqual(t, succeeded, initial)
}

func TestGetBillOwnership(t *testing.T) {
	store := newFakeSaleStore(product(1, "P-1", 100, 60, 50))
	svc := NewSaleService(store, nil, nil, nil, "")

	resp, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 1},
	), cashier())
	require.NoError(t, err)

	// the owner can read it back
	got, err := svc.GetBill(context.Background(), resp.Bill.ID, cashier())
	require.NoError(t, err)
	assert.Equal(t, resp.Bill.InvoiceNumber, got.Bill.InvoiceNumber)

	// another plain user cannot
	_, err = svc.GetBill(context.Background(), resp.Bill.ID,
		auth.Actor{UserID: 99, Role: models.RoleUser})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	// an admin can
	_, err = svc.GetBill(context.Background(), resp.Bill.ID,
		auth.Actor{UserID: 99, Role: models.RoleAdmin})
	assert.NoError(t, err)
}

func TestFindBillByInvoice(t *testing.T) {
	store := newFakeSaleStore(product(1, "P-1", 100, 60, 50))
	svc := NewSaleService(store, nil, nil, nil, "")

	resp, err := svc.RecordSale(context.Background(), saleRequest(
		SaleItemRequest{ProductID: 1, Quantity: 2},
	), cashier())
	require.NoError(t, err)

	got, err := svc.FindBillByInvoice(context.Background(), resp.Bill.InvoiceNumber, cashier())
	require.NoError(t, err)
	assert.Equal(t, resp.Bill.ID, got.Bill.ID)
	assert.Len(t, got.Items, 1)

	// same ownership rule as GetBill
	_, err = svc.FindBillByInvoice(context.Background(), resp.Bill.InvoiceNumber,
		auth.Actor{UserID: 99, Role: models.RoleUser})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = svc.FindBillByInvoice(context.Background(), "INV-DEADBEEF", cashier())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type fakeSaleStore struct {
	products map[int64]*models.Product
	bills    map[int64]*models.Bill
	items    map[int64][]models.BillItem
	nextID   int64
}

func (s *fakeSaleStore) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeSaleStore) CreateBill(ctx context.Context, bill *models.Bill, items []models.BillItem) ([]models.StockLevel, error) {
	for _, item := range items {
		product := s.products[item.ProductID]
		if product == nil {
			return nil, &models.NotFoundError{Kind: "product", ID: item.ProductID}
		}
		if product.Quantity < item.Quantity {
			return nil, &models.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.SKU,
				Requested:   item.Quantity,
				Available:   product.Quantity,
			}
		}
	}

	var levels []models.StockLevel
	for i := range items {
		product := s.products[items[i].ProductID]
		product.Quantity -= items[i].Quantity
		levels = append(levels, models.StockLevel{
			ProductID:         product.ID,
			SKU:               product.SKU,
			Name:              product.Name,
			Remaining:         product.Quantity,
			LowStockThreshold: product.LowStockThreshold,
		})
	}

	s.nextID++
	bill.ID = s.nextID
	bill.CreatedAt = time.Now()
	stored := *bill
	s.bills[bill.ID] = &stored
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].BillID = bill.ID
	}
	s.items[bill.ID] = append([]models.BillItem(nil), items...)
	return levels, nil
}

func (s *fakeSaleStore) GetBillByID(ctx context.Context, id int64) (*models.Bill, []models.BillItem, error) {
	bill, ok := s.bills[id]
	if !ok {
		return nil, nil, &models.NotFoundError{Kind: "bill", ID: id}
	}
	b := *bill
	return &b, s.items[id], nil
}

func (s *fakeSaleStore) GetBillByInvoiceNumber(ctx context.Context, invoiceNumber string) (*models.Bill, error) {
	for _, bill := range s.bills {
		if bill.InvoiceNumber == invoiceNumber {
			b := *bill
			return &b, nil
		}
	}
	return nil, fmt.Errorf("bill %s: %w", invoiceNumber, models.ErrNotFound)
}

func (s *fakeSaleStore) ListBills(ctx context.Context, userID int64) ([]models.Bill, error) {
	var out []models.Bill
	for _, bill := range s.bills {
		if userID == 0 || bill.UserID == userID {
			out = append(out, *bill)
		}
	}
	return out, nil
}

type fakeOrderStore struct {
	orders map[int64]*models.PurchaseOrder
	nextID int64
}

func (s *fakeOrderStore) CreatePurchaseOrder(ctx context.Context, order *models.PurchaseOrder) error {
	s.nextID++
	order.ID = s.nextID
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	s.orders[order.ID] = &stored
	return nil
}

func (s *fakeOrderStore) GetPurchaseOrderByID(ctx context.Context, id int64) (*models.PurchaseOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "purchase order", ID: id}
	}
	o := *order
	return &o, nil
}

func (s *fakeOrderStore) TransitionPurchaseOrder(ctx context.Context, id int64, from, to string) (*models.PurchaseOrder, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "purchase order", ID: id}
	}
	if order.Status != from {
		return nil, &models.InvalidTransitionError{OrderID: id, From: order.Status, To: to}
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	o := *order
	return &o, nil
}

func (s *fakeOrderStore) ListPurchaseOrders(ctx context.Context, createdBy int64) ([]models.PurchaseOrderView, error) {
	var out []models.PurchaseOrderView
	for _, order := range s.orders {
		if createdBy == 0 || order.CreatedBy == createdBy {
			out = append(out, models.PurchaseOrderView{PurchaseOrder: *order})
		}
	}
	return out, nil
}

func (s *fakeOrderStore) ProductExistsByName(ctx context.Context, name string) (bool, error) {
	return false, nil
}

func (s *fakeOrderStore) GetSupplierByName(ctx context.Context, name string) (*models.Supplier, error) {
	return nil, fmt.Errorf("supplier %s: %w", name, models.ErrNotFound)
}

func (s *fakeOrderStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Name: "Meera", Email: "meera@example.com", Role: models.RoleUser}, nil
}

type fakeReports struct{}

func (fakeReports) SalesSummary(ctx context.Context, userID int64) ([]store.DailySales, error) {
	return nil, nil
}
func (fakeReports) HighestSellingProduct(ctx context.Context) (*store.TopProduct, error) {
	return nil, nil
}
func (fakeReports) Profit(ctx context.Context, since time.Time, userID int64) (int64, error) {
	return 100, nil
}
func (fakeReports) Revenue(ctx context.Context, since time.Time, userID int64) (int64, error) {
	return 200, nil
}
func (fakeReports) CountBills(ctx context.Context, userID int64) (int64, error) { return 2, nil }
func (fakeReports) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	return nil, nil
}

type fakeCatalog struct {
	products map[int64]*models.Product
}

func (c *fakeCatalog) GetProducts(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range c.products {
		out = append(out, *p)
	}
	return out, nil
}

func (c *fakeCatalog) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "product", ID: id}
	}
	out := *p
	return &out, nil
}

type testEnv struct {
	router     *gin.Engine
	verifier   *auth.Verifier
	saleStore  *fakeSaleStore
	orderStore *fakeOrderStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	saleStore := &fakeSaleStore{
		products: map[int64]*models.Product{
			1: {ID: 1, SKU: "SKU-1", Name: "Pen", Price: 20, CostPrice: 12, Quantity: 10, LowStockThreshold: 5},
		},
		bills: make(map[int64]*models.Bill),
		items: make(map[int64][]models.BillItem),
	}
	orderStore := &fakeOrderStore{orders: make(map[int64]*models.PurchaseOrder)}
	catalog := &fakeCatalog{products: saleStore.products}

	verifier := auth.NewVerifier(testSecret)
	handler := NewHandler(
		service.NewSaleService(saleStore, nil, nil, nil, ""),
		service.NewPurchaseService(orderStore, nil),
		service.NewDashboardService(fakeReports{}, nil),
		catalog,
		verifier,
	)

	router := gin.New()
	handler.SetupRoutes(router)

	return &testEnv{router: router, verifier: verifier, saleStore: saleStore, orderStore: orderStore}
}

func (e *testEnv) token(t *testing.T, actor auth.Actor) string {
	t.Helper()
	token, err := e.verifier.Sign(actor, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func saleBody(quantity int) map[string]interface{} {
	return map[string]interface{}{
		"customer_name":  "Ravi Kumar",
		"customer_phone": "9876543210",
		"items": []map[string]interface{}{
			{"product_id": 1, "quantity": quantity},
		},
	}
}

func TestRecordSaleEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, auth.Actor{UserID: 2, Name: "Asha", Email: "asha@example.com", Role: models.RoleUser})

	w := env.do(t, http.MethodPost, "/api/v1/sales", token, saleBody(4))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp service.BillResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(80), resp.Bill.TotalAmount)
	assert.Regexp(t, `^INV-[0-9A-F]{8}$`, resp.Bill.InvoiceNumber)
	assert.Equal(t, 6, env.saleStore.products[1].Quantity)
}

func TestRecordSaleEndpointInsufficientStock(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})

	w := env.do(t, http.MethodPost, "/api/v1/sales", token, saleBody(11))
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "in stock")
	assert.Equal(t, 10, env.saleStore.products[1].Quantity)
}

func TestRecordSaleEndpointRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/sales", "", saleBody(1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/sales", "not-a-token", saleBody(1))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetBillEndpointNotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})

	w := env.do(t, http.MethodGet, "/api/v1/sales/99", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBillEndpointForbiddenForStranger(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})
	stranger := env.token(t, auth.Actor{UserID: 3, Role: models.RoleUser})

	w := env.do(t, http.MethodPost, "/api/v1/sales", owner, saleBody(1))
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/sales/1", stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/sales/1", owner, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPurchaseOrderLifecycleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	creator := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})
	admin := env.token(t, auth.Actor{UserID: 1, Role: models.RoleAdmin})

	w := env.do(t, http.MethodPost, "/api/v1/purchase-orders", creator, map[string]interface{}{
		"product_name":     "Blue Pen",
		"quantity":         30,
		"shipping_address": "12 Market Road",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created service.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.OrderStatusPending, created.Order.Status)
	assert.Equal(t, models.DefaultSellerName, created.Order.SellerName)

	// non-admin cannot review
	w = env.do(t, http.MethodPatch, "/api/v1/purchase-orders/1", creator, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPatch, "/api/v1/purchase-orders/1", admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// approved is terminal
	w = env.do(t, http.MethodPatch, "/api/v1/purchase-orders/1", admin, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// unknown state
	w = env.do(t, http.MethodPatch, "/api/v1/purchase-orders/1", admin, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetPurchaseOrderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	creator := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})
	stranger := env.token(t, auth.Actor{UserID: 3, Role: models.RoleUser})

	w := env.do(t, http.MethodPost, "/api/v1/purchase-orders", creator, map[string]interface{}{
		"product_name":     "Blue Pen",
		"quantity":         30,
		"shipping_address": "12 Market Road",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/purchase-orders/1", creator, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"creator_name":"Meera"`)

	w = env.do(t, http.MethodGet, "/api/v1/purchase-orders/1", stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/purchase-orders/42", creator, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFindBillByInvoiceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})

	w := env.do(t, http.MethodPost, "/api/v1/sales", token, saleBody(1))
	require.Equal(t, http.StatusCreated, w.Code)

	var created service.BillResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.do(t, http.MethodGet, "/api/v1/sales?invoice="+created.Bill.InvoiceNumber, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.Bill.InvoiceNumber)

	w = env.do(t, http.MethodGet, "/api/v1/sales?invoice=INV-DEADBEEF", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPurchaseOrdersAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	user := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})
	admin := env.token(t, auth.Actor{UserID: 1, Role: models.RoleAdmin})

	w := env.do(t, http.MethodGet, "/api/v1/purchase-orders", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/purchase-orders", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/purchase-orders/my", user, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProductEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})

	w := env.do(t, http.MethodGet, "/api/v1/products", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/products/1", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"low_stock":false`)

	w = env.do(t, http.MethodGet, "/api/v1/products/42", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDashboardProfitEndpoint(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, auth.Actor{UserID: 1, Role: models.RoleAdmin})
	user := env.token(t, auth.Actor{UserID: 2, Role: models.RoleUser})

	w := env.do(t, http.MethodGet, "/api/v1/dashboard/profit?range=today", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"profit"`)

	w = env.do(t, http.MethodGet, "/api/v1/dashboard/profit?range=month", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"revenue"`)

	w = env.do(t, http.MethodGet, "/api/v1/dashboard/profit?range=decade", user, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpointsArePublic(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

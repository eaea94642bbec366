package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/service"
	"inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Catalog is the read-only product view exposed over HTTP; catalog
// mutation belongs to an external collaborator.
type Catalog interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// Handler contains HTTP handlers
type Handler struct {
	saleService     *service.SaleService
	purchaseService *service.PurchaseService
	dashboard       *service.DashboardService
	catalog         Catalog
	verifier        *auth.Verifier
}

// NewHandler creates a new HTTP handler
func NewHandler(
	saleService *service.SaleService,
	purchaseService *service.PurchaseService,
	dashboard *service.DashboardService,
	catalog Catalog,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		saleService:     saleService,
		purchaseService: purchaseService,
		dashboard:       dashboard,
		catalog:         catalog,
		verifier:        verifier,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(auth.Middleware(h.verifier))
	{
		v1.POST("/sales", h.recordSale)
		v1.GET("/sales", h.listBills)
		v1.GET("/sales/:id", h.getBill)

		v1.POST("/purchase-orders", h.createPurchaseOrder)
		v1.GET("/purchase-orders", h.listPurchaseOrders)
		v1.GET("/purchase-orders/my", h.listMyPurchaseOrders)
		v1.GET("/purchase-orders/:id", h.getPurchaseOrder)
		v1.PATCH("/purchase-orders/:id", h.changePurchaseOrderStatus)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.GET("/dashboard/sales-summary", h.salesSummary)
		v1.GET("/dashboard/top-product", h.topProduct)
		v1.GET("/dashboard/profit", h.profit)
		v1.GET("/dashboard/total-bills", h.totalBills)
		v1.GET("/dashboard/low-stock", h.lowStock)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// recordSale handles sale creation
func (h *Handler) recordSale(c *gin.Context) {
	actor, ok := auth.ActorFromGin(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: user not authenticated"})
		return
	}

	var req service.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.saleService.RecordSale(c.Request.Context(), &req, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// getBill handles get bill by ID
func (h *Handler) getBill(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	billID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bill ID"})
		return
	}

	resp, err := h.saleService.GetBill(c.Request.Context(), billID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// listBills lists bills visible to the actor; an invoice query looks one
// bill up by its invoice number instead
func (h *Handler) listBills(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	if invoice := c.Query("invoice"); invoice != "" {
		resp, err := h.saleService.FindBillByInvoice(c.Request.Context(), invoice, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	bills, err := h.saleService.ListBills(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bills": bills})
}

// createPurchaseOrder handles purchase order creation
func (h *Handler) createPurchaseOrder(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.purchaseService.CreateOrder(c.Request.Context(), &req, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// listPurchaseOrders lists all orders (admin only)
func (h *Handler) listPurchaseOrders(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	orders, err := h.purchaseService.ListOrders(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// listMyPurchaseOrders lists the actor's own orders
func (h *Handler) listMyPurchaseOrders(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	orders, err := h.purchaseService.ListMyOrders(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getPurchaseOrder retrieves one order with its creator's details
func (h *Handler) getPurchaseOrder(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	orderID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	order, err := h.purchaseService.GetOrder(c.Request.Context(), orderID, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// changePurchaseOrderStatus handles status transitions
func (h *Handler) changePurchaseOrderStatus(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	orderID, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	order, err := h.purchaseService.ChangeStatus(c.Request.Context(), orderID, req.Status, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// listProducts lists the catalog with stock levels
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalog.GetProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct retrieves one product
func (h *Handler) getProduct(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product ID"})
		return
	}

	product, err := h.catalog.GetProductByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":   product,
		"low_stock": product.LowStock(),
	})
}

// salesSummary returns per-day sales totals
func (h *Handler) salesSummary(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	rows, err := h.dashboard.SalesSummary(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": rows})
}

// topProduct returns the highest-selling product
func (h *Handler) topProduct(c *gin.Context) {
	top, err := h.dashboard.TopProduct(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"top_product": top})
}

// profit returns profit (admin) or own revenue for a range
func (h *Handler) profit(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	result, err := h.dashboard.Profit(c.Request.Context(), c.Query("range"), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// totalBills counts bills visible to the actor
func (h *Handler) totalBills(c *gin.Context) {
	actor, _ := auth.ActorFromGin(c)

	count, err := h.dashboard.TotalBills(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_bills": count})
}

// lowStock lists products needing replenishment
func (h *Handler) lowStock(c *gin.Context) {
	products, err := h.dashboard.LowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// respondError maps the failure taxonomy onto HTTP statuses. Messages are
// user-facing and displayed verbatim by the caller.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrInsufficientStock):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, models.ErrInvalidTransition):
		status = http.StatusConflict
		message = err.Error()
	}

	c.JSON(status, gin.H{"error": message})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

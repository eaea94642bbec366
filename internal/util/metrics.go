package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_recorded_total",
		Help: "Total number of bills recorded",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of rejected sale attempts",
	}, []string{"reason"})

	SaleAmountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_amount_total",
		Help: "Cumulative amount of all recorded bills",
	})

	SaleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_latency_seconds",
		Help:    "Latency of the record sale operation",
		Buckets: prometheus.DefBuckets,
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low stock signals emitted",
	})

	PurchaseOrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "purchase_orders_created_total",
		Help: "Total number of purchase orders created",
	})

	PurchaseOrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_order_transitions_total",
		Help: "Total number of purchase order status transitions",
	}, []string{"status"})

	PurchaseOrderTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_order_transitions_rejected_total",
		Help: "Total number of refused purchase order transitions",
	}, []string{"reason"})

	SupplierNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "supplier_notifications_total",
		Help: "Total number of supplier notification handoffs",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

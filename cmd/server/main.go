package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory-service/config"
	"inventory-service/internal/api"
	"inventory-service/internal/auth"
	"inventory-service/internal/broker"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"
	"inventory-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting inventory service")

	tp, err := util.InitTracer("inventory-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	saleProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer saleProducer.Close()
	orderProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
	defer orderProducer.Close()
	log.Println("Kafka producers initialized")

	salePublisher := broker.NewEventPublisher(saleProducer)
	orderPublisher := broker.NewEventPublisher(orderProducer)

	stockCache := service.NewStockCache(db, redisClient)
	saleService := service.NewSaleService(db, salePublisher, redisClient, stockCache, cfg.Business.InvoicePrefix)
	purchaseService := service.NewPurchaseService(db, orderPublisher)
	dashboardService := service.NewDashboardService(db, stockCache)
	catalog := service.NewCachedCatalog(db, stockCache)

	ctx := context.Background()
	if err := stockCache.SyncAll(ctx); err != nil {
		log.Printf("Failed to sync stock to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	notifyConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders, cfg.Kafka.NotificationGroup)
	notificationWorker := worker.NewNotificationWorker(notifyConsumer, service.NewLogNotifier())
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	alertConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.StockAlertGroup)
	stockAlertWorker := worker.NewStockAlertWorker(alertConsumer, stockCache)
	go func() {
		if err := stockAlertWorker.Start(workerCtx); err != nil {
			log.Printf("Stock alert worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	handler := api.NewHandler(saleService, purchaseService, dashboardService, catalog, verifier)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	notificationWorker.Stop()
	stockAlertWorker.Stop()

	log.Println("Server exited")
}

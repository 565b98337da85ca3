package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dropship-service/internal/config"
	"dropship-service/internal/connectors"
	"dropship-service/internal/database"
	"dropship-service/internal/handlers"
	"dropship-service/internal/middleware"
	"dropship-service/internal/repository"
	"dropship-service/internal/secrets"
	"dropship-service/internal/services"
)

func main() {
	// Load .env in local development; ignore when absent
	_ = godotenv.Load()

	cfg := config.Load()

	logger := setupLogger(cfg.Environment)

	db, err := database.Connect(cfg.DatabaseURL, cfg.Environment == "development")
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Printf("Warning: Auto-migration failed: %v", err)
	}
	logger.Info("database models migrated")

	// Optional inventory cache
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, inventory caching disabled")
			redisClient = nil
		}
		cancel()
	}

	// Optional supplier credential store
	var secretManager *secrets.GCPSecretManager
	if cfg.GCPProjectID != "" {
		secretManager, err = secrets.NewGCPSecretManager(context.Background(), cfg.GCPProjectID)
		if err != nil {
			logger.WithError(err).Warn("secret manager unavailable, credential storage disabled")
			secretManager = nil
		}
	}

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)

	// Connector registry and services
	registry := connectors.NewRegistry(logger)
	supplierService := services.NewSupplierService(supplierRepo, registry, secretManager, logger)
	routingService := services.NewRoutingService(orderRepo, productRepo, supplierRepo, registry, logger)
	trackingService := services.NewTrackingService(orderRepo, supplierRepo, registry, logger)
	syncService := services.NewSyncService(supplierRepo, productRepo, registry, redisClient, logger)
	priceSyncService := services.NewPriceSyncService(supplierRepo, productRepo, logger)

	// Reconnect previously onboarded suppliers
	startupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	if count, err := supplierService.RegisterActiveSuppliers(startupCtx); err != nil {
		logger.WithError(err).Warn("supplier reconnect failed")
	} else {
		logger.WithField("registered", count).Info("suppliers reconnected")
	}
	cancel()

	// Handlers
	healthHandler := handlers.NewHealthHandler(db)
	supplierHandler := handlers.NewSupplierHandler(supplierService, supplierRepo)
	connectorHandler := handlers.NewConnectorHandler(registry)
	orderHandler := handlers.NewOrderHandler(orderRepo, productRepo)
	routingHandler := handlers.NewRoutingHandler(routingService)
	trackingHandler := handlers.NewTrackingHandler(trackingService)
	syncHandler := handlers.NewSyncHandler(syncService, priceSyncService)
	demoHandler := handlers.NewDemoHandler(registry, supplierRepo, productRepo, orderRepo)

	router := setupRouter(cfg, logger, healthHandler, supplierHandler, connectorHandler, orderHandler, routingHandler, trackingHandler, syncHandler, demoHandler)

	logger.WithFields(logrus.Fields{"port": cfg.Port, "environment": cfg.Environment}).Info("dropship service starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupLogger(environment string) *logrus.Entry {
	l := logrus.New()
	if environment == "production" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l.WithField("service", "dropship")
}

// setupRouter configures the HTTP router
func setupRouter(
	cfg *config.Config,
	logger *logrus.Entry,
	healthHandler *handlers.HealthHandler,
	supplierHandler *handlers.SupplierHandler,
	connectorHandler *handlers.ConnectorHandler,
	orderHandler *handlers.OrderHandler,
	routingHandler *handlers.RoutingHandler,
	trackingHandler *handlers.TrackingHandler,
	syncHandler *handlers.SyncHandler,
	demoHandler *handlers.DemoHandler,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		suppliers := v1.Group("/suppliers")
		{
			suppliers.GET("", supplierHandler.List)
			suppliers.POST("", supplierHandler.Create)
			suppliers.GET("/:id", supplierHandler.Get)
			suppliers.POST("/:id/register", supplierHandler.Register)
			suppliers.POST("/:id/unregister", supplierHandler.Unregister)
			suppliers.POST("/:id/test", supplierHandler.TestConnection)
			suppliers.PUT("/:id/credentials", supplierHandler.UpdateCredentials)

			suppliers.POST("/:id/sync/catalog", syncHandler.SyncCatalog)
			suppliers.POST("/:id/sync/inventory", syncHandler.SyncInventory)
			suppliers.POST("/:id/sync/prices", syncHandler.SyncPrices)
		}

		connectorsGroup := v1.Group("/connectors")
		{
			connectorsGroup.GET("", connectorHandler.List)
			connectorsGroup.GET("/search", connectorHandler.Search)
			connectorsGroup.GET("/best-supplier", connectorHandler.BestSupplier)
			connectorsGroup.GET("/health", connectorHandler.Health)
		}

		orders := v1.Group("/orders")
		{
			orders.GET("", orderHandler.List)
			orders.POST("", orderHandler.Create)
			orders.GET("/:id", orderHandler.Get)
			orders.GET("/:id/sub-orders", orderHandler.SubOrders)

			orders.GET("/:id/routing/analysis", routingHandler.Analyze)
			orders.GET("/:id/routing/options", routingHandler.Options)
			orders.POST("/:id/route", routingHandler.Route)

			orders.GET("/:id/tracking", trackingHandler.Track)
		}

		routing := v1.Group("/routing")
		{
			routing.GET("/analytics", routingHandler.Analytics)
		}

		tracking := v1.Group("/tracking")
		{
			tracking.POST("/bulk", trackingHandler.BulkTrack)
			tracking.PUT("/sub-orders/:id", trackingHandler.UpdateTrackingNumber)
		}

		sync := v1.Group("/sync")
		{
			sync.POST("/all", syncHandler.SyncAll)
			sync.POST("/inventory", syncHandler.SyncAllInventories)
			sync.POST("/prices", syncHandler.SyncAllPrices)
		}

		demoGroup := v1.Group("/demo")
		{
			demoGroup.POST("/setup", demoHandler.Setup)
			demoGroup.POST("/sub-orders/:id/advance", demoHandler.AdvanceSubOrder)
		}
	}

	return router
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/config"
	"github.com/minishop/commerce-services/internal/httpserver"
	"github.com/minishop/commerce-services/internal/inventory"
	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/pkg/blob"
	"github.com/minishop/commerce-services/internal/pkg/broker"
	"github.com/minishop/commerce-services/internal/pkg/cache"
	"github.com/minishop/commerce-services/internal/pkg/database/postgres"
	"github.com/minishop/commerce-services/internal/pkg/grpchealth"
	"github.com/minishop/commerce-services/internal/pkg/logger"
	"github.com/minishop/commerce-services/internal/product"

	invH "github.com/minishop/commerce-services/internal/inventory/handler"
	invRepoPkg "github.com/minishop/commerce-services/internal/inventory/repository"
	invUCPkg "github.com/minishop/commerce-services/internal/inventory/usecase"

	prodH "github.com/minishop/commerce-services/internal/product/handler"
	prodRepoPkg "github.com/minishop/commerce-services/internal/product/repository"
	prodUCPkg "github.com/minishop/commerce-services/internal/product/usecase"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv(config.ProductService)

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
		InitialFields:     map[string]interface{}{"service": cfg.Server.ServiceName},
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}
	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	httpserver.InstallPropagator()
	ctx := context.Background()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(ctx, &postgres.Config{
		DSN:             cfg.Postgres.DSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		MaxRetries:      cfg.Postgres.ConnectMaxRetries,
		RetryDelay:      cfg.Postgres.ConnectRetryDelay,
		Schema:          prodRepoPkg.Schema,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis (optional)
	var listCache cache.Cache = cache.Nop{}
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis, product list caching disabled", zap.Error(err))
		} else {
			defer redisCache.Close()
			listCache = redisCache
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 5. Initialize Kafka Producer (optional)
	var publisher broker.Publisher = broker.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = broker.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.StockAlertsTopic)
		appLogger.Info("Kafka producer ready",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.StockAlertsTopic))
	}
	defer publisher.Close()

	// 6. Initialize Azure Blob Storage (optional)
	var images product.ImageStore
	if cfg.Azure.Configured() {
		store, err := blob.NewAzureStore(blob.AzureConfig{
			AccountName:   cfg.Azure.AccountName,
			AccountKey:    cfg.Azure.AccountKey,
			ServiceURL:    cfg.Azure.ServiceURL(),
			ContainerName: cfg.Azure.ContainerName,
		})
		if err != nil {
			appLogger.Warn("Azure Blob Storage client could not be created, image uploads disabled", zap.Error(err))
		} else {
			if err := store.EnsureContainer(ctx); err != nil {
				appLogger.Warn("Could not ensure blob container", zap.String("container", cfg.Azure.ContainerName), zap.Error(err))
			}
			images = store
			appLogger.Info("Azure Blob Storage ready", zap.String("container", cfg.Azure.ContainerName))
		}
	} else {
		appLogger.Warn("Azure Storage credentials not set, image uploads disabled")
	}

	// 7. Initialize Metrics
	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg, metrics.ProductAppName)
	productMetrics := metrics.NewProductMetrics(reg, metrics.ProductAppName)

	// 8. Initialize UseCases
	alerter := invUCPkg.NewLowStockAlerter(inventory.RestockThreshold, publisher, productMetrics, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepoPkg.NewPGRepository(db), prodUCPkg.Options{
		Cache:   listCache,
		ListTTL: cfg.Redis.ListTTL,
		Images:  images,
		SASTTL:  cfg.Azure.SASExpiry(),
		Alerter: alerter,
		Metrics: productMetrics,
		Logger:  appLogger,
	})
	invUC := invUCPkg.NewInventoryUseCase(invRepoPkg.NewPGRepository(db), listCache, alerter, productMetrics, appLogger)

	if n, err := prodUC.LoadStockGauges(ctx); err != nil {
		appLogger.Warn("Could not initialize stock gauges", zap.Error(err))
	} else {
		appLogger.Info("Initialized stock gauges", zap.Int("products", n))
	}

	// 9. Initialize HTTP Server
	app := httpserver.New(httpserver.Config{
		Service:     config.ProductService,
		Welcome:     "Welcome to the Product Service!",
		Logger:      appLogger,
		Gatherer:    reg,
		HTTPMetrics: httpMetrics,
	})
	prodH.NewProductHandler(prodUC, appLogger).Register(app)
	invH.NewInventoryHandler(invUC, appLogger).Register(app)

	// 10. Start gRPC health server
	health := grpchealth.New(config.ProductService, appLogger)
	go func() {
		if err := health.ListenAndServe(cfg.Server.GRPCPort); err != nil {
			appLogger.Error("gRPC health server stopped", zap.Error(err))
		}
	}()

	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.Server.HTTPPort))
		if err := app.Listen(":" + cfg.Server.HTTPPort); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()
	health.SetServing()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("HTTP shutdown failed", zap.Error(err))
	}
	health.Stop()
	alerter.Wait()
	appLogger.Info("Server stopped")
}

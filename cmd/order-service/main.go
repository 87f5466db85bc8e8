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
	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/pkg/broker"
	"github.com/minishop/commerce-services/internal/pkg/database/postgres"
	"github.com/minishop/commerce-services/internal/pkg/grpchealth"
	"github.com/minishop/commerce-services/internal/pkg/logger"

	orderH "github.com/minishop/commerce-services/internal/order/handler"
	"github.com/minishop/commerce-services/internal/order/productclient"
	orderRepoPkg "github.com/minishop/commerce-services/internal/order/repository"
	orderUCPkg "github.com/minishop/commerce-services/internal/order/usecase"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv(config.OrderService)

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
		Schema:          orderRepoPkg.Schema,
	}, appLogger)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Kafka Producer (optional)
	var publisher broker.Publisher = broker.NopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = broker.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic)
		appLogger.Info("Kafka producer ready",
			zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.OrdersTopic))
	}
	defer publisher.Close()

	// 5. Initialize Metrics
	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg, metrics.OrderAppName)
	orderMetrics := metrics.NewOrderMetrics(reg, metrics.OrderAppName)

	// 6. Initialize UseCases
	products := productclient.New(cfg.ProductService.BaseURL, cfg.ProductService.Timeout, orderMetrics, appLogger)
	appLogger.Info("Product Service client ready", zap.String("base_url", cfg.ProductService.BaseURL))
	orderUC := orderUCPkg.NewOrderUseCase(orderRepoPkg.NewPGRepository(db), products, publisher, orderMetrics, appLogger)

	// 7. Initialize HTTP Server
	app := httpserver.New(httpserver.Config{
		Service:     config.OrderService,
		Welcome:     "Welcome to the Order Service!",
		Logger:      appLogger,
		Gatherer:    reg,
		HTTPMetrics: httpMetrics,
	})
	orderH.NewOrderHandler(orderUC, appLogger).Register(app)

	// 8. Start gRPC health server
	health := grpchealth.New(config.OrderService, appLogger)
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
	appLogger.Info("Server stopped")
}

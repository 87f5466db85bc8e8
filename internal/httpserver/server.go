package httpserver

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/pkg/logger"
)

const (
	MetricsPath  = "/metrics"
	maxBodyBytes = 10 * 1024 * 1024
)

type Config struct {
	// Service is reported by /health, e.g. "product-service".
	Service string
	// Welcome is the message served on /.
	Welcome     string
	Logger      logger.ZapLogger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Detail writes status with a {"detail": msg} body.
func Detail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Detail: msg})
}

// New builds the fiber app with the shared middleware chain and system routes.
// Domain handlers register their own routes on the returned app.
func New(cfg Config) *fiber.App {
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	errorHandler := ErrorHandler(log)
	app := fiber.New(fiber.Config{
		AppName:               cfg.Service,
		DisableStartupMessage: true,
		BodyLimit:             maxBodyBytes,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler,
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(Observability(log, cfg.HTTPMetrics, errorHandler))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": cfg.Welcome})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.Service})
	})
	if cfg.Gatherer != nil {
		app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	return app
}

// ErrorHandler renders errors that escaped a handler.
func ErrorHandler(log logger.ZapLogger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return Detail(c, fe.Code, fe.Message)
		}
		RequestLogger(c, log).Error("Unhandled request error", zap.Error(err))
		return Detail(c, fiber.StatusInternalServerError, "Internal Server Error")
	}
}

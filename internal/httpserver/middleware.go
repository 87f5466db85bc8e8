package httpserver

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/pkg/logger"
)

const (
	loggerKey    = "request_logger"
	requestIDKey = "requestid"
	unmatched    = "unmatched"
)

var propagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})

// InstallPropagator makes W3C trace context the process-wide propagator.
func InstallPropagator() {
	otel.SetTextMapPropagator(propagator)
}

// Observability extracts W3C trace context, attaches a request-scoped logger,
// writes the access log and records HTTP metrics. Errors returned further down
// the chain are rendered here so the final status code is known.
func Observability(base logger.ZapLogger, m *metrics.HTTPMetrics, onError fiber.ErrorHandler) fiber.Handler {
	tracer := otel.Tracer("github.com/minishop/commerce-services/internal/httpserver")

	return func(c *fiber.Ctx) error {
		if c.Path() == MetricsPath {
			return c.Next()
		}

		ctx := propagator.Extract(c.UserContext(), fiberCarrier{c})
		ctx, span := tracer.Start(ctx, c.Method()+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		fields := []zap.Field{zap.String("request_id", requestID(c))}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}
		reqLogger := base.With(fields...)
		c.Locals(loggerKey, reqLogger)
		c.SetUserContext(ctx)

		var done func()
		if m != nil {
			done = m.Start(c.Method())
		}
		start := time.Now()

		if err := c.Next(); err != nil {
			span.RecordError(err)
			if herr := onError(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		route := routeTemplate(c)

		if done != nil {
			done()
			m.Observe(c.Method(), route, status, elapsed.Seconds())
		}

		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "server error")
		}

		reqLogger.Info("http_access",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", elapsed),
			zap.String("ip", c.IP()),
		)
		return nil
	}
}

// routeTemplate is the matched route pattern, so label cardinality stays bounded.
func routeTemplate(c *fiber.Ctx) string {
	r := c.Route()
	if r == nil || (r.Path == "/" && c.Path() != "/") {
		return unmatched
	}
	return r.Path
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestIDKey).(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// RequestLogger returns the logger bound to the request, or fallback.
func RequestLogger(c *fiber.Ctx, fallback logger.ZapLogger) logger.ZapLogger {
	if l, ok := c.Locals(loggerKey).(logger.ZapLogger); ok {
		return l
	}
	if fallback == nil {
		return logger.NewNop()
	}
	return fallback
}

// Context returns the request context carrying the extracted trace.
func Context(c *fiber.Ctx) context.Context {
	return c.UserContext()
}

type fiberCarrier struct{ c *fiber.Ctx }

func (f fiberCarrier) Get(key string) string { return f.c.Get(key) }

func (f fiberCarrier) Set(key, value string) { f.c.Request().Header.Set(key, value) }

func (f fiberCarrier) Keys() []string {
	keys := make([]string, 0)
	f.c.Request().Header.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

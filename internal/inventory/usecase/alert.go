package usecase

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/pkg/broker"
	"github.com/minishop/commerce-services/internal/pkg/logger"
)

const (
	EventLowStock  = "LowStock"
	publishTimeout = 5 * time.Second
)

type LowStockPayload struct {
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product_name"`
	StockQuantity int    `json:"stock_quantity"`
	Threshold     int    `json:"threshold"`
}

// LowStockAlerter logs, counts and publishes an event for products under threshold.
// Events are published in the background; the caller never waits on the broker.
type LowStockAlerter struct {
	threshold int
	publisher broker.Publisher
	metrics   *metrics.ProductMetrics
	logger    logger.ZapLogger
	wg        sync.WaitGroup
}

func NewLowStockAlerter(threshold int, pub broker.Publisher, m *metrics.ProductMetrics, log logger.ZapLogger) *LowStockAlerter {
	if pub == nil {
		pub = broker.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &LowStockAlerter{
		threshold: threshold,
		publisher: pub,
		metrics:   m,
		logger:    log,
	}
}

func (a *LowStockAlerter) CheckLowStock(ctx context.Context, p *model.Product) bool {
	if p.StockQuantity >= a.threshold {
		return false
	}

	a.logger.Warn("ALERT: Product stock is below restock threshold",
		zap.Int64("product_id", p.ProductID), zap.String("name", p.Name),
		zap.Int("stock_quantity", p.StockQuantity), zap.Int("threshold", a.threshold))
	if a.metrics != nil {
		a.metrics.LowStockAlert(p)
	}

	event, err := broker.NewEvent(EventLowStock, LowStockPayload{
		ProductID:     p.ProductID,
		ProductName:   p.Name,
		StockQuantity: p.StockQuantity,
		Threshold:     a.threshold,
	})
	if err != nil {
		a.logger.Error("Failed to build low stock event", zap.Error(err))
		return true
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := a.publisher.Publish(pubCtx, strconv.FormatInt(p.ProductID, 10), event); err != nil {
			a.logger.Error("Failed to publish low stock event",
				zap.Int64("product_id", p.ProductID), zap.Error(err))
		}
	}()
	return true
}

// Wait blocks until in-flight event publishes finish.
func (a *LowStockAlerter) Wait() {
	a.wg.Wait()
}

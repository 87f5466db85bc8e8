package usecase

import (
	"context"
	"errors"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/inventory"
	"github.com/minishop/commerce-services/internal/inventory/dto"
	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/pkg/cache"
	"github.com/minishop/commerce-services/internal/pkg/logger"
	"github.com/minishop/commerce-services/internal/product"
)

type inventoryUseCase struct {
	repo    inventory.Repository
	cache   cache.Cache
	alerter product.StockAlerter
	metrics *metrics.ProductMetrics
	logger  logger.ZapLogger
}

func NewInventoryUseCase(repo inventory.Repository, c cache.Cache, alerter product.StockAlerter, m *metrics.ProductMetrics, log logger.ZapLogger) inventory.UseCase {
	if c == nil {
		c = cache.Nop{}
	}
	if m == nil {
		m = metrics.NewProductMetrics(prometheus.NewRegistry(), metrics.ProductAppName)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &inventoryUseCase{
		repo:    repo,
		cache:   c,
		alerter: alerter,
		metrics: m,
		logger:  log,
	}
}

func (uc *inventoryUseCase) DeductStock(ctx context.Context, productID int64, quantity int) (*model.Product, error) {
	if !validQuantity(quantity) {
		uc.metrics.StockDeducted(productID, metrics.StatusInvalidQuantity)
		return nil, product.ErrInvalidQuantity
	}

	p, _, err := uc.repo.AdjustStock(ctx, productID, -quantity, model.MovementDeduct)
	if err != nil {
		return nil, uc.classify(err, productID, quantity, "Could not deduct stock.", uc.metrics.StockDeducted)
	}

	uc.logger.Info("Stock deducted",
		zap.Int64("product_id", productID), zap.Int("quantity", quantity), zap.Int("new_stock", p.StockQuantity))
	uc.metrics.StockDeducted(productID, metrics.StatusSuccess)
	uc.invalidateListCache(ctx)
	uc.metrics.SetStock(p)
	if uc.alerter != nil {
		uc.alerter.CheckLowStock(ctx, p)
	}
	return p, nil
}

func (uc *inventoryUseCase) AddStock(ctx context.Context, productID int64, quantity int) (*model.Product, error) {
	if !validQuantity(quantity) {
		uc.metrics.StockAdded(productID, metrics.StatusInvalidQuantity)
		return nil, product.ErrInvalidQuantity
	}

	p, _, err := uc.repo.AdjustStock(ctx, productID, quantity, model.MovementAdd)
	if err != nil {
		return nil, uc.classify(err, productID, quantity, "Could not add stock.", uc.metrics.StockAdded)
	}

	uc.logger.Info("Stock added",
		zap.Int64("product_id", productID), zap.Int("quantity", quantity), zap.Int("new_stock", p.StockQuantity))
	uc.metrics.StockAdded(productID, metrics.StatusSuccess)
	uc.invalidateListCache(ctx)
	uc.metrics.SetStock(p)
	return p, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, error) {
	p, err := uc.repo.FindProduct(ctx, filters.ProductID)
	if err != nil {
		return nil, &product.PersistenceError{Message: "Could not list stock movements.", Err: err}
	}
	if p == nil {
		return nil, product.ErrNotFound
	}

	items, err := uc.repo.ListMovements(ctx, filters)
	if err != nil {
		uc.logger.Error("Error listing stock movements", zap.Int64("product_id", filters.ProductID), zap.Error(err))
		return nil, &product.PersistenceError{Message: "Could not list stock movements.", Err: err}
	}
	return items, nil
}

// classify records the failure metric and turns storage faults into a PersistenceError.
func (uc *inventoryUseCase) classify(err error, productID int64, quantity int, msg string, record func(int64, string)) error {
	var insufficient *product.InsufficientStockError
	switch {
	case errors.Is(err, product.ErrNotFound):
		uc.logger.Warn("Stock change for non-existent product", zap.Int64("product_id", productID))
		record(productID, metrics.StatusProductNotFound)
		return err
	case errors.As(err, &insufficient):
		uc.logger.Warn("Insufficient stock",
			zap.Int64("product_id", productID), zap.String("name", insufficient.ProductName),
			zap.Int("available", insufficient.Available), zap.Int("requested", quantity))
		record(productID, metrics.StatusInsufficientStock)
		return err
	default:
		uc.logger.Error("Error changing stock", zap.Int64("product_id", productID), zap.Error(err))
		record(productID, metrics.StatusFailure)
		return &product.PersistenceError{Message: msg, Err: err}
	}
}

// validQuantity bounds a change to what the INTEGER stock column can hold.
func validQuantity(quantity int) bool {
	return quantity > 0 && quantity <= math.MaxInt32
}

func (uc *inventoryUseCase) invalidateListCache(ctx context.Context) {
	if err := product.InvalidateListCache(ctx, uc.cache); err != nil {
		uc.logger.Warn("Product list cache invalidation failed", zap.Error(err))
	}
}

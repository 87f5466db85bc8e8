package inventory

import (
	"context"

	"github.com/minishop/commerce-services/internal/inventory/dto"
	"github.com/minishop/commerce-services/internal/model"
)

type Repository interface {
	// FindProduct returns (nil, nil) when the product does not exist.
	FindProduct(ctx context.Context, productID int64) (*model.Product, error)

	// AdjustStock applies delta to the product's stock and logs the movement in
	// one transaction. It fails with product.ErrNotFound, or with a
	// *product.InsufficientStockError when the result would be negative.
	AdjustStock(ctx context.Context, productID int64, delta int, movementType string) (*model.Product, *model.StockMovement, error)

	// Movements / Audit
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, error)
}

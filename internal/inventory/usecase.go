package inventory

import (
	"context"

	"github.com/minishop/commerce-services/internal/inventory/dto"
	"github.com/minishop/commerce-services/internal/model"
)

// RestockThreshold is the stock level below which a low-stock alert fires.
const RestockThreshold = 5

type UseCase interface {
	DeductStock(ctx context.Context, productID int64, quantity int) (*model.Product, error)
	AddStock(ctx context.Context, productID int64, quantity int) (*model.Product, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.StockMovement, error)
}

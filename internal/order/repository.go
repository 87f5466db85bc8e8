package order

import (
	"context"

	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/order/dto"
)

type Repository interface {
	// Create stores the order and its items in one transaction.
	Create(ctx context.Context, o *model.Order) (*model.Order, error)
	// FindByID returns (nil, nil) when the order does not exist. Items are loaded.
	FindByID(ctx context.Context, id int64) (*model.Order, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*model.Order, error)
	// Delete removes the order and its items; false when nothing was deleted.
	Delete(ctx context.Context, id int64) (bool, error)
}

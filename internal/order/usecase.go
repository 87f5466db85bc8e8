package order

import (
	"context"

	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/order/dto"
)

const EventOrderCreated = "OrderCreated"

type UseCase interface {
	CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	GetOrderItems(ctx context.Context, id int64) ([]model.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// ProductClient is the order service's view of the product service.
type ProductClient interface {
	GetProduct(ctx context.Context, productID int64) (*model.Product, error)
	DeductStock(ctx context.Context, productID int64, quantity int) error
	AddStock(ctx context.Context, productID int64, quantity int) error
}

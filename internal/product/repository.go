package product

import (
	"context"

	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/product/dto"
)

// Repository finders return (nil, nil) when the product does not exist.
type Repository interface {
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, error)
	// Update writes only the fields set on input.
	Update(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	// Delete removes the product and its stock history; false when nothing was deleted.
	Delete(ctx context.Context, id int64) (bool, error)
	SetImageURL(ctx context.Context, id int64, url string) (*model.Product, error)
}

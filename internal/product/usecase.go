package product

import (
	"context"
	"time"

	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/product/dto"
)

const (
	ListCachePrefix = "products:list:"
	// ListCachePattern matches every cached product list.
	ListCachePattern = ListCachePrefix + "*"
	// ListGenerationKey versions list cache keys. It sits outside ListCachePattern.
	ListGenerationKey = "products:list-generation"
)

// AllowedImageTypes are the content types accepted for product images.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/gif"}

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, input *dto.UploadImageInput) (*model.Product, error)

	// LoadStockGauges publishes the stock of every stored product; returns how many.
	LoadStockGauges(ctx context.Context) (int, error)
}

// ImageStore is the blob storage behind product images.
type ImageStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) error
	SignedURL(name string, expiry time.Duration) (string, error)
}

// StockAlerter raises a low-stock alert when p is under the restock threshold.
type StockAlerter interface {
	CheckLowStock(ctx context.Context, p *model.Product) bool
}

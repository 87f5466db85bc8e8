package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/pkg/cache"
	"github.com/minishop/commerce-services/internal/pkg/logger"
	"github.com/minishop/commerce-services/internal/product"
	"github.com/minishop/commerce-services/internal/product/dto"
)

const (
	maxNameLength  = 255
	defaultImgExt  = ".jpg"
	blobTimeLayout = "20060102150405"
)

type Options struct {
	Cache   cache.Cache
	ListTTL time.Duration
	Images  product.ImageStore // nil when storage is not configured
	SASTTL  time.Duration
	Alerter product.StockAlerter
	Metrics *metrics.ProductMetrics
	Logger  logger.ZapLogger
	Clock   func() time.Time
}

type productUseCase struct {
	repo    product.Repository
	cache   cache.Cache
	listTTL time.Duration
	images  product.ImageStore
	sasTTL  time.Duration
	alerter product.StockAlerter
	metrics *metrics.ProductMetrics
	logger  logger.ZapLogger
	now     func() time.Time
}

func NewProductUseCase(repo product.Repository, opts Options) product.UseCase {
	uc := &productUseCase{
		repo:    repo,
		cache:   opts.Cache,
		listTTL: opts.ListTTL,
		images:  opts.Images,
		sasTTL:  opts.SASTTL,
		alerter: opts.Alerter,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     opts.Clock,
	}
	if uc.cache == nil {
		uc.cache = cache.Nop{}
	}
	if uc.logger == nil {
		uc.logger = logger.NewNop()
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	if uc.metrics == nil {
		uc.metrics = metrics.NewProductMetrics(prometheus.NewRegistry(), metrics.ProductAppName)
	}
	return uc
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	if err := validateFields(&input.Name, input.Price.IsNegative(), &input.StockQuantity); err != nil {
		uc.metrics.ProductCreated(metrics.StatusValidationError)
		return nil, err
	}

	uc.logger.Info("Creating product", zap.String("name", input.Name))
	p, err := uc.repo.Create(ctx, &model.Product{
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
	})
	if err != nil {
		uc.logger.Error("Error creating product", zap.Error(err))
		uc.metrics.ProductCreated(metrics.StatusFailure)
		return nil, &product.PersistenceError{Message: "Could not create product.", Err: err}
	}

	uc.logger.Info("Product created", zap.Int64("product_id", p.ProductID), zap.String("name", p.Name))
	uc.metrics.ProductCreated(metrics.StatusSuccess)
	uc.invalidateListCache(ctx)
	uc.metrics.SetStock(p)
	return p, nil
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.find(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.metrics.SetStock(p)
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, error) {
	gen, key, cacheable := uc.listCacheKey(ctx, filters)
	if cacheable {
		var cached []model.Product
		hit, err := uc.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			uc.logger.Warn("Product list cache read failed", zap.Error(err))
		}
		// Gauges are left alone on a hit; mutations keep them current.
		if hit && err == nil {
			return cached, nil
		}
	}

	products, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		uc.logger.Error("Error listing products", zap.Error(err))
		return nil, &product.PersistenceError{Message: "Could not list products.", Err: err}
	}

	// A stock change that committed during FindAll bumped the generation;
	// these rows may predate it, so neither the cache nor the gauges take them.
	if !cacheable {
		uc.setStockAll(products)
	} else if uc.generationUnchanged(ctx, gen) {
		uc.setStockAll(products)
		if err := uc.cache.SetJSON(ctx, key, products, uc.listTTL); err != nil {
			uc.logger.Warn("Product list cache write failed", zap.Error(err))
		}
	}

	uc.logger.Info("Listed products",
		zap.Int("count", len(products)), zap.Int("skip", filters.Skip),
		zap.Int("limit", filters.Limit), zap.String("search", filters.Search))
	return products, nil
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	priceNegative := input.Price != nil && input.Price.IsNegative()
	if err := validateFields(input.Name, priceNegative, input.StockQuantity); err != nil {
		uc.metrics.ProductUpdated(metrics.StatusValidationError)
		return nil, err
	}

	existing, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		uc.metrics.ProductUpdated(metrics.StatusFailure)
		return nil, &product.PersistenceError{Message: "Could not update product.", Err: err}
	}
	if existing == nil {
		uc.logger.Warn("Attempted to update non-existent product", zap.Int64("product_id", input.ID))
		uc.metrics.ProductUpdated(metrics.StatusNotFound)
		return nil, product.ErrNotFound
	}
	if !input.HasChanges() {
		uc.metrics.ProductUpdated(metrics.StatusSuccess)
		uc.metrics.SetStock(existing)
		return existing, nil
	}

	p, err := uc.repo.Update(ctx, input)
	if err != nil {
		uc.logger.Error("Error updating product", zap.Int64("product_id", input.ID), zap.Error(err))
		uc.metrics.ProductUpdated(metrics.StatusFailure)
		return nil, &product.PersistenceError{Message: "Could not update product.", Err: err}
	}
	if p == nil {
		// deleted between the lookup and the write
		uc.metrics.ProductUpdated(metrics.StatusNotFound)
		return nil, product.ErrNotFound
	}

	uc.logger.Info("Product updated", zap.Int64("product_id", p.ProductID))
	uc.metrics.ProductUpdated(metrics.StatusSuccess)
	uc.invalidateListCache(ctx)
	uc.metrics.SetStock(p)
	if p.StockQuantity != existing.StockQuantity && uc.alerter != nil {
		uc.alerter.CheckLowStock(ctx, p)
	}
	return p, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) error {
	existing, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		uc.metrics.ProductDeleted(metrics.StatusFailure)
		return &product.PersistenceError{Message: "An error occurred while deleting the product.", Err: err}
	}
	if existing == nil {
		uc.logger.Warn("Attempted to delete non-existent product", zap.Int64("product_id", id))
		uc.metrics.ProductDeleted(metrics.StatusNotFound)
		return product.ErrNotFound
	}

	deleted, err := uc.repo.Delete(ctx, id)
	if err != nil {
		uc.logger.Error("Error deleting product", zap.Int64("product_id", id), zap.Error(err))
		uc.metrics.ProductDeleted(metrics.StatusFailure)
		return &product.PersistenceError{Message: "An error occurred while deleting the product.", Err: err}
	}
	if !deleted {
		uc.metrics.ProductDeleted(metrics.StatusNotFound)
		return product.ErrNotFound
	}

	uc.logger.Info("Product deleted", zap.Int64("product_id", id), zap.String("name", existing.Name))
	uc.metrics.ProductDeleted(metrics.StatusSuccess)
	uc.invalidateListCache(ctx)
	uc.metrics.ClearStock(existing)
	return nil
}

func (uc *productUseCase) UploadImage(ctx context.Context, input *dto.UploadImageInput) (*model.Product, error) {
	if uc.images == nil {
		uc.metrics.ImageUploaded(input.ProductID, metrics.StatusStorageNotConfigured)
		return nil, product.ErrStorageUnavailable
	}

	existing, err := uc.repo.FindByID(ctx, input.ProductID)
	if err != nil {
		uc.metrics.ImageUploaded(input.ProductID, metrics.StatusFailure)
		return nil, &product.UploadError{Err: err}
	}
	if existing == nil {
		uc.logger.Warn("Product not found for image upload", zap.Int64("product_id", input.ProductID))
		uc.metrics.ImageUploaded(input.ProductID, metrics.StatusProductNotFound)
		return nil, product.ErrNotFound
	}

	if !allowedImageType(input.ContentType) {
		uc.metrics.ImageUploaded(input.ProductID, metrics.StatusInvalidFileType)
		return nil, product.ErrInvalidFileType
	}

	name := BlobName(input.ProductID, input.Filename, uc.now())
	uc.logger.Info("Uploading product image",
		zap.Int64("product_id", input.ProductID), zap.String("filename", input.Filename), zap.String("blob", name))

	p, err := uc.storeImage(ctx, input, name)
	if err != nil {
		uc.logger.Error("Error uploading image", zap.Int64("product_id", input.ProductID), zap.Error(err))
		uc.metrics.ImageUploaded(input.ProductID, metrics.StatusFailure)
		return nil, &product.UploadError{Err: err}
	}

	uc.logger.Info("Image uploaded and product updated", zap.Int64("product_id", p.ProductID))
	uc.metrics.ImageUploaded(input.ProductID, metrics.StatusSuccess)
	uc.invalidateListCache(ctx)
	return p, nil
}

func (uc *productUseCase) storeImage(ctx context.Context, input *dto.UploadImageInput, name string) (*model.Product, error) {
	if err := uc.images.Upload(ctx, name, input.ContentType, input.Data); err != nil {
		return nil, err
	}
	url, err := uc.images.SignedURL(name, uc.sasTTL)
	if err != nil {
		return nil, err
	}
	p, err := uc.repo.SetImageURL(ctx, input.ProductID, url)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("product %d disappeared during upload", input.ProductID)
	}
	return p, nil
}

func (uc *productUseCase) LoadStockGauges(ctx context.Context) (int, error) {
	products, err := uc.repo.FindAll(ctx, &dto.ProductFilters{})
	if err != nil {
		return 0, err
	}
	uc.setStockAll(products)
	return len(products), nil
}

func (uc *productUseCase) find(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, &product.PersistenceError{Message: "Could not fetch product.", Err: err}
	}
	if p == nil {
		uc.logger.Warn("Product not found", zap.Int64("product_id", id))
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (uc *productUseCase) setStockAll(products []model.Product) {
	for i := range products {
		uc.metrics.SetStock(&products[i])
	}
}

func (uc *productUseCase) invalidateListCache(ctx context.Context) {
	if err := product.InvalidateListCache(ctx, uc.cache); err != nil {
		uc.logger.Warn("Product list cache invalidation failed", zap.Error(err))
	}
}

// listCacheKey embeds the current list generation so an invalidation
// orphans every key built before it.
func (uc *productUseCase) listCacheKey(ctx context.Context, filters *dto.ProductFilters) (int64, string, bool) {
	gen, err := uc.cache.Counter(ctx, product.ListGenerationKey)
	if err != nil {
		uc.logger.Warn("Product list cache generation read failed", zap.Error(err))
		return 0, "", false
	}
	key, err := listCacheKey(gen, filters)
	if err != nil {
		return 0, "", false
	}
	return gen, key, true
}

func (uc *productUseCase) generationUnchanged(ctx context.Context, gen int64) bool {
	now, err := uc.cache.Counter(ctx, product.ListGenerationKey)
	if err != nil {
		uc.logger.Warn("Product list cache generation read failed", zap.Error(err))
		return false
	}
	return now == gen
}

func listCacheKey(gen int64, filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%x", product.ListCachePrefix, gen, md5.Sum(data)), nil
}

// BlobName is product-{id}-{YYYYMMDDHHMMSS}{ext}; ext defaults to .jpg.
func BlobName(productID int64, filename string, at time.Time) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = defaultImgExt
	}
	return fmt.Sprintf("product-%d-%s%s", productID, at.Format(blobTimeLayout), ext)
}

func allowedImageType(contentType string) bool {
	for _, t := range product.AllowedImageTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

func validateFields(name *string, priceNegative bool, stock *int) error {
	if name != nil {
		if *name == "" {
			return &product.ValidationError{Field: "name", Message: "must not be empty"}
		}
		if utf8.RuneCountInString(*name) > maxNameLength {
			return &product.ValidationError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxNameLength)}
		}
	}
	if priceNegative {
		return &product.ValidationError{Field: "price", Message: "must be greater than or equal to 0"}
	}
	if stock != nil && *stock < 0 {
		return &product.ValidationError{Field: "stock_quantity", Message: "must be greater than or equal to 0"}
	}
	if stock != nil && *stock > math.MaxInt32 {
		return &product.ValidationError{Field: "stock_quantity", Message: fmt.Sprintf("must be less than or equal to %d", math.MaxInt32)}
	}
	return nil
}

package handler

import (
	"errors"
	"io"
	"math"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/httpserver"
	"github.com/minishop/commerce-services/internal/pkg/logger"
	"github.com/minishop/commerce-services/internal/product"
	"github.com/minishop/commerce-services/internal/product/dto"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
	maxSearchLength  = 255
	imageFormField   = "file"
)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts the product routes on r.
func (h *ProductHandler) Register(r fiber.Router) {
	g := r.Group("/products")
	g.Post("/", h.CreateProduct)
	g.Get("/", h.ListProducts)
	g.Get("/:id", h.GetProduct)
	g.Put("/:id", h.UpdateProduct)
	g.Delete("/:id", h.DeleteProduct)
	g.Post("/:id/upload-image", h.UploadImage)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req dto.CreateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "Invalid request body")
	}
	if req.Price == nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "price: field required")
	}

	input := &dto.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
	}
	if req.StockQuantity != nil {
		input.StockQuantity = *req.StockQuantity
	}

	p, err := h.uc.CreateProduct(httpserver.Context(c), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	p, err := h.uc.GetProduct(httpserver.Context(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(p)
}

func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	skip, err := httpserver.QueryInt(c, "skip", 0, 0, math.MaxInt32)
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	limit, err := httpserver.QueryInt(c, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	search := c.Query("search")
	if len([]rune(search)) > maxSearchLength {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "search must be at most 255 characters")
	}

	products, err := h.uc.ListProducts(httpserver.Context(c), &dto.ProductFilters{
		Skip:   skip,
		Limit:  limit,
		Search: search,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	var req dto.UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "Invalid request body")
	}

	p, err := h.uc.UpdateProduct(httpserver.Context(c), req.ToInput(id))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(p)
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	if err := h.uc.DeleteProduct(httpserver.Context(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProductHandler) UploadImage(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	header, err := c.FormFile(imageFormField)
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "file: field required")
	}
	f, err := header.Open()
	if err != nil {
		return h.respondError(c, &product.UploadError{Err: err})
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return h.respondError(c, &product.UploadError{Err: err})
	}

	p, err := h.uc.UploadImage(httpserver.Context(c), &dto.UploadImageInput{
		ProductID:   id,
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Data:        data,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(p)
}

func (h *ProductHandler) respondError(c *fiber.Ctx, err error) error {
	status, msg := ErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		httpserver.RequestLogger(c, h.logger).Error("Product request failed", zap.Error(err))
	}
	return httpserver.Detail(c, status, msg)
}

// ErrorStatus maps a product domain error to its HTTP status and client message.
func ErrorStatus(err error) (int, string) {
	var (
		insufficient *product.InsufficientStockError
		validation   *product.ValidationError
		persistence  *product.PersistenceError
		upload       *product.UploadError
	)
	switch {
	case errors.Is(err, product.ErrNotFound):
		return fiber.StatusNotFound, "Product not found"
	case errors.As(err, &insufficient):
		return fiber.StatusBadRequest, insufficient.Error()
	case errors.Is(err, product.ErrInvalidFileType):
		return fiber.StatusBadRequest, "Invalid file type. Only image/jpeg, image/png, image/gif are allowed."
	case errors.Is(err, product.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable, "Azure Blob Storage is not configured or available."
	case errors.Is(err, product.ErrInvalidQuantity):
		return fiber.StatusUnprocessableEntity, "Quantity must be a positive integer."
	case errors.As(err, &validation):
		return fiber.StatusUnprocessableEntity, validation.Error()
	case errors.As(err, &upload):
		return fiber.StatusInternalServerError, upload.Error()
	case errors.As(err, &persistence):
		return fiber.StatusInternalServerError, persistence.Message
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}

package handler

import (
	"math"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/httpserver"
	"github.com/minishop/commerce-services/internal/inventory"
	"github.com/minishop/commerce-services/internal/inventory/dto"
	"github.com/minishop/commerce-services/internal/pkg/logger"
	producthandler "github.com/minishop/commerce-services/internal/product/handler"
)

const (
	defaultMovementLimit = 100
	maxMovementLimit     = 100
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts the stock routes on r.
func (h *InventoryHandler) Register(r fiber.Router) {
	g := r.Group("/products/:id")
	g.Patch("/deduct-stock", h.DeductStock)
	g.Patch("/add-stock", h.AddStock)
	g.Get("/stock-movements", h.ListMovements)
}

func (h *InventoryHandler) DeductStock(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	var req dto.DeductStockRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "Invalid request body")
	}
	if req.QuantityToDeduct == nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "quantity_to_deduct: field required")
	}

	p, err := h.uc.DeductStock(httpserver.Context(c), id, *req.QuantityToDeduct)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(p)
}

func (h *InventoryHandler) AddStock(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	var req dto.AddStockRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "Invalid request body")
	}
	qty, ok := req.Quantity()
	if !ok {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "quantity_to_add: field required")
	}

	p, err := h.uc.AddStock(httpserver.Context(c), id, qty)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(p)
}

func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	skip, err := httpserver.QueryInt(c, "skip", 0, 0, math.MaxInt32)
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	limit, err := httpserver.QueryInt(c, "limit", defaultMovementLimit, 1, maxMovementLimit)
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	items, err := h.uc.ListMovements(httpserver.Context(c), &dto.MovementFilters{
		ProductID: id,
		Skip:      skip,
		Limit:     limit,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(items)
}

func (h *InventoryHandler) respondError(c *fiber.Ctx, err error) error {
	status, msg := producthandler.ErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		httpserver.RequestLogger(c, h.logger).Error("Stock request failed", zap.Error(err))
	}
	return httpserver.Detail(c, status, msg)
}

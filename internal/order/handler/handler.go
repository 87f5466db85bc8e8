package handler

import (
	"errors"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/httpserver"
	"github.com/minishop/commerce-services/internal/order"
	"github.com/minishop/commerce-services/internal/order/dto"
	"github.com/minishop/commerce-services/internal/pkg/logger"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
	maxStatusLength  = 50
)

type OrderHandler struct {
	uc     order.UseCase
	logger logger.ZapLogger
}

func NewOrderHandler(uc order.UseCase, log logger.ZapLogger) *OrderHandler {
	return &OrderHandler{
		uc:     uc,
		logger: log,
	}
}

// Register mounts the order routes on r.
func (h *OrderHandler) Register(r fiber.Router) {
	g := r.Group("/orders")
	g.Post("/", h.CreateOrder)
	g.Get("/", h.ListOrders)
	g.Get("/:id", h.GetOrder)
	g.Get("/:id/items", h.GetOrderItems)
	g.Patch("/:id/status", h.UpdateOrderStatus)
	g.Delete("/:id", h.DeleteOrder)
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req dto.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "Invalid request body")
	}
	input, err := req.ToInput()
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	o, err := h.uc.CreateOrder(httpserver.Context(c), input)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	skip, err := httpserver.QueryInt(c, "skip", 0, 0, math.MaxInt32)
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	limit, err := httpserver.QueryInt(c, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	filters := &dto.OrderFilters{Skip: skip, Limit: limit}
	if raw := c.Query("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID < 1 {
			return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "user_id must be a positive integer")
		}
		filters.UserID = &userID
	}
	filters.Status = c.Query("status")
	if len([]rune(filters.Status)) > maxStatusLength {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "status must be at most 50 characters")
	}

	orders, err := h.uc.ListOrders(httpserver.Context(c), filters)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	o, err := h.uc.GetOrder(httpserver.Context(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(o)
}

func (h *OrderHandler) GetOrderItems(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	items, err := h.uc.GetOrderItems(httpserver.Context(c), id)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(items)
}

func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	status := c.Query("new_status")
	if status == "" {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, "new_status: field required")
	}

	o, err := h.uc.UpdateOrderStatus(httpserver.Context(c), id, status)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(o)
}

func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := httpserver.ParamID(c, "id")
	if err != nil {
		return httpserver.Detail(c, fiber.StatusUnprocessableEntity, err.Error())
	}

	if err := h.uc.DeleteOrder(httpserver.Context(c), id); err != nil {
		return h.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *OrderHandler) respondError(c *fiber.Ctx, err error) error {
	status, msg := ErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		httpserver.RequestLogger(c, h.logger).Error("Order request failed", zap.Error(err))
	}
	return httpserver.Detail(c, status, msg)
}

// ErrorStatus maps an order domain error to its HTTP status and client message.
func ErrorStatus(err error) (int, string) {
	var (
		rejected    *order.RejectedError
		unavailable *order.UnavailableError
		validation  *order.ValidationError
		persistence *order.PersistenceError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		return fiber.StatusNotFound, "Order not found"
	case errors.Is(err, order.ErrNoItems):
		return fiber.StatusBadRequest, "Order must contain at least one item."
	case errors.As(err, &rejected):
		return fiber.StatusBadRequest, rejected.Message
	case errors.As(err, &unavailable):
		return fiber.StatusServiceUnavailable, unavailable.Message
	case errors.As(err, &validation):
		return fiber.StatusUnprocessableEntity, validation.Error()
	case errors.As(err, &persistence):
		return fiber.StatusInternalServerError, persistence.Message
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}

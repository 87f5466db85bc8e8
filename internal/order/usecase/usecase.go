package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/order"
	"github.com/minishop/commerce-services/internal/order/dto"
	"github.com/minishop/commerce-services/internal/pkg/broker"
	"github.com/minishop/commerce-services/internal/pkg/logger"
)

const (
	maxStatusLength  = 50
	maxAddressLength = 255
	publishTimeout   = 5 * time.Second
)

type OrderCreatedPayload struct {
	OrderID     int64                  `json:"order_id"`
	UserID      int64                  `json:"user_id"`
	Status      string                 `json:"status"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
	Items       []OrderCreatedItemLine `json:"items"`
}

type OrderCreatedItemLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type orderUseCase struct {
	repo      order.Repository
	products  order.ProductClient
	publisher broker.Publisher
	metrics   *metrics.OrderMetrics
	logger    logger.ZapLogger
}

func NewOrderUseCase(repo order.Repository, products order.ProductClient, pub broker.Publisher, m *metrics.OrderMetrics, log logger.ZapLogger) order.UseCase {
	if pub == nil {
		pub = broker.NopPublisher{}
	}
	if m == nil {
		m = metrics.NewOrderMetrics(prometheus.NewRegistry(), metrics.OrderAppName)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &orderUseCase{
		repo:      repo,
		products:  products,
		publisher: pub,
		metrics:   m,
		logger:    log,
	}
}

func (uc *orderUseCase) CreateOrder(ctx context.Context, input *dto.CreateOrderInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		uc.metrics.OrderCreated(metrics.OrderStatusNoItems)
		return nil, order.ErrNoItems
	}
	if err := validateOrder(input); err != nil {
		uc.metrics.OrderCreated(metrics.OrderStatusValidationError)
		return nil, err
	}

	uc.logger.Info("Creating new order", zap.Int64("user_id", input.UserID), zap.Int("items", len(input.Items)))

	deducted := make([]dto.OrderItemInput, 0, len(input.Items))
	for _, item := range input.Items {
		if err := uc.reserveItem(ctx, item); err != nil {
			uc.compensate(ctx, deducted)
			uc.metrics.OrderCreated(metrics.OrderStatusFailedItems)
			return nil, err
		}
		deducted = append(deducted, item)
		uc.metrics.ItemsOrdered(item.ProductID, item.Quantity)
	}

	uc.logger.Info("All product stock deductions successful, saving order", zap.Int64("user_id", input.UserID))

	o := buildOrder(input)
	created, err := uc.repo.Create(ctx, o)
	if err != nil {
		uc.logger.Error("Error saving order after stock deductions", zap.Int64("user_id", input.UserID), zap.Error(err))
		uc.compensate(ctx, deducted)
		uc.metrics.OrderCreated(metrics.OrderStatusDBError)
		return nil, &order.PersistenceError{
			Message: "Order created but failed to save to database. Manual intervention required.",
			Err:     err,
		}
	}

	uc.logger.Info("Order created and confirmed",
		zap.Int64("order_id", created.OrderID), zap.Int64("user_id", created.UserID),
		zap.String("total_amount", created.TotalAmount.StringFixed(2)))
	uc.metrics.OrderCreated(metrics.OrderStatusSuccess)
	total, _ := created.TotalAmount.Float64()
	uc.metrics.OrderTotal(total)
	uc.publishCreated(ctx, created)
	return created, nil
}

// reserveItem looks the product up, checks stock and deducts it.
func (uc *orderUseCase) reserveItem(ctx context.Context, item dto.OrderItemInput) error {
	p, err := uc.products.GetProduct(ctx, item.ProductID)
	if err != nil {
		return uc.lookupError(item.ProductID, err)
	}
	uc.logger.Info("Fetched product details", zap.Int64("product_id", item.ProductID))

	if p.StockQuantity < item.Quantity {
		uc.logger.Warn("Insufficient stock for order item",
			zap.Int64("product_id", item.ProductID), zap.String("name", p.Name),
			zap.Int("requested", item.Quantity), zap.Int("available", p.StockQuantity))
		return &order.RejectedError{
			ProductID: item.ProductID,
			Message:   fmt.Sprintf("Insufficient stock for product '%s'. Only %d available.", p.Name, p.StockQuantity),
		}
	}

	if err := uc.products.DeductStock(ctx, item.ProductID, item.Quantity); err != nil {
		return uc.deductError(item, err)
	}
	uc.logger.Info("Stock deduction successful", zap.Int64("product_id", item.ProductID), zap.Int("quantity", item.Quantity))
	return nil
}

func (uc *orderUseCase) lookupError(productID int64, err error) error {
	var perr *order.ProductServiceError
	switch {
	case errors.Is(err, order.ErrProductServiceUnavailable):
		uc.logger.Error("Network error getting product details", zap.Int64("product_id", productID), zap.Error(err))
		return &order.UnavailableError{
			Message: fmt.Sprintf("Product Service is currently unavailable for details lookup. Error: %v", err),
			Err:     err,
		}
	case errors.As(err, &perr) && perr.StatusCode == 404:
		uc.logger.Warn("Product not found for order item", zap.Int64("product_id", productID))
		return &order.RejectedError{ProductID: productID, Message: fmt.Sprintf("Product %d not found.", productID)}
	case errors.As(err, &perr):
		uc.logger.Error("Product service returned error for product details",
			zap.Int64("product_id", productID), zap.Int("status", perr.StatusCode), zap.String("detail", perr.Detail))
		return &order.PersistenceError{Message: "Error fetching product details: " + perr.Detail, Err: err}
	default:
		return &order.PersistenceError{Message: "An unexpected error occurred during order creation.", Err: err}
	}
}

func (uc *orderUseCase) deductError(item dto.OrderItemInput, err error) error {
	productID := item.ProductID
	var perr *order.ProductServiceError
	switch {
	case errors.Is(err, order.ErrProductServiceUnavailable):
		uc.logger.Error("Network error during stock deduction", zap.Int64("product_id", productID), zap.Error(err))
		// The request may have committed before the connection failed; it is not rolled back.
		uc.logger.Error("Stock deduction outcome unknown, stock may already be deducted. Manual intervention required!",
			zap.Int64("product_id", productID), zap.Int("quantity", item.Quantity), zap.Error(err))
		return &order.UnavailableError{
			Message: fmt.Sprintf("Product Service is currently unavailable for stock deduction. Please try again later. Error: %v", err),
			Err:     err,
		}
	case errors.As(err, &perr) && (perr.StatusCode == 404 || perr.StatusCode == 400):
		detail := perr.Detail
		if perr.StatusCode == 404 {
			detail = fmt.Sprintf("Product %d not found.", productID)
		} else if detail == "" {
			detail = "Insufficient stock or invalid request."
		}
		uc.logger.Error("Stock deduction failed",
			zap.Int64("product_id", productID), zap.Int("status", perr.StatusCode), zap.String("detail", detail))
		return &order.RejectedError{
			ProductID: productID,
			Message:   fmt.Sprintf("Failed to deduct stock for product %d: %s", productID, detail),
		}
	default:
		uc.logger.Error("Unexpected error during stock deduction", zap.Int64("product_id", productID), zap.Error(err))
		return &order.PersistenceError{
			Message: fmt.Sprintf("An unexpected error occurred during order creation: %v", err),
			Err:     err,
		}
	}
}

// compensate returns deducted stock; failures need an operator.
func (uc *orderUseCase) compensate(ctx context.Context, items []dto.OrderItemInput) {
	if len(items) == 0 {
		return
	}
	uc.logger.Warn("Rolling back stock deductions", zap.Int("items", len(items)))
	uc.restock(context.WithoutCancel(ctx), items, "rollback")
}

func (uc *orderUseCase) restock(ctx context.Context, items []dto.OrderItemInput, reason string) {
	for _, item := range items {
		if err := uc.products.AddStock(ctx, item.ProductID, item.Quantity); err != nil {
			uc.logger.Error("CRITICAL: Failed to restore stock. Manual intervention required!",
				zap.String("reason", reason), zap.Int64("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity), zap.Error(err))
			continue
		}
		uc.logger.Info("Restored stock",
			zap.String("reason", reason), zap.Int64("product_id", item.ProductID), zap.Int("quantity", item.Quantity))
	}
}

func (uc *orderUseCase) publishCreated(ctx context.Context, o *model.Order) {
	lines := make([]OrderCreatedItemLine, len(o.Items))
	for i, item := range o.Items {
		lines[i] = OrderCreatedItemLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	event, err := broker.NewEvent(order.EventOrderCreated, OrderCreatedPayload{
		OrderID:     o.OrderID,
		UserID:      o.UserID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		Items:       lines,
	})
	if err != nil {
		uc.logger.Error("Failed to build order event", zap.Error(err))
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(pubCtx, strconv.FormatInt(o.OrderID, 10), event); err != nil {
		uc.logger.Error("Failed to publish order event", zap.Int64("order_id", o.OrderID), zap.Error(err))
	}
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, error) {
	orders, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		uc.logger.Error("Error listing orders", zap.Error(err))
		return nil, &order.PersistenceError{Message: "Could not list orders.", Err: err}
	}
	uc.logger.Info("Listed orders", zap.Int("count", len(orders)), zap.Int("skip", filters.Skip), zap.Int("limit", filters.Limit))
	return orders, nil
}

func (uc *orderUseCase) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, &order.PersistenceError{Message: "Could not fetch order.", Err: err}
	}
	if o == nil {
		uc.logger.Warn("Order not found", zap.Int64("order_id", id))
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (uc *orderUseCase) GetOrderItems(ctx context.Context, id int64) ([]model.OrderItem, error) {
	o, err := uc.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.Items, nil
}

func (uc *orderUseCase) UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	if n := utf8.RuneCountInString(status); n == 0 || n > maxStatusLength {
		return nil, &order.ValidationError{Field: "new_status", Message: fmt.Sprintf("must be between 1 and %d characters", maxStatusLength)}
	}

	o, err := uc.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		uc.logger.Error("Error updating order status", zap.Int64("order_id", id), zap.Error(err))
		uc.metrics.StatusUpdated(metrics.OrderStatusDBError)
		return nil, &order.PersistenceError{Message: "Could not update order status.", Err: err}
	}
	if o == nil {
		uc.logger.Warn("Order not found for status update", zap.Int64("order_id", id))
		uc.metrics.StatusUpdated(metrics.OrderStatusNotFound)
		return nil, order.ErrNotFound
	}

	uc.logger.Info("Order status updated", zap.Int64("order_id", id), zap.String("status", status))
	uc.metrics.StatusUpdated(metrics.OrderStatusSuccess)
	return o, nil
}

func (uc *orderUseCase) DeleteOrder(ctx context.Context, id int64) error {
	o, err := uc.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := uc.repo.Delete(ctx, id)
	if err != nil {
		uc.logger.Error("Error deleting order", zap.Int64("order_id", id), zap.Error(err))
		return &order.PersistenceError{Message: "An error occurred while deleting the order from database.", Err: err}
	}
	if !deleted {
		return order.ErrNotFound
	}
	uc.logger.Info("Order deleted", zap.Int64("order_id", id))

	items := make([]dto.OrderItemInput, len(o.Items))
	for i, item := range o.Items {
		items[i] = dto.OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	uc.restock(context.WithoutCancel(ctx), items, "order_deleted")
	return nil
}

func buildOrder(input *dto.CreateOrderInput) *model.Order {
	o := &model.Order{
		UserID:          input.UserID,
		Status:          model.OrderStatusPending,
		ShippingAddress: input.ShippingAddress,
		TotalAmount:     decimal.Zero,
		Items:           make([]model.OrderItem, 0, len(input.Items)),
	}
	for _, item := range input.Items {
		total := item.ItemTotal()
		o.TotalAmount = o.TotalAmount.Add(total)
		o.Items = append(o.Items, model.OrderItem{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
			ItemTotal:       total,
		})
	}
	// every item is already deducted
	o.Status = model.OrderStatusConfirmed
	return o
}

func validateOrder(input *dto.CreateOrderInput) error {
	if input.UserID < 1 {
		return &order.ValidationError{Field: "user_id", Message: "must be greater than or equal to 1"}
	}
	if input.ShippingAddress != nil && utf8.RuneCountInString(*input.ShippingAddress) > maxAddressLength {
		return &order.ValidationError{Field: "shipping_address", Message: fmt.Sprintf("must be at most %d characters", maxAddressLength)}
	}
	for i, item := range input.Items {
		switch {
		case item.ProductID < 1:
			return &order.ValidationError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "must be greater than or equal to 1"}
		case item.Quantity < 1:
			return &order.ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be greater than 0"}
		case item.PriceAtPurchase.IsNegative():
			return &order.ValidationError{Field: fmt.Sprintf("items[%d].price_at_purchase", i), Message: "must be greater than or equal to 0"}
		}
	}
	return nil
}

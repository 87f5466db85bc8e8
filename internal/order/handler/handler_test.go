package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/minishop/commerce-services/internal/httpserver"
	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/order"
	"github.com/minishop/commerce-services/internal/order/dto"
)

// mockUseCase implements order.UseCase; unset funcs panic when called.
type mockUseCase struct {
	order.UseCase
	createFn func(ctx context.Context, in *dto.CreateOrderInput) (*model.Order, error)
	listFn   func(ctx context.Context, f *dto.OrderFilters) ([]model.Order, error)
	statusFn func(ctx context.Context, id int64, status string) (*model.Order, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockUseCase) CreateOrder(ctx context.Context, in *dto.CreateOrderInput) (*model.Order, error) {
	return m.createFn(ctx, in)
}

func (m *mockUseCase) ListOrders(ctx context.Context, f *dto.OrderFilters) ([]model.Order, error) {
	return m.listFn(ctx, f)
}

func (m *mockUseCase) UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	return m.statusFn(ctx, id, status)
}

func (m *mockUseCase) DeleteOrder(ctx context.Context, id int64) error {
	return m.deleteFn(ctx, id)
}

func newApp(uc order.UseCase) *fiber.App {
	app := httpserver.New(httpserver.Config{Service: "order-service"})
	NewOrderHandler(uc, nil).Register(app)
	return app
}

func decodeDetail(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	var body httpserver.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Detail
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", order.ErrNotFound, 404, "Order not found"},
		{"no items", order.ErrNoItems, 400, "Order must contain at least one item."},
		{"rejected", &order.RejectedError{ProductID: 9, Message: "Product 9 not found."}, 400, "Product 9 not found."},
		{"unavailable", &order.UnavailableError{Message: "Product Service is currently unavailable"}, 503, "Product Service is currently unavailable"},
		{"validation", &order.ValidationError{Field: "user_id", Message: "must be greater than or equal to 1"}, 422, "user_id: must be greater than or equal to 1"},
		{"persistence", &order.PersistenceError{Message: "Could not list orders.", Err: errors.New("io")}, 500, "Could not list orders."},
		{"unknown", errors.New("boom"), 500, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := ErrorStatus(tt.err)
			if status != tt.status || msg != tt.msg {
				t.Errorf("ErrorStatus() = %d %q, want %d %q", status, msg, tt.status, tt.msg)
			}
		})
	}
}

func TestCreateOrder(t *testing.T) {
	var got *dto.CreateOrderInput
	app := newApp(&mockUseCase{createFn: func(_ context.Context, in *dto.CreateOrderInput) (*model.Order, error) {
		got = in
		return &model.Order{OrderID: 1, UserID: in.UserID, Status: model.OrderStatusConfirmed}, nil
	}})

	body := `{"user_id": 42, "shipping_address": "1 Main St", "items": [{"product_id": 1, "quantity": 2, "price_at_purchase": 19.99}]}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if got.UserID != 42 || *got.ShippingAddress != "1 Main St" || len(got.Items) != 1 {
		t.Fatalf("input = %+v", got)
	}
	if !got.Items[0].PriceAtPurchase.Equal(decimal.RequireFromString("19.99")) || got.Items[0].Quantity != 2 {
		t.Errorf("item = %+v", got.Items[0])
	}
}

func TestCreateOrder_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
		detail string
	}{
		{"missing user", `{"items": []}`, nil, 422, "user_id: field required"},
		{"missing quantity", `{"user_id": 1, "items": [{"product_id": 1, "price_at_purchase": 1}]}`, nil, 422, "items[0].quantity: field required"},
		{"malformed", `{"user_id": `, nil, 422, "Invalid request body"},
		{"empty order", `{"user_id": 1, "items": []}`, order.ErrNoItems, 400, "Order must contain at least one item."},
		{"unavailable", `{"user_id": 1, "items": [{"product_id": 1, "quantity": 1, "price_at_purchase": 1}]}`,
			&order.UnavailableError{Message: "Product Service is currently unavailable for details lookup. Error: refused"},
			503, "Product Service is currently unavailable for details lookup. Error: refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newApp(&mockUseCase{createFn: func(context.Context, *dto.CreateOrderInput) (*model.Order, error) {
				return nil, tt.err
			}})
			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if d := decodeDetail(t, resp); d != tt.detail {
				t.Errorf("detail = %q, want %q", d, tt.detail)
			}
		})
	}
}

func TestListOrders_Filters(t *testing.T) {
	var got *dto.OrderFilters
	app := newApp(&mockUseCase{listFn: func(_ context.Context, f *dto.OrderFilters) ([]model.Order, error) {
		got = f
		return []model.Order{}, nil
	}})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/orders?skip=2&limit=10&user_id=7&status=shipped", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got.Skip != 2 || got.Limit != 10 || got.UserID == nil || *got.UserID != 7 || got.Status != "shipped" {
		t.Errorf("filters = %+v", got)
	}

	for _, q := range []string{"limit=0", "limit=101", "skip=-1", "user_id=0", "user_id=abc"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/orders?"+q, nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Errorf("%s: status = %d, want 422", q, resp.StatusCode)
		}
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	var gotStatus string
	app := newApp(&mockUseCase{statusFn: func(_ context.Context, id int64, status string) (*model.Order, error) {
		gotStatus = status
		if id != 3 {
			return nil, order.ErrNotFound
		}
		return &model.Order{OrderID: id, Status: status}, nil
	}})

	resp, err := app.Test(httptest.NewRequest(http.MethodPatch, "/orders/3/status?new_status=shipped", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || gotStatus != "shipped" {
		t.Errorf("status = %d, new_status = %q", resp.StatusCode, gotStatus)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodPatch, "/orders/4/status?new_status=shipped", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound || decodeDetail(t, resp) != "Order not found" {
		t.Errorf("missing order status = %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodPatch, "/orders/3/status", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("missing new_status: status = %d, want 422", resp.StatusCode)
	}
}

func TestDeleteOrder(t *testing.T) {
	app := newApp(&mockUseCase{deleteFn: func(_ context.Context, id int64) error {
		if id == 1 {
			return nil
		}
		return order.ErrNotFound
	}})

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/orders/1", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/orders/2", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

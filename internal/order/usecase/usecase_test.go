package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/order"
	"github.com/minishop/commerce-services/internal/order/dto"
	"github.com/minishop/commerce-services/internal/pkg/broker"
	"github.com/minishop/commerce-services/internal/pkg/logger"
)

// fakeProducts simulates the product service over an in-memory stock table.
type fakeProducts struct {
	mu        sync.Mutex
	products  map[int64]*model.Product
	getErr    map[int64]error
	deductErr map[int64]error
	// lostReply deducts and then fails as if the response never arrived.
	lostReply map[int64]error
	addErr    error
	deducted  []int64
	added     []int64
}

func newFakeProducts(products ...model.Product) *fakeProducts {
	f := &fakeProducts{
		products:  make(map[int64]*model.Product),
		getErr:    make(map[int64]error),
		deductErr: make(map[int64]error),
		lostReply: make(map[int64]error),
	}
	for i := range products {
		p := products[i]
		f.products[p.ProductID] = &p
	}
	return f
}

func (f *fakeProducts) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	p, ok := f.products[id]
	if !ok {
		return nil, &order.ProductServiceError{StatusCode: 404, Detail: "Product not found"}
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) DeductStock(_ context.Context, id int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.deductErr[id]; err != nil {
		return err
	}
	p := f.products[id]
	if p.StockQuantity < qty {
		return &order.ProductServiceError{StatusCode: 400,
			Detail: fmt.Sprintf("Insufficient stock for product '%s'. Only %d available.", p.Name, p.StockQuantity)}
	}
	p.StockQuantity -= qty
	f.deducted = append(f.deducted, id)
	return f.lostReply[id]
}

func (f *fakeProducts) AddStock(_ context.Context, id int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.products[id].StockQuantity += qty
	f.added = append(f.added, id)
	return nil
}

func (f *fakeProducts) stock(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].StockQuantity
}

type mockRepository struct {
	createFn       func(ctx context.Context, o *model.Order) (*model.Order, error)
	findByIDFn     func(ctx context.Context, id int64) (*model.Order, error)
	findAllFn      func(ctx context.Context, f *dto.OrderFilters) ([]model.Order, error)
	updateStatusFn func(ctx context.Context, id int64, status string) (*model.Order, error)
	deleteFn       func(ctx context.Context, id int64) (bool, error)
}

func (m *mockRepository) Create(ctx context.Context, o *model.Order) (*model.Order, error) {
	return m.createFn(ctx, o)
}

func (m *mockRepository) FindByID(ctx context.Context, id int64) (*model.Order, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, error) {
	return m.findAllFn(ctx, f)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	return m.updateStatusFn(ctx, id, status)
}

func (m *mockRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return m.deleteFn(ctx, id)
}

type capturePublisher struct {
	events []*broker.Event
	keys   []string
}

func (p *capturePublisher) Publish(_ context.Context, key string, event *broker.Event) error {
	p.keys = append(p.keys, key)
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type fixture struct {
	uc       order.UseCase
	repo     *mockRepository
	products *fakeProducts
	pub      *capturePublisher
	reg      *prometheus.Registry
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	f := &fixture{
		repo: &mockRepository{
			createFn: func(_ context.Context, o *model.Order) (*model.Order, error) {
				o.OrderID = 1
				return o, nil
			},
		},
		products: newFakeProducts(
			model.Product{ProductID: 1, Name: "HD Widget", Price: decimal.RequireFromString("19.99"), StockQuantity: 7},
			model.Product{ProductID: 2, Name: "Gadget", Price: decimal.RequireFromString("5.50"), StockQuantity: 1},
		),
		pub:  &capturePublisher{},
		reg:  prometheus.NewRegistry(),
		logs: logs,
	}
	m := metrics.NewOrderMetrics(f.reg, metrics.OrderAppName)
	f.uc = NewOrderUseCase(f.repo, f.products, f.pub, m, logger.Wrap(zap.New(core)))
	return f
}

func (f *fixture) assertCreation(t *testing.T, status string) {
	t.Helper()
	expected := fmt.Sprintf(`
# HELP order_creation_total Total number of orders created
# TYPE order_creation_total counter
order_creation_total{app_name="order_service",status=%q} 1
`, status)
	if err := testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "order_creation_total"); err != nil {
		t.Error(err)
	}
}

func item(productID int64, qty int, price string) dto.OrderItemInput {
	return dto.OrderItemInput{ProductID: productID, Quantity: qty, PriceAtPurchase: decimal.RequireFromString(price)}
}

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)

	o, err := f.uc.CreateOrder(context.Background(), &dto.CreateOrderInput{
		UserID: 42,
		Items:  []dto.OrderItemInput{item(1, 2, "19.99"), item(2, 1, "5.50")},
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if o.Status != model.OrderStatusConfirmed {
		t.Errorf("status = %q, want confirmed", o.Status)
	}
	if !o.TotalAmount.Equal(decimal.RequireFromString("45.48")) {
		t.Errorf("total = %s, want 45.48", o.TotalAmount)
	}
	if !o.Items[0].ItemTotal.Equal(decimal.RequireFromString("39.98")) {
		t.Errorf("item total = %s", o.Items[0].ItemTotal)
	}
	if f.products.stock(1) != 5 || f.products.stock(2) != 0 {
		t.Errorf("stock = %d/%d, want 5/0", f.products.stock(1), f.products.stock(2))
	}
	f.assertCreation(t, metrics.OrderStatusSuccess)

	if len(f.pub.events) != 1 || f.pub.keys[0] != "1" {
		t.Fatalf("events = %d keys = %v", len(f.pub.events), f.pub.keys)
	}
	var payload OrderCreatedPayload
	if err := json.Unmarshal(f.pub.events[0].Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.OrderID != 1 || payload.UserID != 42 || len(payload.Items) != 2 {
		t.Errorf("payload = %+v", payload)
	}
	if f.pub.events[0].EventType != order.EventOrderCreated {
		t.Errorf("event type = %q", f.pub.events[0].EventType)
	}
}

func TestCreateOrder_NoItems(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.CreateOrder(context.Background(), &dto.CreateOrderInput{UserID: 1})
	if !errors.Is(err, order.ErrNoItems) {
		t.Fatalf("err = %v, want ErrNoItems", err)
	}
	f.assertCreation(t, metrics.OrderStatusNoItems)
}

func TestCreateOrder_Validation(t *testing.T) {
	long := strings.Repeat("a", 256)
	tests := []struct {
		name  string
		input dto.CreateOrderInput
		field string
	}{
		{"user id", dto.CreateOrderInput{UserID: 0, Items: []dto.OrderItemInput{item(1, 1, "1")}}, "user_id"},
		{"product id", dto.CreateOrderInput{UserID: 1, Items: []dto.OrderItemInput{item(0, 1, "1")}}, "items[0].product_id"},
		{"quantity", dto.CreateOrderInput{UserID: 1, Items: []dto.OrderItemInput{item(1, 1, "1"), item(2, 0, "1")}}, "items[1].quantity"},
		{"price", dto.CreateOrderInput{UserID: 1, Items: []dto.OrderItemInput{item(1, 1, "-1")}}, "items[0].price_at_purchase"},
		{"address", dto.CreateOrderInput{UserID: 1, ShippingAddress: &long, Items: []dto.OrderItemInput{item(1, 1, "1")}}, "shipping_address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.uc.CreateOrder(context.Background(), &tt.input)
			var verr *order.ValidationError
			if !errors.As(err, &verr) || verr.Field != tt.field {
				t.Fatalf("err = %v, want validation error on %s", err, tt.field)
			}
			if len(f.products.deducted) != 0 {
				t.Error("stock must not be touched")
			}
		})
	}
}

func TestCreateOrder_InsufficientStockCompensates(t *testing.T) {
	f := newFixture(t)
	called := false
	f.repo.createFn = func(context.Context, *model.Order) (*model.Order, error) {
		called = true
		return nil, nil
	}

	_, err := f.uc.CreateOrder(context.Background(), &dto.CreateOrderInput{
		UserID: 1,
		Items:  []dto.OrderItemInput{item(1, 3, "19.99"), item(2, 4, "5.50")},
	})

	var rejected *order.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want RejectedError", err)
	}
	if rejected.Message != "Insufficient stock for product 'Gadget'. Only 1 available." {
		t.Errorf("message = %q", rejected.Message)
	}
	if called {
		t.Error("order must not be persisted")
	}
	if f.products.stock(1) != 7 {
		t.Errorf("stock of product 1 = %d, want 7 after rollback", f.products.stock(1))
	}
	f.assertCreation(t, metrics.OrderStatusFailedItems)
}

func TestCreateOrder_ProductServiceErrors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(p *fakeProducts)
		productID int64
		check     func(t *testing.T, err error)
	}{
		{
			name:      "missing product",
			productID: 9,
			check: func(t *testing.T, err error) {
				var rejected *order.RejectedError
				if !errors.As(err, &rejected) || rejected.Message != "Product 9 not found." {
					t.Errorf("err = %v", err)
				}
			},
		},
		{
			name:      "lookup unreachable",
			productID: 1,
			setup: func(p *fakeProducts) {
				p.getErr[1] = fmt.Errorf("%w: connection refused", order.ErrProductServiceUnavailable)
			},
			check: func(t *testing.T, err error) {
				var unavailable *order.UnavailableError
				if !errors.As(err, &unavailable) ||
					!strings.HasPrefix(unavailable.Message, "Product Service is currently unavailable for details lookup.") {
					t.Errorf("err = %v", err)
				}
			},
		},
		{
			name:      "lookup upstream fault",
			productID: 1,
			setup: func(p *fakeProducts) {
				p.getErr[1] = &order.ProductServiceError{StatusCode: 500, Detail: "Internal Server Error"}
			},
			check: func(t *testing.T, err error) {
				var perr *order.PersistenceError
				if !errors.As(err, &perr) || perr.Message != "Error fetching product details: Internal Server Error" {
					t.Errorf("err = %v", err)
				}
			},
		},
		{
			name:      "deduct rejected",
			productID: 1,
			setup: func(p *fakeProducts) {
				p.deductErr[1] = &order.ProductServiceError{StatusCode: 400, Detail: "Quantity must be a positive integer."}
			},
			check: func(t *testing.T, err error) {
				var rejected *order.RejectedError
				if !errors.As(err, &rejected) ||
					rejected.Message != "Failed to deduct stock for product 1: Quantity must be a positive integer." {
					t.Errorf("err = %v", err)
				}
			},
		},
		{
			name:      "deduct product vanished",
			productID: 1,
			setup: func(p *fakeProducts) {
				p.deductErr[1] = &order.ProductServiceError{StatusCode: 404, Detail: "Product not found"}
			},
			check: func(t *testing.T, err error) {
				var rejected *order.RejectedError
				if !errors.As(err, &rejected) ||
					rejected.Message != "Failed to deduct stock for product 1: Product 1 not found." {
					t.Errorf("err = %v", err)
				}
			},
		},
		{
			name:      "deduct unreachable",
			productID: 1,
			setup: func(p *fakeProducts) {
				p.deductErr[1] = fmt.Errorf("%w: timeout", order.ErrProductServiceUnavailable)
			},
			check: func(t *testing.T, err error) {
				var unavailable *order.UnavailableError
				if !errors.As(err, &unavailable) ||
					!strings.Contains(unavailable.Message, "unavailable for stock deduction. Please try again later.") {
					t.Errorf("err = %v", err)
				}
			},
		},
		{
			name:      "deduct upstream fault",
			productID: 1,
			setup: func(p *fakeProducts) {
				p.deductErr[1] = &order.ProductServiceError{StatusCode: 502, Detail: "bad gateway"}
			},
			check: func(t *testing.T, err error) {
				var perr *order.PersistenceError
				if !errors.As(err, &perr) ||
					!strings.HasPrefix(perr.Message, "An unexpected error occurred during order creation:") {
					t.Errorf("err = %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f.products)
			}
			_, err := f.uc.CreateOrder(context.Background(), &dto.CreateOrderInput{
				UserID: 1,
				Items:  []dto.OrderItemInput{item(tt.productID, 1, "19.99")},
			})
			tt.check(t, err)
			f.assertCreation(t, metrics.OrderStatusFailedItems)
		})
	}
}

func TestCreateOrder_DBErrorRestocksEverything(t *testing.T) {
	f := newFixture(t)
	f.repo.createFn = func(context.Context, *model.Order) (*model.Order, error) {
		return nil, errors.New("connection reset")
	}

	_, err := f.uc.CreateOrder(context.Background(), &dto.CreateOrderInput{
		UserID: 1,
		Items:  []dto.OrderItemInput{item(1, 2, "19.99"), item(2, 1, "5.50")},
	})

	var perr *order.PersistenceError
	if !errors.As(err, &perr) ||
		perr.Message != "Order created but failed to save to database. Manual intervention required." {
		t.Fatalf("err = %v", err)
	}
	if f.products.stock(1) != 7 || f.products.stock(2) != 1 {
		t.Errorf("stock = %d/%d, want 7/1", f.products.stock(1), f.products.stock(2))
	}
	if len(f.pub.events) != 0 {
		t.Error("no event expected for a failed order")
	}
	f.assertCreation(t, metrics.OrderStatusDBError)
}

func TestCreateOrder_FailedCompensationIsLogged(t *testing.T) {
	f := newFixture(t)
	f.products.addErr = errors.New("product service down")

	_, err := f.uc.CreateOrder(context.Background(), &dto.CreateOrderInput{
		UserID: 1,
		Items:  []dto.OrderItemInput{item(1, 1, "19.99"), item(2, 5, "5.50")},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if f.logs.FilterMessage("CRITICAL: Failed to restore stock. Manual intervention required!").Len() != 1 {
		t.Error("expected the failed rollback to be logged")
	}
}

func TestCreateOrder_DeductTimeoutNeedsOperator(t *testing.T) {
	f := newFixture(t)
	f.products.lostReply[2] = fmt.Errorf("%w: context deadline exceeded", order.ErrProductServiceUnavailable)

	_, err := f.uc.CreateOrder(context.Background(), &dto.CreateOrderInput{
		UserID: 1,
		Items:  []dto.OrderItemInput{item(1, 2, "19.99"), item(2, 1, "5.50")},
	})
	var uerr *order.UnavailableError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UnavailableError", err)
	}
	if f.products.stock(1) != 7 {
		t.Errorf("stock(1) = %d, want the confirmed deduction rolled back to 7", f.products.stock(1))
	}
	if f.products.stock(2) != 0 {
		t.Errorf("stock(2) = %d, want the unconfirmed deduction left for an operator", f.products.stock(2))
	}

	entries := f.logs.FilterMessage("Stock deduction outcome unknown, stock may already be deducted. Manual intervention required!").All()
	if len(entries) != 1 {
		t.Fatalf("ambiguous deduction logged %d times, want 1", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("level = %s, want error", entries[0].Level)
	}
	fields := entries[0].ContextMap()
	if fields["product_id"] != int64(2) || fields["quantity"] != int64(1) {
		t.Errorf("fields = %v", fields)
	}
	f.assertCreation(t, metrics.OrderStatusFailedItems)
}

func TestUpdateOrderStatus(t *testing.T) {
	tests := []struct {
		name   string
		status string
		repoFn func(context.Context, int64, string) (*model.Order, error)
		check  func(t *testing.T, err error)
		metric string
	}{
		{
			name:   "success",
			status: "shipped",
			repoFn: func(_ context.Context, id int64, s string) (*model.Order, error) {
				return &model.Order{OrderID: id, Status: s}, nil
			},
			check: func(t *testing.T, err error) {
				if err != nil {
					t.Errorf("err = %v", err)
				}
			},
			metric: metrics.OrderStatusSuccess,
		},
		{
			name:   "not found",
			status: "shipped",
			repoFn: func(context.Context, int64, string) (*model.Order, error) { return nil, nil },
			check: func(t *testing.T, err error) {
				if !errors.Is(err, order.ErrNotFound) {
					t.Errorf("err = %v", err)
				}
			},
			metric: metrics.OrderStatusNotFound,
		},
		{
			name:   "db error",
			status: "shipped",
			repoFn: func(context.Context, int64, string) (*model.Order, error) { return nil, errors.New("io") },
			check: func(t *testing.T, err error) {
				var perr *order.PersistenceError
				if !errors.As(err, &perr) || perr.Message != "Could not update order status." {
					t.Errorf("err = %v", err)
				}
			},
			metric: metrics.OrderStatusDBError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.updateStatusFn = tt.repoFn
			_, err := f.uc.UpdateOrderStatus(context.Background(), 3, tt.status)
			tt.check(t, err)

			expected := fmt.Sprintf(`
# HELP order_status_update_total Total order status updates
# TYPE order_status_update_total counter
order_status_update_total{app_name="order_service",status=%q} 1
`, tt.metric)
			if err := testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "order_status_update_total"); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestUpdateOrderStatus_TooLong(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.UpdateOrderStatus(context.Background(), 1, strings.Repeat("x", 51))
	var verr *order.ValidationError
	if !errors.As(err, &verr) || verr.Field != "new_status" {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteOrder_Restocks(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, id int64) (*model.Order, error) {
		return &model.Order{OrderID: id, Items: []model.OrderItem{
			{ProductID: 1, Quantity: 3},
			{ProductID: 2, Quantity: 2},
		}}, nil
	}
	f.repo.deleteFn = func(context.Context, int64) (bool, error) { return true, nil }

	if err := f.uc.DeleteOrder(context.Background(), 5); err != nil {
		t.Fatalf("DeleteOrder() error = %v", err)
	}
	if f.products.stock(1) != 10 || f.products.stock(2) != 3 {
		t.Errorf("stock = %d/%d, want 10/3", f.products.stock(1), f.products.stock(2))
	}
}

func TestDeleteOrder_Errors(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(context.Context, int64) (*model.Order, error) { return nil, nil }

	if err := f.uc.DeleteOrder(context.Background(), 5); !errors.Is(err, order.ErrNotFound) {
		t.Errorf("missing order: err = %v", err)
	}

	f.repo.findByIDFn = func(_ context.Context, id int64) (*model.Order, error) {
		return &model.Order{OrderID: id, Items: []model.OrderItem{{ProductID: 1, Quantity: 3}}}, nil
	}
	f.repo.deleteFn = func(context.Context, int64) (bool, error) { return false, errors.New("locked") }

	err := f.uc.DeleteOrder(context.Background(), 5)
	var perr *order.PersistenceError
	if !errors.As(err, &perr) || perr.Message != "An error occurred while deleting the order from database." {
		t.Errorf("db error: err = %v", err)
	}
	if len(f.products.added) != 0 {
		t.Error("stock must not be returned when the delete fails")
	}
}

func TestGetOrderItems(t *testing.T) {
	f := newFixture(t)
	f.repo.findByIDFn = func(_ context.Context, id int64) (*model.Order, error) {
		if id != 4 {
			return nil, nil
		}
		return &model.Order{OrderID: 4, Items: []model.OrderItem{{ProductID: 1, Quantity: 1}}}, nil
	}

	items, err := f.uc.GetOrderItems(context.Background(), 4)
	if err != nil || len(items) != 1 {
		t.Fatalf("GetOrderItems() = %v, %v", items, err)
	}
	if _, err := f.uc.GetOrderItems(context.Background(), 5); !errors.Is(err, order.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

package productclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/minishop/commerce-services/internal/metrics"
	"github.com/minishop/commerce-services/internal/model"
	"github.com/minishop/commerce-services/internal/order"
	"github.com/minishop/commerce-services/internal/pkg/logger"
)

// Route templates used as the target_endpoint metric label.
const (
	routeProduct = "/products/:id"
	routeDeduct  = "/products/:id/deduct-stock"
	routeAdd     = "/products/:id/add-stock"
)

const statusNetworkError = "network_error"

type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.OrderMetrics
	logger  logger.ZapLogger

	// propagator overrides the otel global one when set.
	propagator propagation.TextMapPropagator
}

var _ order.ProductClient = (*Client)(nil)

func New(baseURL string, timeout time.Duration, m *metrics.OrderMetrics, log logger.ZapLogger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
		logger:  log,
	}
}

func (c *Client) GetProduct(ctx context.Context, productID int64) (*model.Product, error) {
	var p model.Product
	if err := c.do(ctx, http.MethodGet, routeProduct, productPath(productID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeductStock(ctx context.Context, productID int64, quantity int) error {
	body := map[string]int{"quantity_to_deduct": quantity}
	return c.do(ctx, http.MethodPatch, routeDeduct, productPath(productID)+"/deduct-stock", body, nil)
}

func (c *Client) AddStock(ctx context.Context, productID int64, quantity int) error {
	body := map[string]int{"quantity_to_add": quantity}
	return c.do(ctx, http.MethodPatch, routeAdd, productPath(productID)+"/add-stock", body, nil)
}

func productPath(id int64) string {
	return "/products/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, route, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	prop := c.propagator
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}
	prop.Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(route, method, statusNetworkError, start)
		c.logger.Error("Product service request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", order.ErrProductServiceUnavailable, err)
	}
	defer resp.Body.Close()
	c.observe(route, method, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &order.ProductServiceError{StatusCode: resp.StatusCode, Detail: readDetail(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode product service response: %w", err)
	}
	return nil
}

func (c *Client) observe(route, method, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ProductServiceCall(route, method, status, time.Since(start).Seconds())
}

// readDetail extracts {"detail": "..."} from an error body, falling back to the raw text.
func readDetail(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		return string(payload.Detail)
	}
	return string(bytes.TrimSpace(raw))
}

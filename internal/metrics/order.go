package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Order creation status label values.
const (
	OrderStatusSuccess         = "success"
	OrderStatusNoItems         = "no_items"
	OrderStatusFailedItems     = "failed_items"
	OrderStatusDBError         = "db_error"
	OrderStatusNotFound        = "not_found"
	OrderStatusValidationError = "validation_error"
)

type OrderMetrics struct {
	appName       string
	creations     *prometheus.CounterVec
	itemCount     *prometheus.CounterVec
	totalAmount   *prometheus.HistogramVec
	statusUpdates *prometheus.CounterVec
	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
}

func NewOrderMetrics(reg prometheus.Registerer, appName string) *OrderMetrics {
	m := &OrderMetrics{
		appName: appName,
		creations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_creation_total",
			Help: "Total number of orders created",
		}, []string{"app_name", "status"}),
		itemCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_item_count",
			Help: "Total number of individual items processed in orders",
		}, []string{"app_name", "product_id"}),
		totalAmount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "order_total_amount_dollars",
			Help:    "Total amount of orders in dollars",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"app_name"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_update_total",
			Help: "Total order status updates",
		}, []string{"app_name", "status"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "product_service_call_total",
			Help: "Total calls made from Order Service to Product Service",
		}, []string{"app_name", "target_endpoint", "method", "status_code"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "product_service_call_duration_seconds",
			Help:    "Duration of calls from Order Service to Product Service",
			Buckets: prometheus.DefBuckets,
		}, []string{"app_name", "target_endpoint", "method", "status_code"}),
	}
	reg.MustRegister(m.creations, m.itemCount, m.totalAmount, m.statusUpdates, m.calls, m.callDuration)
	return m
}

func (m *OrderMetrics) OrderCreated(status string) {
	m.creations.WithLabelValues(m.appName, status).Inc()
}

func (m *OrderMetrics) ItemsOrdered(productID int64, quantity int) {
	m.itemCount.WithLabelValues(m.appName, strconv.FormatInt(productID, 10)).Add(float64(quantity))
}

func (m *OrderMetrics) OrderTotal(amount float64) {
	m.totalAmount.WithLabelValues(m.appName).Observe(amount)
}

func (m *OrderMetrics) StatusUpdated(status string) {
	m.statusUpdates.WithLabelValues(m.appName, status).Inc()
}

// ProductServiceCall records one outbound call. status is an HTTP code or
// a failure class such as network_error.
func (m *OrderMetrics) ProductServiceCall(endpoint, method, status string, seconds float64) {
	m.calls.WithLabelValues(m.appName, endpoint, method, status).Inc()
	m.callDuration.WithLabelValues(m.appName, endpoint, method, status).Observe(seconds)
}

package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	ProductAppName = "product_service"
	OrderAppName   = "order_service"
)

// NewRegistry returns a process registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

type HTTPMetrics struct {
	appName    string
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inProgress *prometheus.GaugeVec
}

func NewHTTPMetrics(reg prometheus.Registerer, appName string) *HTTPMetrics {
	m := &HTTPMetrics{
		appName: appName,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed by the application",
		}, []string{"app_name", "method", "endpoint", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"app_name", "method", "endpoint", "status_code"}),
		inProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "Number of HTTP requests in progress",
		}, []string{"app_name", "method"}),
	}
	reg.MustRegister(m.requests, m.duration, m.inProgress)
	return m
}

// Start marks a request as in flight and returns the function that ends it.
func (m *HTTPMetrics) Start(method string) func() {
	g := m.inProgress.WithLabelValues(m.appName, method)
	g.Inc()
	return g.Dec
}

func (m *HTTPMetrics) Observe(method, endpoint string, status int, seconds float64) {
	code := strconv.Itoa(status)
	m.requests.WithLabelValues(m.appName, method, endpoint, code).Inc()
	m.duration.WithLabelValues(m.appName, method, endpoint, code).Observe(seconds)
}

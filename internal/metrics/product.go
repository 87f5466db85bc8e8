package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/minishop/commerce-services/internal/model"
)

// Status label values shared by the product counters.
const (
	StatusSuccess              = "success"
	StatusFailure              = "failure"
	StatusNotFound             = "not_found"
	StatusProductNotFound      = "product_not_found"
	StatusInsufficientStock    = "insufficient_stock"
	StatusInvalidQuantity      = "invalid_quantity"
	StatusInvalidFileType      = "invalid_file_type"
	StatusStorageNotConfigured = "storage_not_configured"
	StatusValidationError      = "validation_error"
)

type ProductMetrics struct {
	appName       string
	creations     *prometheus.CounterVec
	updates       *prometheus.CounterVec
	deletions     *prometheus.CounterVec
	deductions    *prometheus.CounterVec
	additions     *prometheus.CounterVec
	stockLevel    *prometheus.GaugeVec
	imageUploads  *prometheus.CounterVec
	lowStockAlert *prometheus.CounterVec
}

func NewProductMetrics(reg prometheus.Registerer, appName string) *ProductMetrics {
	m := &ProductMetrics{
		appName: appName,
		creations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "product_creation_total",
			Help: "Total number of products created",
		}, []string{"app_name", "status"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "product_update_total",
			Help: "Total number of products updated",
		}, []string{"app_name", "status"}),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "product_deletion_total",
			Help: "Total number of products deleted",
		}, []string{"app_name", "status"}),
		deductions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_deduction_total",
			Help: "Total stock deduction attempts",
		}, []string{"app_name", "product_id", "status"}),
		additions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_addition_total",
			Help: "Total stock addition attempts",
		}, []string{"app_name", "product_id", "status"}),
		stockLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "product_stock_quantity",
			Help: "Current stock quantity of a product",
		}, []string{"app_name", "product_id", "product_name"}),
		imageUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "product_image_upload_total",
			Help: "Total product image upload attempts",
		}, []string{"app_name", "product_id", "status"}),
		lowStockAlert: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "low_stock_alerts_total",
			Help: "Total alerts triggered for low stock",
		}, []string{"app_name", "product_id", "product_name"}),
	}
	reg.MustRegister(
		m.creations, m.updates, m.deletions, m.deductions, m.additions,
		m.stockLevel, m.imageUploads, m.lowStockAlert,
	)
	return m
}

func id(productID int64) string { return strconv.FormatInt(productID, 10) }

func (m *ProductMetrics) ProductCreated(status string) {
	m.creations.WithLabelValues(m.appName, status).Inc()
}

func (m *ProductMetrics) ProductUpdated(status string) {
	m.updates.WithLabelValues(m.appName, status).Inc()
}

func (m *ProductMetrics) ProductDeleted(status string) {
	m.deletions.WithLabelValues(m.appName, status).Inc()
}

func (m *ProductMetrics) StockDeducted(productID int64, status string) {
	m.deductions.WithLabelValues(m.appName, id(productID), status).Inc()
}

func (m *ProductMetrics) StockAdded(productID int64, status string) {
	m.additions.WithLabelValues(m.appName, id(productID), status).Inc()
}

func (m *ProductMetrics) ImageUploaded(productID int64, status string) {
	m.imageUploads.WithLabelValues(m.appName, id(productID), status).Inc()
}

// SetStock records p's current stock on the stock gauge.
func (m *ProductMetrics) SetStock(p *model.Product) {
	m.stockLevel.WithLabelValues(m.appName, id(p.ProductID), p.Name).Set(float64(p.StockQuantity))
}

func (m *ProductMetrics) ClearStock(p *model.Product) {
	m.stockLevel.WithLabelValues(m.appName, id(p.ProductID), p.Name).Set(0)
}

func (m *ProductMetrics) LowStockAlert(p *model.Product) {
	m.lowStockAlert.WithLabelValues(m.appName, id(p.ProductID), p.Name).Inc()
}

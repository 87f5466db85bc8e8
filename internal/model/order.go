package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
)

type Order struct {
	OrderID         int64           `db:"order_id" json:"order_id"`
	UserID          int64           `db:"user_id" json:"user_id"`
	OrderDate       time.Time       `db:"order_date" json:"order_date"`
	Status          string          `db:"status" json:"status"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	ShippingAddress *string         `db:"shipping_address" json:"shipping_address"`
	BaseModel
	Items []OrderItem `db:"-" json:"items"` // loaded separately
}

type OrderItem struct {
	OrderItemID     int64           `db:"order_item_id" json:"order_item_id"`
	OrderID         int64           `db:"order_id" json:"order_id"`
	ProductID       int64           `db:"product_id" json:"product_id"`
	Quantity        int             `db:"quantity" json:"quantity"`
	PriceAtPurchase decimal.Decimal `db:"price_at_purchase" json:"price_at_purchase"`
	ItemTotal       decimal.Decimal `db:"item_total" json:"item_total"`
	BaseModel
}

package dto

import "github.com/shopspring/decimal"

type CreateOrderInput struct {
	UserID          int64
	ShippingAddress *string
	Items           []OrderItemInput
}

type OrderItemInput struct {
	ProductID       int64
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// ItemTotal is quantity × price_at_purchase.
func (i OrderItemInput) ItemTotal() decimal.Decimal {
	return i.PriceAtPurchase.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

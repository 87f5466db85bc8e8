package dto

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	UserID          *int64             `json:"user_id"`
	ShippingAddress *string            `json:"shipping_address"`
	Items           []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ProductID       *int64           `json:"product_id"`
	Quantity        *int             `json:"quantity"`
	PriceAtPurchase *decimal.Decimal `json:"price_at_purchase"`
}

// ToInput checks that every required field is present.
func (r *CreateOrderRequest) ToInput() (*CreateOrderInput, error) {
	if r.UserID == nil {
		return nil, fmt.Errorf("user_id: field required")
	}
	in := &CreateOrderInput{
		UserID:          *r.UserID,
		ShippingAddress: r.ShippingAddress,
		Items:           make([]OrderItemInput, 0, len(r.Items)),
	}
	for i, item := range r.Items {
		switch {
		case item.ProductID == nil:
			return nil, fmt.Errorf("items[%d].product_id: field required", i)
		case item.Quantity == nil:
			return nil, fmt.Errorf("items[%d].quantity: field required", i)
		case item.PriceAtPurchase == nil:
			return nil, fmt.Errorf("items[%d].price_at_purchase: field required", i)
		}
		in.Items = append(in.Items, OrderItemInput{
			ProductID:       *item.ProductID,
			Quantity:        *item.Quantity,
			PriceAtPurchase: *item.PriceAtPurchase,
		})
	}
	return in, nil
}

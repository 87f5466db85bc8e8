package dto

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	Name          string           `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity"`
}

// UpdateProductRequest treats an explicit null the same as an absent field.
type UpdateProductRequest struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity"`
	ImageURL      *string          `json:"image_url"`
}

func (r *UpdateProductRequest) ToInput(id int64) *UpdateProductInput {
	return &UpdateProductInput{
		ID:            id,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		ImageURL:      r.ImageURL,
	}
}

package dto

import "github.com/shopspring/decimal"

type CreateProductInput struct {
	Name          string
	Description   *string
	Price         decimal.Decimal
	StockQuantity int
}

// UpdateProductInput is a partial update; nil fields are left untouched.
type UpdateProductInput struct {
	ID            int64
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	ImageURL      *string
}

// HasChanges reports whether any field is set.
func (in *UpdateProductInput) HasChanges() bool {
	return in.Name != nil || in.Description != nil || in.Price != nil ||
		in.StockQuantity != nil || in.ImageURL != nil
}

type UploadImageInput struct {
	ProductID   int64
	Filename    string
	ContentType string
	Data        []byte
}

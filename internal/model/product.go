package model

import "github.com/shopspring/decimal"

type Product struct {
	ProductID     int64           `db:"product_id" json:"product_id"`
	Name          string          `db:"name" json:"name"`
	Description   *string         `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock_quantity" json:"stock_quantity"`
	ImageURL      *string         `db:"image_url" json:"image_url"`
	BaseModel
}

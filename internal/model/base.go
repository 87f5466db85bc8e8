package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices and totals are rendered as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

type BaseModel struct {
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

package model

import "time"

const (
	MovementDeduct = "deduct"
	MovementAdd    = "add"
)

// StockMovement is one audited change to a product's stock.
type StockMovement struct {
	MovementID     int64     `db:"movement_id" json:"movement_id"`
	ProductID      int64     `db:"product_id" json:"product_id"`
	MovementType   string    `db:"movement_type" json:"movement_type"`
	QuantityChange int       `db:"quantity_change" json:"quantity_change"`
	QuantityBefore int       `db:"quantity_before" json:"quantity_before"`
	QuantityAfter  int       `db:"quantity_after" json:"quantity_after"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

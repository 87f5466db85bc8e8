package dto

type DeductStockRequest struct {
	QuantityToDeduct *int `json:"quantity_to_deduct"`
}

// AddStockRequest also accepts the legacy quantity_to_deduct key.
type AddStockRequest struct {
	QuantityToAdd    *int `json:"quantity_to_add"`
	QuantityToDeduct *int `json:"quantity_to_deduct"`
}

// Quantity returns the requested amount; ok is false when neither key is set.
func (r *AddStockRequest) Quantity() (n int, ok bool) {
	switch {
	case r.QuantityToAdd != nil:
		return *r.QuantityToAdd, true
	case r.QuantityToDeduct != nil:
		return *r.QuantityToDeduct, true
	default:
		return 0, false
	}
}

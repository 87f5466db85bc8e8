package dto

type MovementFilters struct {
	ProductID int64
	Skip      int
	Limit     int
}

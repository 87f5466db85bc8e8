package dto

type OrderFilters struct {
	Skip   int
	Limit  int
	UserID *int64
	Status string
}

package dto

type ProductFilters struct {
	Skip   int    `json:"skip"`
	Limit  int    `json:"limit"` // 0 means no limit
	Search string `json:"search"`
}

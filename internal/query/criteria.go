package query

import "github.com/shopspring/decimal"

// SortField selects the product attribute a view is ordered by.
type SortField string

const (
	SortNone   SortField = ""
	SortPrice  SortField = "price"
	SortTitle  SortField = "title"
	SortRating SortField = "rating"
)

// SortOrder is the sort direction. The zero value means ascending.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// Criteria describes one desired product view. Produced by the UI on every
// edit, consumed by the Composer, never persisted.
type Criteria struct {
	SearchTerm string           `json:"search_term,omitempty"`
	Category   string           `json:"category,omitempty"`
	MinPrice   *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice   *decimal.Decimal `json:"max_price,omitempty"`
	Limit      int              `json:"limit,omitempty"`
	SortBy     SortField        `json:"sort_by,omitempty"`
	SortOrder  SortOrder        `json:"sort_order,omitempty"`
}

// Equal reports value equality, comparing the price bounds numerically so
// 10 and 10.00 describe the same view.
func (c Criteria) Equal(other Criteria) bool {
	return c.SearchTerm == other.SearchTerm &&
		c.Category == other.Category &&
		decimalPtrEqual(c.MinPrice, other.MinPrice) &&
		decimalPtrEqual(c.MaxPrice, other.MaxPrice) &&
		c.Limit == other.Limit &&
		c.SortBy == other.SortBy &&
		c.SortOrder == other.SortOrder
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

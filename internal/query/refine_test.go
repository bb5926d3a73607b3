package query

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/example/storefront-engine/internal/domain/product"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func rated(p product.Product, rate string) product.Product {
	p.Rating = &product.Rating{Rate: dec(rate), Count: 10}
	return p
}

func ids(products []product.Product) []int {
	out := make([]int, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func catalogFixture() []product.Product {
	return []product.Product{
		{ID: 1, Title: "Winter Jacket", Description: "Warm shell", Price: dec("49.90"), Category: "clothing"},
		{ID: 2, Title: "Shirt", Description: "Cotton", Price: dec("9.50"), Category: "clothing"},
		{ID: 3, Title: "Shoes", Description: "Running shoes", Price: dec("80.00"), Category: "shoes"},
		{ID: 4, Title: "hat", Description: "Sun protection", Price: dec("9.50"), Category: "clothing"},
	}
}

func TestRefine_SearchTermMatchesTitleOrDescription(t *testing.T) {
	tests := []struct {
		name string
		term string
		want []int
	}{
		{"title match, case-insensitive", "SHIRT", []int{2}},
		{"description match", "running", []int{3}},
		{"matches either field", "sh", []int{1, 2, 3}}, // shell, Shirt, Shoes/shoes
		{"no match", "zzz", []int{}},
		{"blank term keeps everything", "   ", []int{1, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Refine(catalogFixture(), Criteria{SearchTerm: tt.term})
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestRefine_PriceBoundsAreInclusive(t *testing.T) {
	got := Refine(catalogFixture(), Criteria{MinPrice: decPtr("9.50"), MaxPrice: decPtr("49.90")})
	assert.Equal(t, []int{1, 2, 4}, ids(got))
}

func TestRefine_SortByPriceDesc(t *testing.T) {
	got := Refine(catalogFixture(), Criteria{SortBy: SortPrice, SortOrder: OrderDesc})
	assert.Equal(t, []int{3, 1, 2, 4}, ids(got))
}

func TestRefine_SortByPrice_TiesKeepPriorOrder(t *testing.T) {
	got := Refine(catalogFixture(), Criteria{SortBy: SortPrice})
	// 2 and 4 share a price; input order is preserved between them.
	assert.Equal(t, []int{2, 4, 1, 3}, ids(got))
}

func TestRefine_SortByTitleIsCaseInsensitive(t *testing.T) {
	got := Refine(catalogFixture(), Criteria{SortBy: SortTitle})
	assert.Equal(t, []int{4, 2, 3, 1}, ids(got))
}

func TestRefine_SortByRating_MissingRatingSortsAsZero(t *testing.T) {
	products := []product.Product{
		rated(product.Product{ID: 1, Title: "a", Price: dec("1")}, "3.5"),
		{ID: 2, Title: "b", Price: dec("1")}, // unrated
		rated(product.Product{ID: 3, Title: "c", Price: dec("1")}, "4.8"),
	}

	got := Refine(products, Criteria{SortBy: SortRating, SortOrder: OrderDesc})
	assert.Equal(t, []int{3, 1, 2}, ids(got))
}

func TestRefine_FilterThenSort(t *testing.T) {
	c := Criteria{
		SearchTerm: "s",
		MaxPrice:   decPtr("50"),
		SortBy:     SortPrice,
		SortOrder:  OrderDesc,
	}
	got := Refine(catalogFixture(), c)
	// "s" matches 1 (shell), 2 (Shirt), 3 (Shoes), 4 (Sun); max price drops 3.
	assert.Equal(t, []int{1, 2, 4}, ids(got))
}

func TestRefine_DoesNotModifyInput(t *testing.T) {
	products := catalogFixture()
	Refine(products, Criteria{SortBy: SortPrice, SortOrder: OrderDesc})
	assert.Equal(t, []int{1, 2, 3, 4}, ids(products))
}

func TestCriteria_Equal(t *testing.T) {
	base := Criteria{SearchTerm: "shoe", Category: "shoes", MinPrice: decPtr("5"), Limit: 10, SortBy: SortPrice, SortOrder: OrderDesc}

	tests := []struct {
		name  string
		other Criteria
		want  bool
	}{
		{"identical", Criteria{SearchTerm: "shoe", Category: "shoes", MinPrice: decPtr("5"), Limit: 10, SortBy: SortPrice, SortOrder: OrderDesc}, true},
		{"numerically equal price bound", Criteria{SearchTerm: "shoe", Category: "shoes", MinPrice: decPtr("5.00"), Limit: 10, SortBy: SortPrice, SortOrder: OrderDesc}, true},
		{"different term", Criteria{SearchTerm: "sock", Category: "shoes", MinPrice: decPtr("5"), Limit: 10, SortBy: SortPrice, SortOrder: OrderDesc}, false},
		{"missing bound", Criteria{SearchTerm: "shoe", Category: "shoes", Limit: 10, SortBy: SortPrice, SortOrder: OrderDesc}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
		})
	}
}

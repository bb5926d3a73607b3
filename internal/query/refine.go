package query

import (
	"sort"
	"strings"

	"github.com/example/storefront-engine/internal/domain/product"
)

// Refine applies the client-side portion of a criteria to a fetched product
// list: substring search, inclusive price bounds, then a stable sort. The
// input slice is not modified.
func Refine(products []product.Product, c Criteria) []product.Product {
	out := make([]product.Product, 0, len(products))

	term := strings.ToLower(strings.TrimSpace(c.SearchTerm))
	for _, p := range products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if c.MinPrice != nil && p.Price.LessThan(*c.MinPrice) {
			continue
		}
		if c.MaxPrice != nil && p.Price.GreaterThan(*c.MaxPrice) {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, c.SortBy, c.SortOrder)
	return out
}

// sortProducts sorts in place. Ties keep their prior relative order.
func sortProducts(products []product.Product, field SortField, order SortOrder) {
	if field == SortNone {
		return
	}

	var less func(a, b product.Product) int
	switch field {
	case SortPrice:
		less = func(a, b product.Product) int { return a.Price.Cmp(b.Price) }
	case SortTitle:
		less = func(a, b product.Product) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case SortRating:
		less = func(a, b product.Product) int { return a.RatingRate().Cmp(b.RatingRate()) }
	default:
		return
	}

	desc := order == OrderDesc
	sort.SliceStable(products, func(i, j int) bool {
		cmp := less(products[i], products[j])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

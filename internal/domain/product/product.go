package product

import "github.com/shopspring/decimal"

// Product is an immutable value fetched from the remote catalog. Instances
// are never mutated after creation; cart items and cached lists hold them by
// value without copy-on-write concerns.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      *Rating         `json:"rating,omitempty"`
}

// Rating is the optional aggregate review score carried by a Product.
type Rating struct {
	Rate  decimal.Decimal `json:"rate"`
	Count int             `json:"count"`
}

// RatingRate returns the review score, or zero when the product has none.
// Sorting by rating treats unrated products as rated 0.
func (p Product) RatingRate() decimal.Decimal {
	if p.Rating == nil {
		return decimal.Zero
	}
	return p.Rating.Rate
}

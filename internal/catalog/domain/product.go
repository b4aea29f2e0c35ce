package domain

import "math"

// Rating is the aggregate review score carried by the catalog upstream.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product is a catalog item as served by the upstream catalog API. Price is
// in major units (the upstream's format); PriceMinor converts for the cart.
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      Rating  `json:"rating"`
}

// PriceMinor returns the price in minor units, rounded to the nearest cent.
func (p *Product) PriceMinor() int64 {
	return int64(math.Round(p.Price * 100))
}

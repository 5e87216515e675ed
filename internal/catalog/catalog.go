package catalog

import "errors"

// Product is the read model the cart snapshots from. Catalog CRUD lives
// outside this core; only lookups and a seed path are exposed here.
type Product struct {
	ID         string `json:"productId"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price"`
	Image      string `json:"image"`
}

var ErrNotFound = errors.New("product not found")

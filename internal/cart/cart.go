package cart

import "errors"

// MaxLineQuantity caps any single cart line.
const MaxLineQuantity = 99

// Line is one product entry in a buyer's cart. Name, price and image are
// snapshots taken when the product is first added; later catalog edits do
// not touch existing lines.
type Line struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPrice"`
	Image          string `json:"image"`
	Quantity       int    `json:"quantity"`
}

var (
	ErrQuantityRange = errors.New("quantity must be between 1 and 99")
	ErrLineNotFound  = errors.New("cart line not found")
)

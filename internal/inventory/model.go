package inventory

import "fmt"

type StockItem struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
	SoldStock int    `json:"soldStock"`
}

type Line struct {
	ProductID string
	Quantity  int
}

// OutOfStockError aborts a reservation attempt; the caller is expected to
// roll back the surrounding transaction so no partial decrement survives.
type OutOfStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s out of stock: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

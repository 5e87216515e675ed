package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreasstove999/storefront-core/internal/catalog"
	"github.com/andreasstove999/storefront-core/internal/inventory"
)

// ProductLookup resolves the snapshot fields for a new cart line.
type ProductLookup interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
}

// StockLookup answers availability checks before a line is created or grown.
// The real reservation happens at checkout; this is a courtesy check so the
// buyer learns about shortages before paying.
type StockLookup interface {
	Get(ctx context.Context, productID string) (inventory.StockItem, error)
}

// Service owns one buyer's mutable cart. A cart is single-writer under this
// design (one buyer session), so there is no locking here; concurrency is
// only a concern once checkout reserves inventory.
type Service struct {
	carts    Repository
	products ProductLookup
	stock    StockLookup
}

func NewService(carts Repository, products ProductLookup, stock StockLookup) *Service {
	return &Service{carts: carts, products: products, stock: stock}
}

// AddItem merges into an existing line (summing quantities, clamped to 99)
// or creates a new line with product snapshot fields. Exceeding available
// stock fails with OutOfStockError.
func (s *Service) AddItem(ctx context.Context, buyerID, productID string, qty int) ([]Line, error) {
	if qty < 1 || qty > MaxLineQuantity {
		return nil, ErrQuantityRange
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	lines, err := s.carts.Lines(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	ln := Line{
		ProductID:      p.ID,
		Name:           p.Name,
		UnitPriceCents: p.PriceCents,
		Image:          p.Image,
		Quantity:       qty,
	}
	for _, existing := range lines {
		if existing.ProductID == productID {
			// Keep the original snapshot; only the quantity grows.
			ln = existing
			ln.Quantity += qty
			if ln.Quantity > MaxLineQuantity {
				ln.Quantity = MaxLineQuantity
			}
			break
		}
	}

	if err := s.checkStock(ctx, productID, ln.Quantity); err != nil {
		return nil, err
	}

	if err := s.carts.UpsertLine(ctx, buyerID, ln); err != nil {
		return nil, err
	}
	return s.carts.Lines(ctx, buyerID)
}

// SetQuantity replaces a line's quantity. A quantity below 1 removes the
// line; above 99 it is rejected outright so the caller can surface a
// validation message instead of silently clamping.
func (s *Service) SetQuantity(ctx context.Context, buyerID, productID string, qty int) ([]Line, error) {
	if qty < 1 {
		return s.RemoveItem(ctx, buyerID, productID)
	}
	if qty > MaxLineQuantity {
		return nil, ErrQuantityRange
	}

	lines, err := s.carts.Lines(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	var found *Line
	for i := range lines {
		if lines[i].ProductID == productID {
			found = &lines[i]
			break
		}
	}
	if found == nil {
		return nil, ErrLineNotFound
	}

	if err := s.checkStock(ctx, productID, qty); err != nil {
		return nil, err
	}

	found.Quantity = qty
	if err := s.carts.UpsertLine(ctx, buyerID, *found); err != nil {
		return nil, err
	}
	return s.carts.Lines(ctx, buyerID)
}

func (s *Service) RemoveItem(ctx context.Context, buyerID, productID string) ([]Line, error) {
	if err := s.carts.DeleteLine(ctx, buyerID, productID); err != nil {
		return nil, err
	}
	return s.carts.Lines(ctx, buyerID)
}

func (s *Service) Clear(ctx context.Context, buyerID string) error {
	return s.carts.Clear(ctx, buyerID)
}

// Snapshot returns the cart lines as they will be frozen onto an order.
func (s *Service) Snapshot(ctx context.Context, buyerID string) ([]Line, error) {
	return s.carts.Lines(ctx, buyerID)
}

func (s *Service) checkStock(ctx context.Context, productID string, qty int) error {
	item, err := s.stock.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			return &inventory.OutOfStockError{ProductID: productID, Requested: qty, Available: 0}
		}
		return fmt.Errorf("stock lookup: %w", err)
	}
	if item.Stock < qty {
		return &inventory.OutOfStockError{ProductID: productID, Requested: qty, Available: item.Stock}
	}
	return nil
}

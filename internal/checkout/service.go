package checkout

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/storefront-core/internal/cart"
	"github.com/andreasstove999/storefront-core/internal/order"
	"github.com/andreasstove999/storefront-core/internal/pricing"
)

// Request is one checkout submission. IdempotencyKey is generated by the
// client; replaying the same key returns the original order instead of
// creating a second one.
type Request struct {
	BuyerID          string
	IdempotencyKey   string
	ShippingAddress  order.Address
	PaymentMethod    order.PaymentMethod
	RequiresApproval bool
	Notes            string
}

type Result struct {
	Order *order.Order `json:"order"`
	// CheckoutURL is set only for payment methods that redirect to an
	// external payment page.
	CheckoutURL string `json:"checkoutUrl,omitempty"`
	// Replayed marks a response served from a previous submission with the
	// same idempotency key.
	Replayed bool `json:"-"`
}

// Cart is the slice of the cart service checkout needs.
type Cart interface {
	Snapshot(ctx context.Context, buyerID string) ([]cart.Line, error)
	Clear(ctx context.Context, buyerID string) error
}

// ErrDuplicateKey is returned by Store.Place when another request with the
// same idempotency key committed first.
var ErrDuplicateKey = errors.New("idempotency key already used")

// Store persists an order atomically with its inventory reservation.
// Place must be all-or-nothing: an out-of-stock line or a duplicate key
// leaves no decrement and no order behind. FindByIdempotencyKey returns
// (nil, nil) for an unseen key.
type Store interface {
	FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error)
	Place(ctx context.Context, o *order.Order, idempotencyKey string) error
}

// Gateway creates an external payment session and returns its redirect URL.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, o *order.Order) (string, error)
}

// Notifier announces new orders, fire-and-forget.
type Notifier interface {
	OrderCreated(ctx context.Context, o *order.Order)
}

type Service struct {
	carts    Cart
	store    Store
	gateway  Gateway
	notifier Notifier
	pricing  pricing.Config
	logger   *log.Logger
	now      func() time.Time
}

func NewService(carts Cart, store Store, gateway Gateway, notifier Notifier, pricingCfg pricing.Config, logger *log.Logger) *Service {
	return &Service{
		carts:    carts,
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		pricing:  pricingCfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Checkout converts the buyer's cart into an immutable order.
//
// Ordering of steps matters: the reservation and order insert share one
// transaction inside store.Place, and the cart is cleared only after the
// whole flow (including the payment redirect, when one is needed) has
// succeeded, so a failed attempt leaves the cart intact for a retry.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if existing, err := s.store.FindByIdempotencyKey(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return s.replay(ctx, existing, req.BuyerID)
	}

	lines, err := s.carts.Snapshot(ctx, req.BuyerID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	o := s.buildOrder(req, lines)

	if err := s.store.Place(ctx, o, req.IdempotencyKey); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			// Lost the race against a concurrent retry; serve its result.
			winner, ferr := s.store.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if ferr != nil || winner == nil {
				return nil, err
			}
			return s.replay(ctx, winner, req.BuyerID)
		}
		return nil, err
	}

	res := &Result{Order: o}
	if o.PaymentMethod.RequiresGateway() {
		url, err := s.gateway.CreateCheckoutSession(ctx, o)
		if err != nil {
			// The order exists and the stock is reserved; surface the
			// failure and keep the cart so the buyer can retry the redirect.
			return nil, &PaymentGatewayError{OrderID: o.ID, Err: err}
		}
		res.CheckoutURL = url
	}

	if err := s.carts.Clear(ctx, req.BuyerID); err != nil {
		s.logger.Printf("clear cart for %s after order %s: %v", req.BuyerID, o.OrderNumber, err)
	}

	s.logger.Printf("order %s placed by %s, total %s", o.OrderNumber, o.BuyerID, pricing.FormatCents(o.TotalPriceCents))
	s.notifier.OrderCreated(ctx, o)
	return res, nil
}

// replay serves a repeated idempotency key: no new order, no decrement.
// A key belongs to the buyer who first used it; anyone else presenting it
// is rejected rather than shown the stored order. Unpaid card orders still
// get a fresh redirect URL so the retrying client can complete payment.
func (s *Service) replay(ctx context.Context, o *order.Order, buyerID string) (*Result, error) {
	if o.BuyerID != buyerID {
		return nil, order.ErrUnauthorized
	}

	res := &Result{Order: o, Replayed: true}
	if o.PaymentMethod.RequiresGateway() && !o.IsPaid {
		url, err := s.gateway.CreateCheckoutSession(ctx, o)
		if err != nil {
			return nil, &PaymentGatewayError{OrderID: o.ID, Err: err}
		}
		res.CheckoutURL = url
	}
	return res, nil
}

func (s *Service) buildOrder(req Request, lines []cart.Line) *order.Order {
	items := make([]order.Item, 0, len(lines))
	priceLines := make([]pricing.Line, 0, len(lines))
	for _, ln := range lines {
		items = append(items, order.Item{
			ProductID:      ln.ProductID,
			Name:           ln.Name,
			UnitPriceCents: ln.UnitPriceCents,
			Image:          ln.Image,
			Quantity:       ln.Quantity,
		})
		priceLines = append(priceLines, pricing.Line{UnitPriceCents: ln.UnitPriceCents, Quantity: ln.Quantity})
	}

	// Totals come from the snapshot, not live prices: a price edit racing
	// the checkout cannot change what the buyer saw.
	totals := pricing.ComputeTotals(priceLines, s.pricing)

	status := order.StatusNew
	if req.RequiresApproval {
		status = order.StatusPending
	}

	return &order.Order{
		ID:                 uuid.NewString(),
		BuyerID:            req.BuyerID,
		Items:              items,
		ItemsPriceCents:    totals.SubtotalCents,
		TaxPriceCents:      totals.TaxCents,
		ShippingPriceCents: totals.ShippingCents,
		TotalPriceCents:    totals.TotalCents,
		ShippingAddress:    req.ShippingAddress,
		PaymentMethod:      req.PaymentMethod,
		Status:             status,
		IsPaid:             false,
		CreatedAt:          s.now().UTC(),
		Notes:              req.Notes,
	}
}

func validate(req Request) error {
	var missing []string
	if req.BuyerID == "" {
		missing = append(missing, "buyerId")
	}
	if req.IdempotencyKey == "" {
		missing = append(missing, "idempotencyKey")
	}
	if req.ShippingAddress.Address == "" {
		missing = append(missing, "shippingAddress.address")
	}
	if req.ShippingAddress.City == "" {
		missing = append(missing, "shippingAddress.city")
	}
	if req.ShippingAddress.PostalCode == "" {
		missing = append(missing, "shippingAddress.postalCode")
	}
	if req.ShippingAddress.Country == "" {
		missing = append(missing, "shippingAddress.country")
	}
	if !req.PaymentMethod.Valid() {
		missing = append(missing, "paymentMethod")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

package checkout

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/andreasstove999/storefront-core/internal/cart"
	"github.com/andreasstove999/storefront-core/internal/inventory"
	"github.com/andreasstove999/storefront-core/internal/order"
	"github.com/andreasstove999/storefront-core/internal/pricing"
)

type fakeCart struct {
	lines   []cart.Line
	cleared int
}

func (f *fakeCart) Snapshot(ctx context.Context, buyerID string) ([]cart.Line, error) {
	out := make([]cart.Line, len(f.lines))
	copy(out, f.lines)
	return out, nil
}

func (f *fakeCart) Clear(ctx context.Context, buyerID string) error {
	f.cleared++
	f.lines = nil
	return nil
}

type fakeStore struct {
	byKey map[string]*order.Order

	placeCalls int
	placeErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byKey: make(map[string]*order.Order)}
}

func (f *fakeStore) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	if o, ok := f.byKey[key]; ok {
		return o, nil
	}
	return nil, nil
}

func (f *fakeStore) Place(ctx context.Context, o *order.Order, key string) error {
	f.placeCalls++
	if f.placeErr != nil {
		return f.placeErr
	}
	if _, ok := f.byKey[key]; ok {
		return ErrDuplicateKey
	}
	o.OrderNumber = "ORD-000001"
	f.byKey[key] = o
	return nil
}

type fakeGateway struct {
	calls int
	err   error
}

func (f *fakeGateway) CreateCheckoutSession(ctx context.Context, o *order.Order) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "https://pay.example.com/checkout/" + o.ID, nil
}

type fakeNotifier struct {
	created []string
}

func (f *fakeNotifier) OrderCreated(ctx context.Context, o *order.Order) {
	f.created = append(f.created, o.ID)
}

func validRequest() Request {
	return Request{
		BuyerID:        "buyer-1",
		IdempotencyKey: "key-1",
		ShippingAddress: order.Address{
			Address:    "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		},
		PaymentMethod: order.PaymentCard,
	}
}

func twoLineCart() *fakeCart {
	return &fakeCart{lines: []cart.Line{
		{ProductID: "p1", Name: "Keyboard", UnitPriceCents: 3000, Image: "/img/p1.jpg", Quantity: 2},
		{ProductID: "p2", Name: "Mouse", UnitPriceCents: 1500, Image: "/img/p2.jpg", Quantity: 2},
	}}
}

func newTestService(c Cart, st Store, gw Gateway, n Notifier) *Service {
	return NewService(c, st, gw, n, pricing.DefaultConfig(), log.New(io.Discard, "", 0))
}

func TestCheckoutSuccess(t *testing.T) {
	ctx := context.Background()
	carts := twoLineCart()
	store := newFakeStore()
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}
	svc := newTestService(carts, store, gateway, notifier)

	res, err := svc.Checkout(ctx, validRequest())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	o := res.Order
	// subtotal 90.00 -> tax 13.50, shipping 10.00, total 113.50
	if o.ItemsPriceCents != 9000 || o.TaxPriceCents != 1350 || o.ShippingPriceCents != 1000 || o.TotalPriceCents != 11350 {
		t.Fatalf("unexpected totals: %+v", o)
	}
	if o.Status != order.StatusNew || o.IsPaid {
		t.Fatalf("expected unpaid NEW order, got status=%s paid=%v", o.Status, o.IsPaid)
	}
	if o.OrderNumber == "" {
		t.Fatalf("order number not assigned")
	}
	if len(o.Items) != 2 || o.Items[0].Name != "Keyboard" {
		t.Fatalf("items not frozen from snapshot: %+v", o.Items)
	}
	if !strings.HasPrefix(res.CheckoutURL, "https://pay.example.com/checkout/") {
		t.Fatalf("missing checkout url: %q", res.CheckoutURL)
	}
	if carts.cleared != 1 {
		t.Fatalf("cart should be cleared exactly once, got %d", carts.cleared)
	}
	if len(notifier.created) != 1 {
		t.Fatalf("expected creation notification, got %v", notifier.created)
	}
}

func TestCheckoutPayOnDelivery(t *testing.T) {
	ctx := context.Background()
	gateway := &fakeGateway{}
	svc := newTestService(twoLineCart(), newFakeStore(), gateway, &fakeNotifier{})

	req := validRequest()
	req.PaymentMethod = order.PaymentCashOnDelivery

	res, err := svc.Checkout(ctx, req)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.CheckoutURL != "" {
		t.Fatalf("pay-on-delivery must not produce a redirect: %q", res.CheckoutURL)
	}
	if gateway.calls != 0 {
		t.Fatalf("gateway should not be called, got %d calls", gateway.calls)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	svc := newTestService(&fakeCart{}, store, &fakeGateway{}, &fakeNotifier{})

	_, err := svc.Checkout(ctx, validRequest())
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if store.placeCalls != 0 {
		t.Fatalf("no order should be placed for an empty cart")
	}
}

func TestCheckoutValidation(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		mutate    func(*Request)
		wantField string
	}{
		"missing address":        {func(r *Request) { r.ShippingAddress.Address = "" }, "shippingAddress.address"},
		"missing city":           {func(r *Request) { r.ShippingAddress.City = "" }, "shippingAddress.city"},
		"missing postal code":    {func(r *Request) { r.ShippingAddress.PostalCode = "" }, "shippingAddress.postalCode"},
		"missing country":        {func(r *Request) { r.ShippingAddress.Country = "" }, "shippingAddress.country"},
		"unknown payment method": {func(r *Request) { r.PaymentMethod = "barter" }, "paymentMethod"},
		"missing idempotency key": {func(r *Request) { r.IdempotencyKey = "" }, "idempotencyKey"},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			carts := twoLineCart()
			svc := newTestService(carts, newFakeStore(), &fakeGateway{}, &fakeNotifier{})

			req := validRequest()
			tt.mutate(&req)

			_, err := svc.Checkout(ctx, req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, f := range verr.Fields {
				if f == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Fatalf("error should name %q, got %v", tt.wantField, verr.Fields)
			}
			if carts.cleared != 0 {
				t.Fatalf("cart must stay intact on validation failure")
			}
		})
	}
}

func TestCheckoutOutOfStock(t *testing.T) {
	ctx := context.Background()
	carts := twoLineCart()
	store := newFakeStore()
	store.placeErr = &inventory.OutOfStockError{ProductID: "p2", Requested: 2, Available: 1}
	svc := newTestService(carts, store, &fakeGateway{}, &fakeNotifier{})

	_, err := svc.Checkout(ctx, validRequest())
	var oos *inventory.OutOfStockError
	if !errors.As(err, &oos) {
		t.Fatalf("expected OutOfStockError, got %v", err)
	}
	if oos.ProductID != "p2" {
		t.Fatalf("error should name the short product: %+v", oos)
	}
	if carts.cleared != 0 {
		t.Fatalf("a failed checkout must leave the cart untouched")
	}
	if len(store.byKey) != 0 {
		t.Fatalf("no order should exist after an aborted checkout")
	}
}

func TestCheckoutIdempotentReplay(t *testing.T) {
	ctx := context.Background()
	carts := twoLineCart()
	store := newFakeStore()
	gateway := &fakeGateway{}
	notifier := &fakeNotifier{}
	svc := newTestService(carts, store, gateway, notifier)

	first, err := svc.Checkout(ctx, validRequest())
	if err != nil {
		t.Fatalf("first checkout: %v", err)
	}

	second, err := svc.Checkout(ctx, validRequest())
	if err != nil {
		t.Fatalf("replayed checkout: %v", err)
	}

	if !second.Replayed {
		t.Fatalf("second call should be marked as a replay")
	}
	if second.Order.ID != first.Order.ID {
		t.Fatalf("replay produced a different order: %s vs %s", second.Order.ID, first.Order.ID)
	}
	if store.placeCalls != 1 {
		t.Fatalf("Place must run once, got %d", store.placeCalls)
	}
	if len(notifier.created) != 1 {
		t.Fatalf("only one creation notification expected, got %v", notifier.created)
	}
	// An unpaid card order still gets a redirect so the client can finish paying.
	if second.CheckoutURL == "" {
		t.Fatalf("replay of an unpaid card order should carry a checkout url")
	}
}

func TestCheckoutReplayRejectsOtherBuyersKey(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	gateway := &fakeGateway{}
	svc := newTestService(twoLineCart(), store, gateway, &fakeNotifier{})

	if _, err := svc.Checkout(ctx, validRequest()); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	gatewayCallsAfterFirst := gateway.calls

	req := validRequest()
	req.BuyerID = "buyer-2"

	res, err := svc.Checkout(ctx, req)
	if !errors.Is(err, order.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for another buyer's key, got %v", err)
	}
	if res != nil {
		t.Fatalf("no order data may leak to the wrong buyer, got %+v", res)
	}
	if store.placeCalls != 1 {
		t.Fatalf("rejected replay must not place an order, got %d calls", store.placeCalls)
	}
	if gateway.calls != gatewayCallsAfterFirst {
		t.Fatalf("rejected replay must not create a payment session")
	}
}

// raceStore simulates a concurrent retry committing between our idempotency
// lookup and our insert: the first lookup sees nothing, Place hits the
// unique key, and the second lookup finds the winner.
type raceStore struct {
	winner *order.Order
	finds  int
	places int
}

func (r *raceStore) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	r.finds++
	if r.finds == 1 {
		return nil, nil
	}
	return r.winner, nil
}

func (r *raceStore) Place(ctx context.Context, o *order.Order, key string) error {
	r.places++
	return ErrDuplicateKey
}

func TestCheckoutDuplicateKeyRace(t *testing.T) {
	ctx := context.Background()
	store := &raceStore{winner: &order.Order{
		ID:            "winner",
		OrderNumber:   "ORD-000009",
		BuyerID:       "buyer-1",
		PaymentMethod: order.PaymentCashOnDelivery,
	}}
	svc := newTestService(twoLineCart(), store, &fakeGateway{}, &fakeNotifier{})

	res, err := svc.Checkout(ctx, validRequest())
	if err != nil {
		t.Fatalf("checkout after race: %v", err)
	}
	if !res.Replayed || res.Order.ID != "winner" {
		t.Fatalf("expected the winner's order, got %+v", res)
	}
	if store.places != 1 {
		t.Fatalf("expected a single insert attempt, got %d", store.places)
	}
}

func TestCheckoutGatewayFailure(t *testing.T) {
	ctx := context.Background()
	carts := twoLineCart()
	store := newFakeStore()
	gateway := &fakeGateway{err: errors.New("gateway down")}
	svc := newTestService(carts, store, gateway, &fakeNotifier{})

	_, err := svc.Checkout(ctx, validRequest())
	var gwErr *PaymentGatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected PaymentGatewayError, got %v", err)
	}
	if carts.cleared != 0 {
		t.Fatalf("cart must not be cleared when the redirect cannot be produced")
	}
}

func TestCheckoutRequiresApproval(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(twoLineCart(), newFakeStore(), &fakeGateway{}, &fakeNotifier{})

	req := validRequest()
	req.PaymentMethod = order.PaymentCashOnDelivery
	req.RequiresApproval = true

	res, err := svc.Checkout(ctx, req)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if res.Order.Status != order.StatusPending {
		t.Fatalf("manual-review orders start at PENDING, got %s", res.Order.Status)
	}
}

package integration

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/storefront-core/internal/cart"
	"github.com/andreasstove999/storefront-core/internal/catalog"
	"github.com/andreasstove999/storefront-core/internal/checkout"
	"github.com/andreasstove999/storefront-core/internal/inventory"
	"github.com/andreasstove999/storefront-core/internal/order"
	"github.com/andreasstove999/storefront-core/internal/payment"
	"github.com/andreasstove999/storefront-core/internal/pricing"
	"github.com/andreasstove999/storefront-core/internal/testutil"
)

type noopNotifier struct{}

func (noopNotifier) OrderCreated(ctx context.Context, o *order.Order)                        {}
func (noopNotifier) OrderStatusChanged(ctx context.Context, o *order.Order, from, to order.Status) {}
func (noopNotifier) OrderPaid(ctx context.Context, o *order.Order)                           {}

type stack struct {
	stock     *inventory.PostgresRepository
	carts     *cart.Service
	checkouts *checkout.Service
	orders    order.Repository
	lifecycle *order.Lifecycle
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	logger := log.New(io.Discard, "", 0)

	catalogRepo := catalog.NewPostgresRepository(pool)
	stockRepo := inventory.NewPostgresRepository(pool)
	cartRepo := cart.NewPostgresRepository(pool)
	orderRepo := order.NewPostgresRepository(pool, stockRepo)

	cartSvc := cart.NewService(cartRepo, catalogRepo, stockRepo)
	gateway := payment.NewHostedCheckout("https://pay.example.com")
	store := checkout.NewPostgresStore(pool, stockRepo, orderRepo)
	checkoutSvc := checkout.NewService(cartSvc, store, gateway, noopNotifier{}, pricing.DefaultConfig(), logger)
	lifecycle := order.NewLifecycle(orderRepo, noopNotifier{}, logger)

	require.NoError(t, catalogRepo.Upsert(ctx, catalog.Product{ID: "p1", Name: "Keyboard", PriceCents: 3000, Image: "/img/p1.jpg"}))
	require.NoError(t, catalogRepo.Upsert(ctx, catalog.Product{ID: "p2", Name: "Mouse", PriceCents: 1500, Image: "/img/p2.jpg"}))
	require.NoError(t, stockRepo.SetStock(ctx, "p1", 10))
	require.NoError(t, stockRepo.SetStock(ctx, "p2", 5))

	return &stack{
		stock:     stockRepo,
		carts:     cartSvc,
		checkouts: checkoutSvc,
		orders:    orderRepo,
		lifecycle: lifecycle,
	}
}

func placeOrder(t *testing.T, ctx context.Context, s *stack, buyerID, key string) *checkout.Result {
	t.Helper()

	_, err := s.carts.AddItem(ctx, buyerID, "p1", 2)
	require.NoError(t, err)
	_, err = s.carts.AddItem(ctx, buyerID, "p2", 2)
	require.NoError(t, err)

	res, err := s.checkouts.Checkout(ctx, checkout.Request{
		BuyerID:        buyerID,
		IdempotencyKey: key,
		ShippingAddress: order.Address{
			Address:    "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		},
		PaymentMethod: order.PaymentCashOnDelivery,
	})
	require.NoError(t, err)
	return res
}

func TestCheckoutFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := newStack(t, ctx)

	res := placeOrder(t, ctx, s, "buyer-1", "key-1")
	o := res.Order

	require.Equal(t, "ORD-000001", o.OrderNumber)
	require.Equal(t, int64(9000), o.ItemsPriceCents)
	require.Equal(t, int64(1350), o.TaxPriceCents)
	require.Equal(t, int64(1000), o.ShippingPriceCents)
	require.Equal(t, int64(11350), o.TotalPriceCents)
	require.Equal(t, order.StatusNew, o.Status)
	require.False(t, o.IsPaid)

	// Stock decremented all-or-nothing at placement.
	item, err := s.stock.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 8, item.Stock)
	require.Equal(t, 2, item.SoldStock)

	// Cart cleared only after success.
	lines, err := s.carts.Snapshot(ctx, "buyer-1")
	require.NoError(t, err)
	require.Empty(t, lines)

	// Fetch by both identifiers.
	byID, err := s.orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, byID.Items, 2)

	byNumber, err := s.orders.GetByOrderNumber(ctx, "ORD-000001")
	require.NoError(t, err)
	require.Equal(t, o.ID, byNumber.ID)
}

func TestCheckoutIdempotentReplayKeepsStock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := newStack(t, ctx)

	first := placeOrder(t, ctx, s, "buyer-1", "key-1")

	// Replaying the same key must not create a second order or decrement
	// again, even though the cart is already empty.
	second, err := s.checkouts.Checkout(ctx, checkout.Request{
		BuyerID:        "buyer-1",
		IdempotencyKey: "key-1",
		ShippingAddress: order.Address{
			Address:    "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		},
		PaymentMethod: order.PaymentCashOnDelivery,
	})
	require.NoError(t, err)
	require.True(t, second.Replayed)
	require.Equal(t, first.Order.ID, second.Order.ID)

	item, err := s.stock.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 8, item.Stock)
}

func TestCheckoutRejectsInsufficientStock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := newStack(t, ctx)

	// p2 has 5 in stock; 2 carts of 3 exceed it at checkout time.
	_, err := s.carts.AddItem(ctx, "buyer-1", "p2", 3)
	require.NoError(t, err)
	_, err = s.carts.AddItem(ctx, "buyer-2", "p2", 3)
	require.NoError(t, err)

	place := func(buyerID, key string) error {
		_, err := s.checkouts.Checkout(ctx, checkout.Request{
			BuyerID:        buyerID,
			IdempotencyKey: key,
			ShippingAddress: order.Address{
				Address:    "1 Main St",
				City:       "Springfield",
				PostalCode: "12345",
				Country:    "US",
			},
			PaymentMethod: order.PaymentCashOnDelivery,
		})
		return err
	}

	require.NoError(t, place("buyer-1", "key-1"))

	err = place("buyer-2", "key-2")
	var oos *inventory.OutOfStockError
	require.ErrorAs(t, err, &oos)
	require.Equal(t, "p2", oos.ProductID)
	require.Equal(t, 2, oos.Available)

	// The losing buyer's cart survives for a retry.
	lines, err := s.carts.Snapshot(ctx, "buyer-2")
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestCancelRestocks(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := newStack(t, ctx)

	res := placeOrder(t, ctx, s, "buyer-1", "key-1")

	cancelled, err := s.lifecycle.Cancel(ctx, order.ActorBuyer, "buyer-1", res.Order.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusCancelled, cancelled.Status)

	item, err := s.stock.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 10, item.Stock)
	require.Equal(t, 0, item.SoldStock)

	// A second cancel is an illegal transition, and must not restock again.
	_, err = s.lifecycle.Cancel(ctx, order.ActorBuyer, "buyer-1", res.Order.ID)
	var invalid *order.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	item, err = s.stock.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, 10, item.Stock)
}

func TestFulfillmentAndPayment(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := newStack(t, ctx)

	res := placeOrder(t, ctx, s, "buyer-1", "key-1")
	orderID := res.Order.ID

	paid, err := s.lifecycle.ConfirmPayment(ctx, orderID)
	require.NoError(t, err)
	require.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	firstPaidAt := *paid.PaidAt

	// Webhook replays keep the first timestamp.
	paidAgain, err := s.lifecycle.ConfirmPayment(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, firstPaidAt, *paidAgain.PaidAt)

	for _, to := range []order.Status{order.StatusProcessing, order.StatusShipped, order.StatusDelivered} {
		_, err = s.lifecycle.Transition(ctx, order.ActorSeller, "seller-1", orderID, to)
		require.NoError(t, err)
	}

	final, err := s.orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, order.StatusDelivered, final.Status)
	require.NotNil(t, final.DeliveredAt)

	// Shipped and delivered orders no longer restock; cancel is illegal now.
	_, err = s.lifecycle.Cancel(ctx, order.ActorAdmin, "admin-1", orderID)
	var invalid *order.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestListAndStatistics(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s := newStack(t, ctx)

	kept := placeOrder(t, ctx, s, "buyer-1", "key-1")
	dropped := placeOrder(t, ctx, s, "buyer-2", "key-2")

	_, err := s.lifecycle.Cancel(ctx, order.ActorBuyer, "buyer-2", dropped.Order.ID)
	require.NoError(t, err)

	mine, err := s.orders.List(ctx, order.ListFilter{BuyerID: "buyer-1", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, mine.Total)
	require.Equal(t, 1, mine.Pages)
	require.Equal(t, kept.Order.ID, mine.Orders[0].ID)

	st := order.StatusCancelled
	cancelledOnly, err := s.orders.List(ctx, order.ListFilter{Status: &st, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, cancelledOnly.Total)

	stats, err := s.orders.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalOrders)
	// Cancelled revenue is excluded.
	require.Equal(t, kept.Order.TotalPriceCents, stats.TotalRevenueCents)
	require.Equal(t, 1, stats.StatusCounts[order.StatusNew])
	require.Equal(t, 1, stats.StatusCounts[order.StatusCancelled])
}

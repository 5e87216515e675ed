package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/andreasstove999/storefront-core/internal/cart"
	"github.com/andreasstove999/storefront-core/internal/catalog"
	"github.com/andreasstove999/storefront-core/internal/checkout"
	"github.com/andreasstove999/storefront-core/internal/inventory"
	"github.com/andreasstove999/storefront-core/internal/order"
)

// CartService is the slice of the cart service the handlers use.
type CartService interface {
	AddItem(ctx context.Context, buyerID, productID string, qty int) ([]cart.Line, error)
	SetQuantity(ctx context.Context, buyerID, productID string, qty int) ([]cart.Line, error)
	RemoveItem(ctx context.Context, buyerID, productID string) ([]cart.Line, error)
	Clear(ctx context.Context, buyerID string) error
	Snapshot(ctx context.Context, buyerID string) ([]cart.Line, error)
}

type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// OrderService drives status changes and payment confirmation.
type OrderService interface {
	Transition(ctx context.Context, actor order.Actor, actorID, orderID string, to order.Status) (*order.Order, error)
	Cancel(ctx context.Context, actor order.Actor, actorID, orderID string) (*order.Order, error)
	ConfirmPayment(ctx context.Context, orderID string) (*order.Order, error)
}

// OrderReader serves queries; it never mutates.
type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error)
	List(ctx context.Context, f order.ListFilter) (order.ListResult, error)
	Statistics(ctx context.Context) (order.Statistics, error)
}

type StockRepository interface {
	Get(ctx context.Context, productID string) (inventory.StockItem, error)
	SetStock(ctx context.Context, productID string, stock int) error
}

type Handler struct {
	carts     CartService
	checkouts CheckoutService
	orders    OrderService
	reader    OrderReader
	stock     StockRepository
	logger    *log.Logger
}

func NewHandler(carts CartService, checkouts CheckoutService, orders OrderService, reader OrderReader, stock StockRepository, logger *log.Logger) *Handler {
	return &Handler{
		carts:     carts,
		checkouts: checkouts,
		orders:    orders,
		reader:    reader,
		stock:     stock,
		logger:    logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "storefront-core",
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Unknown
// errors become a 500 with the detail kept in the log, not the response.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var verr *checkout.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
		return
	}

	var oos *inventory.OutOfStockError
	if errors.As(err, &oos) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "insufficient stock",
			"productId": oos.ProductID,
			"requested": oos.Requested,
			"available": oos.Available,
		})
		return
	}

	var invalid *order.InvalidTransitionError
	if errors.As(err, &invalid) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": invalid.Error(),
			"from":  invalid.From,
			"to":    invalid.To,
		})
		return
	}

	var gwErr *checkout.PaymentGatewayError
	if errors.As(err, &gwErr) {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   "payment gateway unavailable",
			"orderId": gwErr.OrderID,
		})
		return
	}

	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, cart.ErrQuantityRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrUnauthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

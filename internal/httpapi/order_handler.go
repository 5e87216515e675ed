package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/storefront-core/internal/checkout"
	"github.com/andreasstove999/storefront-core/internal/order"
	"github.com/andreasstove999/storefront-core/internal/payment"
)

type checkoutRequest struct {
	ShippingAddress  order.Address `json:"shippingAddress"`
	PaymentMethod    string        `json:"paymentMethod"`
	RequiresApproval bool          `json:"requiresApproval"`
	Notes            string        `json:"notes"`
}

// Checkout turns the caller's cart into an order. The Idempotency-Key
// header makes retries safe: a replay returns the original order with 200
// instead of 201.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var body checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	res, err := h.checkouts.Checkout(r.Context(), checkout.Request{
		BuyerID:          id.UserID,
		IdempotencyKey:   r.Header.Get("Idempotency-Key"),
		ShippingAddress:  body.ShippingAddress,
		PaymentMethod:    order.PaymentMethod(body.PaymentMethod),
		RequiresApproval: body.RequiresApproval,
		Notes:            body.Notes,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	o, err := h.reader.GetByID(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if id.Actor == order.ActorBuyer && o.BuyerID != id.UserID {
		writeError(w, http.StatusForbidden, "not allowed to view this order")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	o, err := h.reader.GetByOrderNumber(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if id.Actor == order.ActorBuyer && o.BuyerID != id.UserID {
		writeError(w, http.StatusForbidden, "not allowed to view this order")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	f, err := listFilterFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f.BuyerID = id.UserID

	res, err := h.reader.List(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListOrders is the staff view across all buyers.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	f, err := listFilterFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.reader.List(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) OrderStatistics(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	stats, err := h.reader.Statistics(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	o, err := h.orders.Cancel(r.Context(), id.Actor, id.UserID, chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var body updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	to, err := order.ParseStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.orders.Transition(r.Context(), id.Actor, id.UserID, chi.URLParam(r, "orderId"), to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// PaymentWebhook is called by the payment provider, not by users; the
// gateway routes it without identity headers.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var ev payment.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if ev.OrderID == "" {
		writeError(w, http.StatusBadRequest, "missing orderId")
		return
	}

	o, err := h.orders.ConfirmPayment(r.Context(), ev.OrderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func listFilterFrom(r *http.Request) (order.ListFilter, error) {
	f := order.ListFilter{Page: 1, Limit: 20}

	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid query parameter page")
		}
		f.Page = n
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid query parameter limit")
		}
		f.Limit = n
	}
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := order.ParseStatus(v)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	return f, nil
}

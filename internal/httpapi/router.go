package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.Health)

	r.Route("/api/cart", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/items", h.AddCartItem)
		r.Put("/items/{productId}", h.SetCartQuantity)
		r.Delete("/items/{productId}", h.RemoveCartItem)
		r.Delete("/", h.ClearCart)
	})

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.Checkout)
		r.Get("/", h.ListOrders)
		r.Get("/my-orders", h.MyOrders)
		r.Get("/statistics", h.OrderStatistics)
		r.Get("/id/{orderId}", h.GetOrder)
		r.Get("/order-id/{orderNumber}", h.GetOrderByNumber)
		r.Post("/{orderId}/cancel", h.CancelOrder)
		r.Patch("/{orderId}/status", h.UpdateOrderStatus)
	})

	r.Route("/api/inventory", func(r chi.Router) {
		r.Get("/{productId}", h.GetStock)
		r.Post("/adjust", h.AdjustStock)
	})

	r.Post("/api/payments/webhook", h.PaymentWebhook)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	item, err := h.stock.Get(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type adjustStockRequest struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.ProductID == "" || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}

	if err := h.stock.SetStock(r.Context(), req.ProductID, req.Stock); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

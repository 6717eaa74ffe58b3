package httpx

import (
	"errors"
	"net/http"

	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

// CartHandlers provides HTTP handlers for the signed-in user's cart.
// All routes sit behind RequireAuth, so the session is always present.
type CartHandlers struct {
	Svc *service.CartService
}

// Get returns the cart with live prices and a total.
// GET /api/cart.
func (h *CartHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	view, err := h.Svc.Get(r.Context(), session.UserID)
	if err != nil {
		writeServiceError(w, err, "cart_fetch_failed")
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// SetItem adds a product or replaces its quantity.
// PUT /api/cart/items.
func (h *CartHandlers) SetItem(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req model.AddCartItemRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	item, err := h.Svc.SetItem(r.Context(), session.UserID, &req)
	if err != nil {
		writeServiceError(w, err, "cart_update_failed")
		return
	}
	WriteJSON(w, http.StatusOK, item)
}

// RemoveItem removes one product from the cart.
// DELETE /api/cart/items/{productID}.
func (h *CartHandlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	productID := r.PathValue("productID")
	if productID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("product ID is required"),
		})
		return
	}

	if err := h.Svc.RemoveItem(r.Context(), session.UserID, productID); err != nil {
		writeServiceError(w, err, "cart_update_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear empties the cart.
// DELETE /api/cart.
func (h *CartHandlers) Clear(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if err := h.Svc.Clear(r.Context(), session.UserID); err != nil {
		writeServiceError(w, err, "cart_update_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

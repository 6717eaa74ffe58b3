package httpx

import (
	"errors"
	"net/http"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

const (
	defaultOrderLimit = 20
	maxOrderLimit     = 100
)

// OrderHandlers provides HTTP handlers for checkout and order history.
type OrderHandlers struct {
	Svc *service.OrderService
}

// Checkout places an order from the user's cart.
// POST /api/orders/checkout.
func (h *OrderHandlers) Checkout(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req model.CheckoutRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	view, err := h.Svc.Checkout(r.Context(), session.UserID, &req)
	if err != nil {
		writeServiceError(w, err, "checkout_failed")
		return
	}
	WriteJSON(w, http.StatusCreated, view)
}

// List returns the caller's own orders, or all orders for staff with
// an explicit user_id/status filter.
// GET /api/orders?status=&limit=&offset=.
func (h *OrderHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	limit, offset := ParseLimitOffset(r, defaultOrderLimit, maxOrderLimit)

	opts := model.OrdersListOptions{
		Limit:  limit,
		Offset: offset,
		Sort:   r.URL.Query().Get("sort"),
		Dir:    r.URL.Query().Get("dir"),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, ok := model.ParseOrderStatus(v)
		if !ok {
			WriteError(w, ErrorParams{
				Code:    http.StatusBadRequest,
				ErrCode: "invalid_request",
				Err:     errors.New("unknown order status"),
			})
			return
		}
		opts.Status = &status
	}

	if staffSession(session) {
		opts.UserID = stringQuery(r, "user_id")
	} else {
		opts.UserID = &session.UserID
	}

	orders, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"orders": orders, "limit": limit, "offset": offset})
}

// Get returns one order with items. Customers only see their own.
// GET /api/orders/{id}.
func (h *OrderHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	requesterID := session.UserID
	if staffSession(session) {
		requesterID = ""
	}

	view, err := h.Svc.Get(r.Context(), r.PathValue("id"), requesterID)
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// Cancel cancels the caller's own order while still cancellable.
// POST /api/orders/{id}/cancel.
func (h *OrderHandlers) Cancel(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	order, err := h.Svc.Cancel(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		writeServiceError(w, err, "cancel_failed")
		return
	}
	WriteJSON(w, http.StatusOK, order)
}

type setOrderStatusRequest struct {
	Status string `json:"status"`
}

// SetStatus transitions an order through its lifecycle (back-office).
// POST /api/orders/{id}/status.
func (h *OrderHandlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req setOrderStatusRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	status, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_request",
			Err:     errors.New("unknown order status"),
		})
		return
	}

	order, err := h.Svc.SetStatus(r.Context(), r.PathValue("id"), status)
	if err != nil {
		writeServiceError(w, err, "status_update_failed")
		return
	}
	WriteJSON(w, http.StatusOK, order)
}

func staffSession(session *domainauth.Session) bool {
	return session != nil && (session.Role == domainauth.RoleStaff || session.Role == domainauth.RoleAdmin)
}

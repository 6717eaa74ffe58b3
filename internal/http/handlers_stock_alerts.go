package httpx

import (
	"errors"
	"net/http"

	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

const defaultAlertLimit = 50

// StockAlertHandlers provides back-office HTTP handlers for inventory
// alert rules and triggered alerts.
type StockAlertHandlers struct {
	Svc *service.StockAlertService
}

// CreateRule stores a new alert rule after validating its expression.
// POST /api/admin/stock-alerts/rules.
func (h *StockAlertHandlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req model.CreateStockAlertRuleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	rule, err := h.Svc.CreateRule(r.Context(), &req)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "create_failed", Err: err})
		return
	}
	WriteJSON(w, http.StatusCreated, rule)
}

// ListRules returns all rules.
// GET /api/admin/stock-alerts/rules.
func (h *StockAlertHandlers) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Svc.ListRules(r.Context())
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"rules": rules})
}

// DeleteRule removes a rule.
// DELETE /api/admin/stock-alerts/rules/{id}.
func (h *StockAlertHandlers) DeleteRule(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Svc.DeleteRule(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "delete_failed")
		return
	}
	if !deleted {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("stock alert rule not found"),
		})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOpenAlerts returns unresolved alerts.
// GET /api/admin/stock-alerts.
func (h *StockAlertHandlers) ListOpenAlerts(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultAlertLimit, maxUserLimit)
	alerts, err := h.Svc.ListOpenAlerts(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

// ResolveAlert closes an alert once stock has been replenished.
// POST /api/admin/stock-alerts/{id}/resolve.
func (h *StockAlertHandlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.Svc.ResolveAlert(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "resolve_failed")
		return
	}
	if !resolved {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("open alert not found"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

// Scan triggers an on-demand rule evaluation across the catalog.
// POST /api/admin/stock-alerts/scan.
func (h *StockAlertHandlers) Scan(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Scan(r.Context()); err != nil {
		writeServiceError(w, err, "scan_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "scanned"})
}

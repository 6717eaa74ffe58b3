package httpx

import (
	"errors"
	"net/http"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

const (
	defaultUserLimit = 50
	maxUserLimit     = 200
)

// UserAdminHandlers provides back-office HTTP handlers for profiles:
// listing, role changes, suspension.
type UserAdminHandlers struct {
	Svc *service.UserAdminService
}

// List returns profiles per query filters.
// GET /api/admin/users?q=&role=&suspended=&sort=&dir=&limit=&offset=.
func (h *UserAdminHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultUserLimit, maxUserLimit)
	opts := model.ProfilesListOptions{
		Limit:     limit,
		Offset:    offset,
		Q:         stringQuery(r, "q"),
		Suspended: boolQuery(r, "suspended"),
		Sort:      r.URL.Query().Get("sort"),
		Dir:       r.URL.Query().Get("dir"),
	}
	if v := r.URL.Query().Get("role"); v != "" {
		role := domainauth.ParseRole(v)
		opts.Role = &role
	}

	profiles, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err, "list_failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": profiles, "limit": limit, "offset": offset})
}

// Get returns one profile.
// GET /api/admin/users/{id}.
func (h *UserAdminHandlers) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "get_failed")
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

// Update applies role or suspension changes to a profile.
// PUT /api/admin/users/{id}.
func (h *UserAdminHandlers) Update(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	id := r.PathValue("id")

	var req model.UpdateProfileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	// Admins cannot demote or suspend themselves; another admin must do it.
	if session != nil && session.UserID == id && (req.Role != nil || req.Suspended != nil) {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "self_modification",
			Err:     errors.New("cannot change own role or suspension"),
		})
		return
	}

	profile, err := h.Svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "update_failed")
		return
	}
	WriteJSON(w, http.StatusOK, profile)
}

package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

// AuthHandlers provides HTTP handlers for password authentication.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles password sign-in.
// POST /api/auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var ce *ports.CredentialError
		if errors.As(err, &ce) {
			writeCredentialError(w, ce)
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
		return
	}

	h.setSessionCookie(w, r, result.Session)
	WriteJSON(w, http.StatusOK, sessionPayload(&result.Session))
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
}

// Register handles customer sign-up.
// POST /api/auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := h.Svc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
	})
	if err != nil {
		var ce *ports.CredentialError
		if errors.As(err, &ce) {
			writeCredentialError(w, ce)
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "registration_failed", Err: err})
		return
	}

	if result.Session == nil {
		// Identity requires email confirmation before issuing a session.
		WriteJSON(w, http.StatusAccepted, map[string]any{
			"registered":            true,
			"confirmation_required": true,
		})
		return
	}

	h.setSessionCookie(w, r, *result.Session)
	WriteJSON(w, http.StatusCreated, sessionPayload(result.Session))
}

// Logout handles sign-out.
// POST /api/auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := ""
	if sessionCookie, err := r.Cookie("session_id"); err == nil {
		sessionID = sessionCookie.Value
	}

	// Local state is cleared whatever the identity service says.
	h.Svc.Logout(r.Context(), sessionID)
	h.clearCookie(w, r, "session_id")

	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Status returns the current authentication status.
// GET /api/auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sessionCookie, err := r.Cookie("session_id")
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	session, err := h.Svc.GetSession(r.Context(), sessionCookie.Value)
	if err != nil {
		// Session is invalid or expired, clear the cookie.
		h.clearCookie(w, r, "session_id")
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	snap := h.Svc.Snapshot()
	payload := map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":    session.UserID,
			"email": session.Email,
			"role":  session.Role,
		},
		"expires_at":        session.ExpiresAt,
		"profile_attempted": snap.ProfileAttempted,
	}
	if snap.Profile != nil && snap.Profile.ID == session.UserID {
		payload["profile"] = snap.Profile
	}
	WriteJSON(w, http.StatusOK, payload)
}

// UpdateProfile amends the signed-in user's own profile.
// PUT /api/auth/profile.
func (h *AuthHandlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())
	if session == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	var req model.UpdateProfileRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: err})
		return
	}

	profile, err := h.Svc.UpdateProfile(r.Context(), session.UserID, req)
	if err != nil {
		writeServiceError(w, err, "profile_update_failed")
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

func sessionPayload(session *domainauth.Session) map[string]any {
	return map[string]any{
		"user": map[string]any{
			"id":    session.UserID,
			"email": session.Email,
			"role":  session.Role,
		},
		"expires_at": session.ExpiresAt,
	}
}

func (h *AuthHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, session domainauth.Session) {
	writeSessionCookie(w, r, h.CookieDomain, session)
}

func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	expireCookie(w, r, h.CookieDomain, name)
}

package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

// SSOHandlers provides HTTP handlers for the back-office SSO flow.
type SSOHandlers struct {
	Svc          *service.SSOService
	CookieDomain string
	// RedirectURL is the absolute callback URL registered with the IdP.
	RedirectURL string
	Logger      *slog.Logger
}

func (h *SSOHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login initiates the SSO flow.
// GET /auth/sso/login?redirect_uri=<optional_redirect>.
func (h *SSOHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	result, err := h.Svc.Begin(r.Context(), h.RedirectURL)
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: "sso_begin_failed",
			Err:     err,
		})
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{State: result.State, Nonce: result.Nonce, RedirectURI: redirectURI})
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the SSO flow.
// GET /auth/sso/callback?code=<code>&state=<state>.
func (h *SSOHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_code",
			Err:     errors.New("authorization code is required"),
		})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_state",
			Err:     errors.New("state parameter is required"),
		})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_state",
			Err:     errors.New("invalid or missing state parameter"),
		})
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "missing_nonce",
			Err:     errors.New("missing nonce parameter"),
		})
		return
	}

	result, err := h.Svc.Complete(r.Context(), service.CompleteSSOInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "sso completion failed", "err", err)
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "sso_completion_failed",
			Err:     err,
		})
		return
	}

	h.setSessionCookie(w, r, result.Session)
	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")

	redirectURI := "/"
	if c, cookieErr := r.Cookie("post_login_redirect"); cookieErr == nil {
		redirectURI = safeRedirectPath(c.Value)
	}
	h.clearCookie(w, r, "post_login_redirect")
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// Logout removes the back-office session.
// POST /auth/sso/logout.
func (h *SSOHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionCookie, err := r.Cookie("session_id"); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), sessionCookie.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "sso logout failed", "err", logoutErr)
		}
	}
	h.clearCookie(w, r, "session_id")
	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// oauthCookieParams groups values for the transient OAuth cookies.
type oauthCookieParams struct {
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores OAuth state, nonce, and the post-login redirect in secure cookies.
func (h *SSOHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	isSecure := requestIsSecure(r)

	const oauthCookieMaxAge = 600
	for name, value := range map[string]string{
		"oauth_state":         p.State,
		"oauth_nonce":         p.Nonce,
		"post_login_redirect": p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   h.CookieDomain,
			HttpOnly: true,
			Secure:   isSecure,
			MaxAge:   oauthCookieMaxAge,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func (h *SSOHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, session domainauth.Session) {
	writeSessionCookie(w, r, h.CookieDomain, session)
}

func (h *SSOHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	expireCookie(w, r, h.CookieDomain, name)
}

// safeRedirectPath allows only relative paths (no scheme/host) starting with "/".
func safeRedirectPath(p string) string {
	if p == "" {
		return "/"
	}
	u, err := url.Parse(p)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return p
}

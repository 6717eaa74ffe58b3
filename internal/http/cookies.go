package httpx

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
)

// requestIsSecure reports whether the request arrived over TLS,
// directly or behind a terminating proxy.
func requestIsSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// writeSessionCookie writes the session cookie with attributes matching
// how it will later be cleared.
func writeSessionCookie(w http.ResponseWriter, r *http.Request, domain string, session domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    session.ID,
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		Expires:  session.ExpiresAt,
		SameSite: http.SameSiteLaxMode,
	})
}

// expireCookie clears a cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when
// setting cookies to maximize compatibility across browsers during deletion.
func expireCookie(w http.ResponseWriter, r *http.Request, domain, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

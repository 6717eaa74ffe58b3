package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

// AuthServiceInterface defines the auth facade operations the HTTP layer needs.
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	Logout(ctx context.Context, sessionID string)
	UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.Profile, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Snapshot() service.AuthSnapshot
}

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the underlying writer so SSE streaming works
// through the logging wrapper.
func (w *respWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns a middleware that requires authentication.
// If the user is not authenticated, it returns a 401 Unauthorized response.
func RequireAuth(authSvc AuthServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := getSessionFromRequest(r, authSvc)
			if session == nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}

			ctx := SetSessionInContext(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole returns a middleware that requires at least the given role.
// An authenticated user whose profile has not been resolved yet is not
// rejected outright; the profile row is the role's source of truth and
// it may still be on its way, so the request gets a 503 with Retry-After
// instead of a 403.
func RequireRole(authSvc AuthServiceInterface, requiredRole domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := getSessionFromRequest(r, authSvc)
			if session == nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			}

			if !roleAtLeast(session.Role, requiredRole) {
				if profilePending(authSvc, session) {
					w.Header().Set("Retry-After", "1")
					WriteError(w, ErrorParams{
						Code:    http.StatusServiceUnavailable,
						ErrCode: "profile_pending",
						Err:     errors.New("profile resolution in progress, retry shortly"),
					})
					return
				}
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("insufficient permissions"),
				})
				return
			}

			ctx := SetSessionInContext(r.Context(), session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth returns a middleware that optionally adds authentication information.
// If the user is authenticated, the session is added to the request context.
// If not authenticated, the request continues without session information.
func OptionalAuth(authSvc AuthServiceInterface) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := getSessionFromRequest(r, authSvc)
			if session != nil {
				ctx := SetSessionInContext(r.Context(), session)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// getSessionFromRequest retrieves and validates a session from the request.
func getSessionFromRequest(r *http.Request, authSvc AuthServiceInterface) *domainauth.Session {
	sessionCookie, err := r.Cookie("session_id")
	if err != nil {
		return nil
	}

	session, err := authSvc.GetSession(r.Context(), sessionCookie.Value)
	if err != nil {
		return nil
	}

	return session
}

// profilePending reports whether the session's user is signed in but
// the profile lookup has not finished its first attempt.
func profilePending(authSvc AuthServiceInterface, session *domainauth.Session) bool {
	snap := authSvc.Snapshot()
	if snap.Identity == nil || snap.Identity.UserID != session.UserID {
		return false
	}
	return !snap.ProfileAttempted
}

// roleAtLeast checks if the user's role meets the required role.
// Role hierarchy: Customer < Staff < Admin.
func roleAtLeast(userRole, requiredRole domainauth.Role) bool {
	roleHierarchy := map[domainauth.Role]int{
		domainauth.RoleCustomer: 0,
		domainauth.RoleStaff:    1,
		domainauth.RoleAdmin:    2,
	}

	userLevel, userExists := roleHierarchy[userRole]
	requiredLevel, requiredExists := roleHierarchy[requiredRole]

	if !userExists || !requiredExists {
		return false
	}

	return userLevel >= requiredLevel
}

package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

// stubAuthService scripts the AuthServiceInterface for handler and
// middleware tests.
type stubAuthService struct {
	LoginFunc         func(ctx context.Context, email, password string) (*service.LoginResult, error)
	RegisterFunc      func(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	LogoutFunc        func(ctx context.Context, sessionID string)
	UpdateProfileFunc func(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.Profile, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*domainauth.Session, error)
	SnapshotFunc      func() service.AuthSnapshot
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	if s.LoginFunc != nil {
		return s.LoginFunc(ctx, email, password)
	}
	return nil, errors.New("login not scripted")
}

func (s *stubAuthService) Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
	if s.RegisterFunc != nil {
		return s.RegisterFunc(ctx, in)
	}
	return nil, errors.New("register not scripted")
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) {
	if s.LogoutFunc != nil {
		s.LogoutFunc(ctx, sessionID)
	}
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.Profile, error) {
	if s.UpdateProfileFunc != nil {
		return s.UpdateProfileFunc(ctx, userID, req)
	}
	return nil, errors.New("update profile not scripted")
}

func (s *stubAuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if s.GetSessionFunc != nil {
		return s.GetSessionFunc(ctx, sessionID)
	}
	return nil, errors.New("no session")
}

func (s *stubAuthService) Snapshot() service.AuthSnapshot {
	if s.SnapshotFunc != nil {
		return s.SnapshotFunc()
	}
	return service.AuthSnapshot{}
}

// sessionBackedAuth returns a stub whose GetSession recognises exactly
// one session.
func sessionBackedAuth(session *domainauth.Session) *stubAuthService {
	return &stubAuthService{
		GetSessionFunc: func(_ context.Context, id string) (*domainauth.Session, error) {
			if session != nil && id == session.ID {
				return session, nil
			}
			return nil, errors.New("no session")
		},
	}
}

func withSessionCookie(req *http.Request, sessionID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	return req
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func customerSession() *domainauth.Session {
	return &domainauth.Session{
		ID:        "sess-1",
		UserID:    "u1",
		Email:     "c@example.com",
		Role:      domainauth.RoleCustomer,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestRequireAuthWithoutCookie(t *testing.T) {
	handler := RequireAuth(sessionBackedAuth(nil))(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthWithUnknownSession(t *testing.T) {
	handler := RequireAuth(sessionBackedAuth(customerSession()))(okHandler())

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/cart", nil), "bogus")
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthPutsSessionInContext(t *testing.T) {
	session := customerSession()
	var seen *domainauth.Session
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(sessionBackedAuth(session))(inner)

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/cart", nil), session.ID)
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "u1", seen.UserID)
}

func TestRequireRoleForbidsLowerRole(t *testing.T) {
	session := customerSession()
	auth := sessionBackedAuth(session)
	// The profile was resolved; this customer is just not staff.
	auth.SnapshotFunc = func() service.AuthSnapshot {
		return service.AuthSnapshot{
			Identity:         &domainauth.Identity{UserID: session.UserID},
			ProfileAttempted: true,
		}
	}
	handler := RequireRole(auth, domainauth.RoleStaff)(okHandler())

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil), session.ID)
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRolePendingProfileGets503(t *testing.T) {
	session := customerSession()
	auth := sessionBackedAuth(session)
	// Signed in, but the reconciler has not finished its first attempt.
	auth.SnapshotFunc = func() service.AuthSnapshot {
		return service.AuthSnapshot{
			Identity: &domainauth.Identity{UserID: session.UserID},
		}
	}
	handler := RequireRole(auth, domainauth.RoleStaff)(okHandler())

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil), session.ID)
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRequireRoleOtherUsersPendingProfileDoesNotApply(t *testing.T) {
	session := customerSession()
	auth := sessionBackedAuth(session)
	// The pending snapshot belongs to someone else entirely.
	auth.SnapshotFunc = func() service.AuthSnapshot {
		return service.AuthSnapshot{
			Identity: &domainauth.Identity{UserID: "other-user"},
		}
	}
	handler := RequireRole(auth, domainauth.RoleStaff)(okHandler())

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil), session.ID)
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleAdminPassesStaffCheck(t *testing.T) {
	session := customerSession()
	session.Role = domainauth.RoleAdmin
	handler := RequireRole(sessionBackedAuth(session), domainauth.RoleStaff)(okHandler())

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil), session.ID)
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRoleAtLeast(t *testing.T) {
	cases := []struct {
		user, required domainauth.Role
		want           bool
	}{
		{domainauth.RoleCustomer, domainauth.RoleCustomer, true},
		{domainauth.RoleCustomer, domainauth.RoleStaff, false},
		{domainauth.RoleCustomer, domainauth.RoleAdmin, false},
		{domainauth.RoleStaff, domainauth.RoleCustomer, true},
		{domainauth.RoleStaff, domainauth.RoleStaff, true},
		{domainauth.RoleStaff, domainauth.RoleAdmin, false},
		{domainauth.RoleAdmin, domainauth.RoleAdmin, true},
		{domainauth.Role("unknown"), domainauth.RoleCustomer, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, roleAtLeast(tc.user, tc.required),
			"%s >= %s", tc.user, tc.required)
	}
}

func TestOptionalAuthWithoutSession(t *testing.T) {
	var seen *domainauth.Session
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := OptionalAuth(sessionBackedAuth(nil))(inner)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, seen)
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	handler := Recover(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

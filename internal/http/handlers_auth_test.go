package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsSessionCookie(t *testing.T) {
	auth := &stubAuthService{
		LoginFunc: func(_ context.Context, email, password string) (*service.LoginResult, error) {
			require.Equal(t, "c@example.com", email)
			require.Equal(t, "secret", password)
			return &service.LoginResult{Session: domainauth.Session{
				ID:        "sess-1",
				UserID:    "u1",
				Email:     email,
				Role:      domainauth.RoleCustomer,
				ExpiresAt: time.Now().Add(time.Hour),
			}}, nil
		},
	}
	h := &AuthHandlers{Svc: auth, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"c@example.com","password":"secret"}`))
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookie := findCookie(rec, "session_id")
	require.NotNil(t, cookie)
	require.Equal(t, "sess-1", cookie.Value)
	require.True(t, cookie.HttpOnly)

	body := decodeBody(t, rec)
	user := body["user"].(map[string]any)
	require.Equal(t, "u1", user["id"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	auth := &stubAuthService{
		LoginFunc: func(context.Context, string, string) (*service.LoginResult, error) {
			return nil, &ports.CredentialError{Kind: ports.CredentialInvalid, Message: "bad credentials"}
		},
	}
	h := &AuthHandlers{Svc: auth, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"c@example.com","password":"wrong"}`))
	h.Login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid_credentials", decodeBody(t, rec)["error"])
	require.Nil(t, findCookie(rec, "session_id"))
}

func TestLoginSuspendedAccount(t *testing.T) {
	auth := &stubAuthService{
		LoginFunc: func(context.Context, string, string) (*service.LoginResult, error) {
			return nil, &ports.CredentialError{Kind: ports.CredentialSuspended, Message: "suspended"}
		},
	}
	h := &AuthHandlers{Svc: auth, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"c@example.com","password":"secret"}`))
	h.Login(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "account_suspended", decodeBody(t, rec)["error"])
}

func TestLoginRejectsMalformedJSON(t *testing.T) {
	h := &AuthHandlers{Svc: &stubAuthService{}, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":`))
	h.Login(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_json", decodeBody(t, rec)["error"])
}

func TestRegisterIssuesSession(t *testing.T) {
	auth := &stubAuthService{
		RegisterFunc: func(_ context.Context, in service.RegisterInput) (*service.RegisterResult, error) {
			return &service.RegisterResult{Session: &domainauth.Session{
				ID:        "sess-2",
				UserID:    "u2",
				Email:     in.Email,
				Role:      domainauth.RoleCustomer,
				ExpiresAt: time.Now().Add(time.Hour),
			}}, nil
		},
	}
	h := &AuthHandlers{Svc: auth, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"n@example.com","password":"secret","display_name":"New"}`))
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, findCookie(rec, "session_id"))
}

func TestRegisterConfirmationFlow(t *testing.T) {
	auth := &stubAuthService{
		RegisterFunc: func(context.Context, service.RegisterInput) (*service.RegisterResult, error) {
			return &service.RegisterResult{}, nil
		},
	}
	h := &AuthHandlers{Svc: auth, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"n@example.com","password":"secret"}`))
	h.Register(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["confirmation_required"])
	require.Nil(t, findCookie(rec, "session_id"))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth := &stubAuthService{
		RegisterFunc: func(context.Context, service.RegisterInput) (*service.RegisterResult, error) {
			return nil, &ports.CredentialError{Kind: ports.CredentialExists, Message: "already registered"}
		},
	}
	h := &AuthHandlers{Svc: auth, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"n@example.com","password":"secret"}`))
	h.Register(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "already_registered", decodeBody(t, rec)["error"])
}

func TestLogoutClearsCookie(t *testing.T) {
	var loggedOut string
	auth := &stubAuthService{
		LogoutFunc: func(_ context.Context, sessionID string) {
			loggedOut = sessionID
		},
	}
	h := &AuthHandlers{Svc: auth, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), "sess-1")
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "sess-1", loggedOut)

	cookie := findCookie(rec, "session_id")
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
	require.Negative(t, cookie.MaxAge)
}

func TestStatusUnauthenticatedWithoutCookie(t *testing.T) {
	h := &AuthHandlers{Svc: &stubAuthService{}, Logger: testLogger()}

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decodeBody(t, rec)["authenticated"])
}

func TestStatusExpiredSessionClearsCookie(t *testing.T) {
	h := &AuthHandlers{Svc: sessionBackedAuth(nil), Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/auth/status", nil), "stale")
	h.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, decodeBody(t, rec)["authenticated"])

	cookie := findCookie(rec, "session_id")
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
}

func TestStatusIncludesProfileWhenResolved(t *testing.T) {
	session := customerSession()
	auth := sessionBackedAuth(session)
	auth.SnapshotFunc = func() service.AuthSnapshot {
		display := "Cee"
		return service.AuthSnapshot{
			Identity: &domainauth.Identity{UserID: session.UserID},
			Profile: &model.Profile{
				ID:          session.UserID,
				Email:       session.Email,
				DisplayName: &display,
				Role:        domainauth.RoleCustomer,
			},
			ProfileAttempted: true,
		}
	}
	h := &AuthHandlers{Svc: auth, Logger: testLogger()}

	rec := httptest.NewRecorder()
	req := withSessionCookie(httptest.NewRequest(http.MethodGet, "/api/auth/status", nil), session.ID)
	h.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["authenticated"])
	require.Equal(t, true, body["profile_attempted"])
	profile := body["profile"].(map[string]any)
	require.Equal(t, session.UserID, profile["id"])
}

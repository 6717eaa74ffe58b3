package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

func newTestProvider(t *testing.T, handler http.Handler) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewProvider(Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		HTTPClient: server.Client(),
	})
	require.NoError(t, err)
	return p
}

func writeToken(w http.ResponseWriter, userID, email string, expiresIn int64) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "tok-1",
		"expires_in":   expiresIn,
		"user": map[string]any{
			"id":    userID,
			"email": email,
		},
	})
}

func TestNewProviderRequiresBaseURL(t *testing.T) {
	_, err := NewProvider(Config{})
	require.Error(t, err)
}

func TestSignInSuccess(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/token", r.URL.Path)
		require.Equal(t, "password", r.URL.Query().Get("grant_type"))
		require.Equal(t, "test-key", r.Header.Get("apikey"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "c@example.com", body["email"])

		writeToken(w, "u1", "c@example.com", 3600)
	}))

	events := make(chan domainauth.Event, 1)
	cancel := p.Subscribe(events)
	defer cancel()

	ident, err := p.SignIn(context.Background(), ports.SignInInput{
		Email:    "c@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	require.Equal(t, "u1", ident.UserID)
	require.False(t, ident.ExpiresAt.IsZero())

	ev := <-events
	require.Equal(t, domainauth.EventSignedIn, ev.Kind)

	current, err := p.CurrentSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Equal(t, "u1", current.UserID)
}

func TestSignInInvalidCredentials(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error_code": "invalid_credentials",
			"msg":        "Invalid login credentials",
		})
	}))

	_, err := p.SignIn(context.Background(), ports.SignInInput{Email: "c@example.com", Password: "bad"})
	var ce *ports.CredentialError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ports.CredentialInvalid, ce.Kind)
}

func TestSignUpConfirmationFlow(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/signup", r.URL.Path)
		// No token yet; the service wants email confirmation first.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": "u2", "email": "n@example.com"},
		})
	}))

	ident, err := p.SignUp(context.Background(), ports.SignUpInput{
		Email:    "n@example.com",
		Password: "secret",
	})
	require.NoError(t, err)
	require.Equal(t, "u2", ident.UserID)
	require.True(t, ident.ExpiresAt.IsZero())

	current, err := p.CurrentSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, current, "no session until the address is confirmed")
}

func TestSignUpExistingUser(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error_code": "user_already_exists",
			"msg":        "User already registered",
		})
	}))

	_, err := p.SignUp(context.Background(), ports.SignUpInput{Email: "n@example.com", Password: "x"})
	var ce *ports.CredentialError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ports.CredentialExists, ce.Kind)
}

func TestSignInUnconfirmedEmail(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error_code": "email_not_confirmed",
			"msg":        "Email not confirmed",
		})
	}))

	_, err := p.SignIn(context.Background(), ports.SignInInput{Email: "n@example.com", Password: "x"})
	var ce *ports.CredentialError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ports.CredentialUnconfirmed, ce.Kind)
}

func TestSignInBannedUser(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error_code": "user_banned",
			"msg":        "User is banned",
		})
	}))

	_, err := p.SignIn(context.Background(), ports.SignInInput{Email: "b@example.com", Password: "x"})
	var ce *ports.CredentialError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ports.CredentialSuspended, ce.Kind)
}

func TestSignOutRevokesTokenAndEmitsEvent(t *testing.T) {
	var sawLogout bool
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			writeToken(w, "u1", "c@example.com", 3600)
		case "/logout":
			sawLogout = true
			require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	_, err := p.SignIn(context.Background(), ports.SignInInput{Email: "c@example.com", Password: "secret"})
	require.NoError(t, err)

	events := make(chan domainauth.Event, 1)
	cancel := p.Subscribe(events)
	defer cancel()

	require.NoError(t, p.SignOut(context.Background()))
	require.True(t, sawLogout)
	require.Equal(t, domainauth.EventSignedOut, (<-events).Kind)

	current, err := p.CurrentSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, current)
}

func TestUpdateMetadataWithoutSession(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	_, err := p.UpdateMetadata(context.Background(), domainauth.Metadata{FullName: "X"})
	require.Error(t, err)
}

func TestUpdateMetadataRoundTrip(t *testing.T) {
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			writeToken(w, "u1", "c@example.com", 3600)
		case "/user":
			require.Equal(t, http.MethodPut, r.Method)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":            "u1",
				"email":         "c@example.com",
				"user_metadata": map[string]any{"full_name": "Renamed"},
			})
		}
	}))

	_, err := p.SignIn(context.Background(), ports.SignInInput{Email: "c@example.com", Password: "secret"})
	require.NoError(t, err)

	ident, err := p.UpdateMetadata(context.Background(), domainauth.Metadata{FullName: "Renamed"})
	require.NoError(t, err)
	require.Equal(t, "Renamed", ident.Metadata.FullName)
}

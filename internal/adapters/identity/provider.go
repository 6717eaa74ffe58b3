package identity

// Package identity adapts the hosted identity service's REST API to
// ports.IdentityProvider. The service owns credentials and token
// lifecycle; this client keeps the current token in memory and
// broadcasts session events as calls succeed.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

const defaultRequestTimeout = 10 * time.Second

// Config controls the hosted identity client.
type Config struct {
	// BaseURL is the identity service root, e.g. https://id.example.com/auth/v1.
	BaseURL string
	// APIKey is sent on every request; the service rejects calls without it.
	APIKey string
	// HTTPClient overrides the default client (useful for tests).
	HTTPClient *http.Client
}

// Provider is an HTTP client for the hosted identity service.
type Provider struct {
	domainauth.Broadcaster

	baseURL string
	apiKey  string
	client  *http.Client

	mu       sync.Mutex // guards token and identity
	token    string
	identity *domainauth.Identity
}

// NewProvider constructs a hosted identity client from Config.
func NewProvider(cfg Config) (*Provider, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("identity: BaseURL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("identity: invalid BaseURL: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &Provider{
		baseURL: base,
		apiKey:  cfg.APIKey,
		client:  client,
	}, nil
}

// userPayload is the identity service's user representation.
type userPayload struct {
	ID       string              `json:"id"`
	Email    string              `json:"email"`
	Metadata domainauth.Metadata `json:"user_metadata"`
}

// tokenPayload is the response of the password grant.
type tokenPayload struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        userPayload `json:"user"`
}

// errorPayload is the identity service's error envelope.
type errorPayload struct {
	Code    string `json:"error_code"`
	Error   string `json:"error"`
	Message string `json:"msg"`
}

func (e errorPayload) text() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Error != "" {
		return e.Error
	}
	return e.Code
}

// SignUp registers a new identity. The metadata bag rides along so the
// reconciler can bootstrap a profile from it later.
func (p *Provider) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.Identity, error) {
	body := map[string]any{
		"email":    strings.TrimSpace(in.Email),
		"password": in.Password,
		"data":     in.Metadata,
	}

	var tok tokenPayload
	if err := p.post(ctx, "/signup", body, &tok); err != nil {
		return domainauth.Identity{}, err
	}

	ident := p.identityFromToken(tok)
	if tok.AccessToken != "" {
		p.storeSession(tok.AccessToken, ident)
		p.Publish(domainauth.Event{Kind: domainauth.EventSignedIn, Identity: &ident})
	}
	return ident, nil
}

// SignIn exchanges credentials for a token and emits a signed-in event.
func (p *Provider) SignIn(ctx context.Context, in ports.SignInInput) (domainauth.Identity, error) {
	body := map[string]any{
		"email":    strings.TrimSpace(in.Email),
		"password": in.Password,
	}

	var tok tokenPayload
	if err := p.post(ctx, "/token?grant_type=password", body, &tok); err != nil {
		return domainauth.Identity{}, err
	}
	if tok.AccessToken == "" {
		return domainauth.Identity{}, &ports.CredentialError{
			Kind:    ports.CredentialOther,
			Message: "identity service returned no access token",
		}
	}

	ident := p.identityFromToken(tok)
	p.storeSession(tok.AccessToken, ident)
	p.Publish(domainauth.Event{Kind: domainauth.EventSignedIn, Identity: &ident})
	return ident, nil
}

// SignOut revokes the current token. Local state is dropped and the
// signed-out event emitted even when the remote call fails; the caller
// must end up logged out either way.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.token = ""
	p.identity = nil
	p.mu.Unlock()

	var remoteErr error
	if token != "" {
		remoteErr = p.do(ctx, http.MethodPost, "/logout", token, nil, nil)
	}

	p.Publish(domainauth.Event{Kind: domainauth.EventSignedOut})
	return remoteErr
}

// CurrentSession returns the active identity, if any. A stored but
// expired token counts as no session.
func (p *Provider) CurrentSession(_ context.Context) (*domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.identity == nil {
		return nil, nil
	}
	if !p.identity.ExpiresAt.IsZero() && time.Now().After(p.identity.ExpiresAt) {
		p.token = ""
		p.identity = nil
		return nil, nil
	}
	ident := *p.identity
	return &ident, nil
}

// UpdateMetadata amends the identity's metadata bag and emits a
// user-updated event.
func (p *Provider) UpdateMetadata(ctx context.Context, md domainauth.Metadata) (domainauth.Identity, error) {
	p.mu.Lock()
	token := p.token
	current := p.identity
	p.mu.Unlock()

	if token == "" || current == nil {
		return domainauth.Identity{}, &ports.CredentialError{
			Kind:    ports.CredentialOther,
			Message: "no active session",
		}
	}

	var user userPayload
	if err := p.do(ctx, http.MethodPut, "/user", token, map[string]any{"data": md}, &user); err != nil {
		return domainauth.Identity{}, err
	}

	ident := domainauth.Identity{
		UserID:    user.ID,
		Email:     user.Email,
		Metadata:  user.Metadata,
		ExpiresAt: current.ExpiresAt,
	}
	p.storeSession(token, ident)
	p.Publish(domainauth.Event{Kind: domainauth.EventUserUpdated, Identity: &ident})
	return ident, nil
}

func (p *Provider) identityFromToken(tok tokenPayload) domainauth.Identity {
	expires := time.Time{}
	if tok.ExpiresIn > 0 {
		expires = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return domainauth.Identity{
		UserID:    tok.User.ID,
		Email:     tok.User.Email,
		Metadata:  tok.User.Metadata,
		ExpiresAt: expires,
	}
}

func (p *Provider) storeSession(token string, ident domainauth.Identity) {
	p.mu.Lock()
	p.token = token
	p.identity = &ident
	p.mu.Unlock()
}

func (p *Provider) post(ctx context.Context, path string, body, out any) error {
	return p.do(ctx, http.MethodPost, path, "", body, out)
}

func (p *Provider) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			_ = cerr
		}
	}()

	if resp.StatusCode >= 400 {
		return p.mapErrorResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapErrorResponse classifies service errors into CredentialError kinds
// so handlers can render them inline instead of as server faults.
func (p *Provider) mapErrorResponse(resp *http.Response) error {
	var payload errorPayload
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(data, &payload)

	msg := payload.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	kind := ports.CredentialOther
	switch {
	case payload.Code == "invalid_credentials" || strings.Contains(strings.ToLower(msg), "invalid login"):
		kind = ports.CredentialInvalid
	case payload.Code == "email_not_confirmed" || strings.Contains(strings.ToLower(msg), "not confirmed"):
		kind = ports.CredentialUnconfirmed
	case payload.Code == "user_already_exists" || resp.StatusCode == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "already"):
		kind = ports.CredentialExists
	case payload.Code == "user_banned":
		kind = ports.CredentialSuspended
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		kind = ports.CredentialInvalid
	}

	return &ports.CredentialError{Kind: kind, Message: msg}
}

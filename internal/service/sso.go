package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

// SSOServiceOptions groups dependencies for SSOService.
type SSOServiceOptions struct {
	Provider ports.SSOProvider
	Sessions ports.SessionStore
	Roles    ports.RoleMapper
}

// SSOService orchestrates the back-office SSO flow: begin against the
// corporate IdP, exchange the callback code, map groups to a role, and
// persist a session. Customers never touch this path.
type SSOService struct {
	provider ports.SSOProvider
	sessions ports.SessionStore
	roles    ports.RoleMapper
}

// NewSSOService constructs a new SSOService.
func NewSSOService(opts SSOServiceOptions) *SSOService {
	return &SSOService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		roles:    opts.Roles,
	}
}

// BeginSSOResult contains the result of beginning an SSO flow.
type BeginSSOResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// Begin initiates the SSO flow and returns the IdP auth URL with state and nonce.
func (s *SSOService) Begin(ctx context.Context, redirectURL string) (*BeginSSOResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.SSOBeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin sso flow: %w", err)
	}

	return &BeginSSOResult{
		AuthURL: authURL,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// CompleteSSOInput groups parameters for completing an SSO flow.
type CompleteSSOInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteSSOResult contains the result of completing an SSO flow.
type CompleteSSOResult struct {
	Session domainauth.Session
}

// Complete exchanges the callback code for an identity, maps groups to
// a role, and persists a session. Identities that map to the customer
// role are rejected; SSO is for staff and admins only.
func (s *SSOService) Complete(ctx context.Context, input CompleteSSOInput) (*CompleteSSOResult, error) {
	if input.Code == "" {
		return nil, errors.New("authorization code is required")
	}
	if input.State == "" {
		return nil, errors.New("state parameter is required")
	}
	if input.Nonce == "" {
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.SSOExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	role := s.roles.Map(identity.Email, identity.Groups)
	if role != domainauth.RoleAdmin && role != domainauth.RoleStaff {
		return nil, errors.New("identity is not authorized for the back-office")
	}

	session := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		Email:     identity.Email,
		Role:      role,
		ExpiresAt: identity.ExpiresAt,
	}
	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	return &CompleteSSOResult{Session: session}, nil
}

// Logout removes the back-office session.
func (s *SSOService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.IdentityProvider
	Profiles ports.ProfileStore
	Sessions ports.SessionStore
	State    *AuthState
	Logger   *slog.Logger
}

// AuthService is the facade for customer authentication. It delegates
// credentials to the identity provider, persists an HTTP session, and
// keeps the auth state container in step. Credential failures come
// back as *ports.CredentialError, never as panics or opaque 500s.
type AuthService struct {
	provider ports.IdentityProvider
	profiles ports.ProfileStore
	sessions ports.SessionStore
	state    *AuthState
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "auth_service")
	}
	return &AuthService{
		provider: opts.Provider,
		profiles: opts.Profiles,
		sessions: opts.Sessions,
		state:    opts.State,
		logger:   logger,
	}
}

// LoginResult contains the session issued for a completed login.
type LoginResult struct {
	Session domainauth.Session
}

// Login signs the user in with email and password. It returns as soon
// as the identity is established; profile reconciliation continues in
// the background via the session listener. The session role reflects
// the profile row when one already exists, the metadata hint otherwise.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &ports.CredentialError{
			Kind:    ports.CredentialInvalid,
			Message: "email and password are required",
		}
	}

	ident, err := s.provider.SignIn(ctx, ports.SignInInput{Email: email, Password: password})
	if err != nil {
		return nil, ports.AsCredentialError(err)
	}

	role := domainauth.ParseRole(ident.Metadata.Role)
	profile, profileErr := s.profiles.GetByID(ctx, ident.UserID)
	switch {
	case profileErr == nil:
		if profile.Suspended {
			if signOutErr := s.provider.SignOut(ctx); signOutErr != nil {
				s.logger.WarnContext(ctx, "sign-out after suspended login failed", "err", signOutErr)
			}
			return nil, &ports.CredentialError{
				Kind:    ports.CredentialSuspended,
				Message: "this account is suspended",
			}
		}
		role = profile.Role
	case errors.Is(profileErr, ports.ErrProfileNotFound):
		// First login; the reconciler will create the row.
	default:
		s.logger.WarnContext(ctx, "profile check during login failed",
			"user_id", ident.UserID, "err", profileErr)
	}

	session := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    ident.UserID,
		Email:     ident.Email,
		Role:      role,
		ExpiresAt: ident.ExpiresAt,
	}
	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}

	return &LoginResult{Session: session}, nil
}

// RegisterInput carries inputs for customer registration.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
}

// RegisterResult contains the outcome of a registration.
type RegisterResult struct {
	// Session is nil when the identity service requires confirmation
	// before issuing a session.
	Session *domainauth.Session
}

// Register creates a new customer identity. The registration metadata
// seeds the profile row; the role is always customer, regardless of
// what a crafted request might carry. On success the profile row is
// created eagerly so the first page load does not wait on reconciliation.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, &ports.CredentialError{
			Kind:    ports.CredentialInvalid,
			Message: "email and password are required",
		}
	}

	md := domainauth.Metadata{
		FullName: strings.TrimSpace(in.DisplayName),
		Phone:    strings.TrimSpace(in.Phone),
		Role:     string(domainauth.RoleCustomer),
	}

	ident, err := s.provider.SignUp(ctx, ports.SignUpInput{
		Email:    email,
		Password: in.Password,
		Metadata: md,
	})
	if err != nil {
		return nil, ports.AsCredentialError(err)
	}

	s.bootstrapProfile(ctx, ident)

	if ident.ExpiresAt.IsZero() {
		// Confirmation flow: no token yet, the user signs in after
		// confirming their address.
		return &RegisterResult{}, nil
	}

	session := domainauth.Session{
		ID:        uuid.NewString(),
		UserID:    ident.UserID,
		Email:     ident.Email,
		Role:      domainauth.RoleCustomer,
		ExpiresAt: ident.ExpiresAt,
	}
	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}
	return &RegisterResult{Session: &session}, nil
}

// bootstrapProfile eagerly creates the profile row after sign-up.
// Losing the race to the reconciler is fine; any other failure is
// logged and left for the reconciler to repair.
func (s *AuthService) bootstrapProfile(ctx context.Context, ident domainauth.Identity) {
	_, err := s.profiles.Insert(ctx, DefaultProfile(ident))
	if err != nil && !errors.Is(err, ports.ErrProfileExists) {
		s.logger.WarnContext(ctx, "eager profile creation failed",
			"user_id", ident.UserID, "err", err)
	}
}

// Logout signs the user out. The remote sign-out is attempted, but the
// local session and state are cleared whatever happens; a dead identity
// service must not keep anyone logged in.
func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	if err := s.provider.SignOut(ctx); err != nil {
		s.logger.WarnContext(ctx, "remote sign-out failed", "err", err)
	}

	if sessionID != "" {
		if err := s.sessions.Delete(ctx, sessionID); err != nil {
			s.logger.WarnContext(ctx, "session delete failed", "err", err)
		}
	}

	s.state.clearSession()
}

// UpdateProfile amends the signed-in user's profile. The profile row
// is the source of truth; the provider metadata bag is updated
// best-effort so a future bootstrap starts from current values.
func (s *AuthService) UpdateProfile(
	ctx context.Context,
	userID string,
	req model.UpdateProfileRequest,
) (*model.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}
	// Customers cannot change their own role or suspension through this
	// path; that is back-office territory.
	req.Role = nil
	req.Suspended = nil

	updated, err := s.profiles.UpdateByID(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	md := domainauth.Metadata{Role: string(updated.Role)}
	if updated.DisplayName != nil {
		md.FullName = *updated.DisplayName
	}
	if updated.Phone != nil {
		md.Phone = *updated.Phone
	}
	if _, mdErr := s.provider.UpdateMetadata(ctx, md); mdErr != nil {
		s.logger.WarnContext(ctx, "provider metadata update failed",
			"user_id", userID, "err", mdErr)
	}

	s.state.mergeProfile(updated)
	return updated, nil
}

// Snapshot exposes the current auth state for handlers.
func (s *AuthService) Snapshot() AuthSnapshot {
	return s.state.Snapshot()
}

var errSessionExpired = errors.New("session expired")

// GetSession validates a session ID against the session store.
// Expired sessions are deleted on sight.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		if delErr := s.sessions.Delete(ctx, sessionID); delErr != nil {
			s.logger.WarnContext(ctx, "expired session cleanup failed", "err", delErr)
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

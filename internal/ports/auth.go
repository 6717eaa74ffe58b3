package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

// CredentialErrorKind classifies sign-in/sign-up failures reported by
// the identity provider.
type CredentialErrorKind string

const (
	CredentialInvalid     CredentialErrorKind = "invalid-credentials"
	CredentialUnconfirmed CredentialErrorKind = "unconfirmed-identity"
	CredentialExists      CredentialErrorKind = "already-registered"
	CredentialSuspended   CredentialErrorKind = "suspended"
	CredentialOther       CredentialErrorKind = "other"
)

// CredentialError is a structured credential failure. It is returned,
// never panicked, so callers can render it inline on login/registration
// forms.
type CredentialError struct {
	Kind    CredentialErrorKind
	Message string
	Cause   error
}

func (e *CredentialError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *CredentialError) Unwrap() error { return e.Cause }

// AsCredentialError extracts a CredentialError from err, or wraps err
// as CredentialOther so facade callers always get a classified result.
func AsCredentialError(err error) *CredentialError {
	if err == nil {
		return nil
	}
	var ce *CredentialError
	if errors.As(err, &ce) {
		return ce
	}
	return &CredentialError{Kind: CredentialOther, Message: err.Error(), Cause: err}
}

// SignUpInput carries inputs for registering a new identity.
type SignUpInput struct {
	Email    string
	Password string
	Metadata domainauth.Metadata
}

// SignInInput carries inputs for password sign-in.
type SignInInput struct {
	Email    string
	Password string
}

// IdentityProvider is the hosted identity service the application
// delegates credentials to. Besides the request/response operations it
// emits session-change events consumed by the session listener.
type IdentityProvider interface {
	// SignUp registers a new identity and returns it. Failures are
	// *CredentialError where classifiable.
	SignUp(ctx context.Context, in SignUpInput) (domainauth.Identity, error)

	// SignIn exchanges credentials for an authenticated identity and
	// emits a signed-in event. Failures are *CredentialError where
	// classifiable.
	SignIn(ctx context.Context, in SignInInput) (domainauth.Identity, error)

	// SignOut invalidates the current remote session and emits a
	// signed-out event.
	SignOut(ctx context.Context) error

	// CurrentSession returns the already-active identity, if any.
	// A nil identity with nil error means "no active session"; used for
	// reload recovery on attach.
	CurrentSession(ctx context.Context) (*domainauth.Identity, error)

	// UpdateMetadata amends the identity's metadata bag and emits a
	// user-updated event.
	UpdateMetadata(ctx context.Context, md domainauth.Metadata) (domainauth.Identity, error)

	// Subscribe registers a session-event consumer. The returned cancel
	// func unregisters it; after cancel returns no further events are
	// delivered on ch.
	Subscribe(ch chan<- domainauth.Event) (cancel func())
}

// SessionStore persists and retrieves user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper maps identity-provider group claims to application roles.
// Used by the back-office SSO path; password identities carry their
// role in the profile row instead.
type RoleMapper interface {
	Map(email string, groups []string) domainauth.Role
}

// Profile sentinel errors. Defined alongside the ProfileStore
// interface so both implementations and the reconciler share them.
var (
	// ErrProfileNotFound means the profile row does not exist yet. This
	// is "not yet created", never a failure; the reconciler self-heals it.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists means an insert hit the uniqueness constraint,
	// i.e. a concurrent reconciliation won the race.
	ErrProfileExists = errors.New("profile already exists")
)

// ProfileStore resolves and persists profile rows. Implementations must
// distinguish "row absent" (ErrProfileNotFound) from transport errors,
// and surface unique-violation on insert as ErrProfileExists.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	Insert(ctx context.Context, req *model.CreateProfileRequest) (*model.Profile, error)
	UpdateByID(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.Profile, error)
}

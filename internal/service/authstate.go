package service

import (
	"sync"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

// AuthPhase is the coarse lifecycle state derived from the container.
type AuthPhase string

const (
	PhaseUninitialized            AuthPhase = "uninitialized"
	PhaseLoading                  AuthPhase = "loading"
	PhaseUnauthenticated          AuthPhase = "unauthenticated"
	PhaseAuthenticatedNoProfile   AuthPhase = "authenticated-no-profile"
	PhaseAuthenticatedWithProfile AuthPhase = "authenticated-with-profile"
)

// AuthState is the single-writer container for the current identity,
// its profile row, and the reconciliation bookkeeping around them.
// Writers are the session listener, the profile reconciler, and the
// auth facade; everyone else reads through Snapshot.
type AuthState struct {
	mu sync.Mutex

	attached         bool
	loading          bool
	identity         *domainauth.Identity
	profile          *model.Profile
	profileAttempted bool
}

// NewAuthState constructs an empty, uninitialized container.
func NewAuthState() *AuthState {
	return &AuthState{}
}

// AuthSnapshot is a point-in-time value copy of the container. All
// derived flags are pure functions of the snapshot, so a handler that
// takes one snapshot sees a consistent view for the whole request.
type AuthSnapshot struct {
	Attached         bool
	Loading          bool
	Identity         *domainauth.Identity
	Profile          *model.Profile
	ProfileAttempted bool
}

// IsAuthenticated reports whether an identity session is active.
// It does not require a profile row.
func (s AuthSnapshot) IsAuthenticated() bool { return s.Identity != nil }

// IsAdmin reports whether the loaded profile carries the admin role.
// False until the profile resolves; authorization decisions that must
// not reject prematurely should consult ProfileAttempted first.
func (s AuthSnapshot) IsAdmin() bool {
	return s.Profile != nil && s.Profile.Role == domainauth.RoleAdmin
}

// IsStaff reports whether the loaded profile carries the staff or
// admin role.
func (s AuthSnapshot) IsStaff() bool {
	return s.Profile != nil && (s.Profile.Role == domainauth.RoleStaff || s.Profile.Role == domainauth.RoleAdmin)
}

// Phase derives the lifecycle state.
func (s AuthSnapshot) Phase() AuthPhase {
	switch {
	case !s.Attached:
		return PhaseUninitialized
	case s.Loading:
		return PhaseLoading
	case s.Identity == nil:
		return PhaseUnauthenticated
	case s.Profile == nil:
		return PhaseAuthenticatedNoProfile
	default:
		return PhaseAuthenticatedWithProfile
	}
}

// Snapshot returns a value copy of the current state.
func (a *AuthState) Snapshot() AuthSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := AuthSnapshot{
		Attached:         a.attached,
		Loading:          a.loading,
		ProfileAttempted: a.profileAttempted,
	}
	if a.identity != nil {
		ident := *a.identity
		snap.Identity = &ident
	}
	if a.profile != nil {
		profile := *a.profile
		snap.Profile = &profile
	}
	return snap
}

// Loading reports whether the initial session check is still pending.
func (a *AuthState) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

func (a *AuthState) setAttached(loading bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attached = true
	a.loading = loading
}

func (a *AuthState) setLoading(loading bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loading = loading
}

// setIdentity mirrors a provider session into local state. The profile
// is left untouched; reconciliation is the reconciler's job.
func (a *AuthState) setIdentity(ident *domainauth.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ident == nil {
		a.identity = nil
		return
	}
	copied := *ident
	a.identity = &copied
}

// clearSession wipes identity and profile and rearms reconciliation
// for the next sign-in. Used on sign-out regardless of remote outcome.
func (a *AuthState) clearSession() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identity = nil
	a.profile = nil
	a.profileAttempted = false
}

// markProfileAttempted records that reconciliation ran for the current
// identity. Set before the fetch so gating middleware can tell "still
// pending" from "attempted and absent".
func (a *AuthState) markProfileAttempted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.profileAttempted = true
}

func (a *AuthState) setProfile(p *model.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p == nil {
		a.profile = nil
		return
	}
	copied := *p
	a.profile = &copied
}

// mergeProfile applies an updated row only while the same user is
// still signed in; a stale write from a delayed re-read must not
// resurrect a profile after sign-out.
func (a *AuthState) mergeProfile(p *model.Profile) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p == nil || a.identity == nil || a.identity.UserID != p.ID {
		return
	}
	copied := *p
	a.profile = &copied
}

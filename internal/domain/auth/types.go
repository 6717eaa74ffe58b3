package auth

// Package auth contains domain-level types for identity, sessions, and
// profiles. It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// ParseRole returns the Role matching s, or RoleCustomer when s is not
// a recognised role name.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleStaff:
		return RoleStaff
	default:
		return RoleCustomer
	}
}

// Metadata is the free-form bag attached to an identity at registration.
// It is a one-time bootstrap hint for profile creation; once a profile
// row exists the profile is authoritative.
type Metadata struct {
	FullName string `json:"full_name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Identity represents the authenticated principal returned by the
// identity provider. Adapters map provider-specific payloads into this shape.
type Identity struct {
	UserID    string // stable user identifier issued by the provider
	Email     string
	Metadata  Metadata
	ExpiresAt time.Time // absolute expiry of the provider token
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier (e.g., random URL-safe string).
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsAdmin returns true if the session role is admin.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// IsStaff returns true if the session role is staff.
func (s Session) IsStaff() bool { return s.Role == RoleStaff }

// EventKind enumerates the session-change notifications emitted by the
// identity provider.
type EventKind string

const (
	EventSignedIn       EventKind = "signed-in"
	EventSignedOut      EventKind = "signed-out"
	EventTokenRefreshed EventKind = "token-refreshed"
	EventUserUpdated    EventKind = "user-updated"
)

// Event is a session-change notification. Identity is nil on sign-out.
type Event struct {
	Kind     EventKind
	Identity *Identity
}

// HasSession reports whether the event carries an authenticated identity.
func (e Event) HasSession() bool { return e.Identity != nil }

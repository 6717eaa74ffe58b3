//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
)

const (
	maxDisplayNameLen = 255
	maxPhoneLen       = 32
)

// Profile is the application-level row describing a user, one-to-one
// with the identity held by the identity provider. Absence of a row is
// "not yet created", not an error; the reconciler self-heals it.
type Profile struct {
	ID          string          `json:"id"                     db:"id"`
	Email       string          `json:"email"                  db:"email"`
	DisplayName *string         `json:"display_name,omitempty" db:"display_name"`
	Phone       *string         `json:"phone,omitempty"        db:"phone"`
	Role        domainauth.Role `json:"role"                   db:"role"`
	Suspended   bool            `json:"suspended"              db:"suspended"`
	CreatedAt   time.Time       `json:"created_at"             db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"             db:"updated_at"`
}

// CreateProfileRequest represents parameters to insert a Profile.
type CreateProfileRequest struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	DisplayName *string         `json:"display_name,omitempty"`
	Phone       *string         `json:"phone,omitempty"`
	Role        domainauth.Role `json:"role"`
}

// UpdateProfileRequest represents a partial profile update. Role and
// Suspended are admin-only fields; self-service updates set only
// DisplayName and Phone.
type UpdateProfileRequest struct {
	DisplayName *string          `json:"display_name,omitempty"`
	Phone       *string          `json:"phone,omitempty"`
	Role        *domainauth.Role `json:"role,omitempty"`
	Suspended   *bool            `json:"suspended,omitempty"`
}

// Validate validates CreateProfileRequest.
func (r *CreateProfileRequest) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return errors.New("email is required")
	}
	if r.DisplayName != nil && utf8.RuneCountInString(*r.DisplayName) > maxDisplayNameLen {
		return errors.New("display_name cannot exceed 255 characters")
	}
	if r.Phone != nil && utf8.RuneCountInString(*r.Phone) > maxPhoneLen {
		return errors.New("phone cannot exceed 32 characters")
	}
	if r.Role == "" {
		r.Role = domainauth.RoleCustomer
	}
	return nil
}

// Validate validates UpdateProfileRequest.
func (r *UpdateProfileRequest) Validate() error {
	if r.DisplayName != nil && utf8.RuneCountInString(*r.DisplayName) > maxDisplayNameLen {
		return errors.New("display_name cannot exceed 255 characters")
	}
	if r.Phone != nil && utf8.RuneCountInString(*r.Phone) > maxPhoneLen {
		return errors.New("phone cannot exceed 32 characters")
	}
	if r.Role != nil {
		switch *r.Role {
		case domainauth.RoleAdmin, domainauth.RoleStaff, domainauth.RoleCustomer:
		default:
			return errors.New("invalid role")
		}
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateProfileRequest.
func (r *UpdateProfileRequest) HasUpdates() bool {
	return r.DisplayName != nil || r.Phone != nil || r.Role != nil || r.Suspended != nil
}

// ProfilesListOptions controls paging and filtering for listing profiles.
// Sort supports: "created_at", "email" (case-insensitive);
// Dir supports: "asc", "desc".
type ProfilesListOptions struct {
	Limit     int
	Offset    int
	Q         *string          // substring match on email or display_name (ILIKE)
	Role      *domainauth.Role // exact match
	Suspended *bool            // exact match
	Sort      string
	Dir       string
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// IdentityMode represents which identity provider backs customer auth.
type IdentityMode string

const (
	// IdentityModeHosted delegates credentials to the hosted identity service.
	IdentityModeHosted IdentityMode = "hosted"
	// IdentityModeDev uses the in-memory provider (for development only).
	IdentityModeDev IdentityMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for IdentityMode.
func (m *IdentityMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "hosted", "dev":
		*m = IdentityMode(v)
		return nil
	default:
		return fmt.Errorf("invalid IdentityMode: %q (valid options: hosted, dev)", v)
	}
}

// IdentityConfig contains hosted identity service configuration.
type IdentityConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:9999"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"10s"`
}

// DevIdentityConfig controls the in-memory identity provider.
// Used when IDENTITY_MODE=dev for development and testing.
type DevIdentityConfig struct {
	SessionDuration time.Duration `env:"SESSION_DURATION" envDefault:"8h"`
	// SeedAccounts is a semicolon-separated list of email:password pairs
	// registered at startup.
	SeedAccounts []string `env:"SEED_ACCOUNTS" envSeparator:";"`
}

// SSOConfig contains OIDC configuration for back-office sign-in.
type SSOConfig struct {
	Enabled      bool   `env:"ENABLED"       envDefault:"false"`
	ClientID     string `env:"CLIENT_ID"     envDefault:"bulkhaus"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/sso/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email groups"`
	DiscoveryURL string `env:"DISCOVERY_URL"`

	// AdminGroup is the IdP group granting the admin role.
	AdminGroup string `env:"ADMIN_GROUP" envDefault:"bulkhaus-admins"`
	// StaffGroup is the IdP group granting the staff role.
	StaffGroup string `env:"STAFF_GROUP" envDefault:"bulkhaus-staff"`
	// StaffDomain grants the staff role to any email under this
	// registrable domain when group claims are absent.
	StaffDomain string `env:"STAFF_DOMAIN"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider backs customer auth.
	Mode IdentityMode `env:"IDENTITY_MODE" envDefault:"hosted"`

	// Identity configuration (used when Mode=hosted).
	Identity IdentityConfig `envPrefix:"IDENTITY_"`

	// DevIdentity configuration (used when Mode=dev).
	DevIdentity DevIdentityConfig `envPrefix:"DEV_IDENTITY_"`

	// SSO configuration for the back-office.
	SSO SSOConfig `envPrefix:"SSO_"`
}

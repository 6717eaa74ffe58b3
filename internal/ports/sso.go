package ports

import (
	"context"
	"time"
)

// SSOBeginInput carries inputs for starting a back-office SSO flow.
type SSOBeginInput struct {
	// RedirectURL is where the IdP sends the browser after consent.
	RedirectURL string
}

// SSOExchangeInput carries the callback parameters for completing SSO.
type SSOExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SSOIdentity is the staff principal produced by the SSO exchange.
// Groups feed the RoleMapper; staff never carry a metadata bag.
type SSOIdentity struct {
	UserID    string
	Email     string
	Name      string
	Groups    []string
	ExpiresAt time.Time
}

// SSOProvider is the corporate IdP used by the back-office. Customers
// authenticate through IdentityProvider instead.
type SSOProvider interface {
	// Begin returns the IdP authorization URL plus the state and nonce
	// the handler must persist for callback validation.
	Begin(ctx context.Context, in SSOBeginInput) (authURL, state, nonce string, err error)

	// Exchange trades the callback code for a verified identity.
	Exchange(ctx context.Context, in SSOExchangeInput) (SSOIdentity, error)
}

package bootstrap

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bulkhaus/bulk-ui-api/config"
	"github.com/bulkhaus/bulk-ui-api/internal/adapters/authroles"
	"github.com/bulkhaus/bulk-ui-api/internal/adapters/devidentity"
	"github.com/bulkhaus/bulk-ui-api/internal/adapters/identity"
	"github.com/bulkhaus/bulk-ui-api/internal/adapters/oidc"
	redisadapter "github.com/bulkhaus/bulk-ui-api/internal/adapters/redis"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

const sessionKeyPrefix = "session:"

// BuildIdentityProvider selects the identity backend from config. Dev
// mode runs entirely in memory; anything else talks to the hosted
// identity service.
//
//nolint:ireturn // both providers satisfy ports.IdentityProvider; the caller only sees the port.
func BuildIdentityProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch cfg.Mode {
	case config.IdentityModeDev:
		seed, err := parseSeedAccounts(cfg.DevIdentity.SeedAccounts)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("using in-memory identity provider", "seed_accounts", len(seed))
		}
		return devidentity.NewProvider(devidentity.Config{
			SessionDuration: cfg.DevIdentity.SessionDuration,
			Seed:            seed,
		})
	default:
		return identity.NewProvider(identity.Config{
			BaseURL:    cfg.Identity.BaseURL,
			APIKey:     cfg.Identity.APIKey,
			HTTPClient: &http.Client{Timeout: cfg.Identity.Timeout},
		})
	}
}

// parseSeedAccounts turns "email:password" pairs into the dev
// provider's seed map.
func parseSeedAccounts(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seed := make(map[string]string, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		email, password, found := strings.Cut(entry, ":")
		if !found || email == "" || password == "" {
			return nil, fmt.Errorf("invalid seed account %q: want email:password", entry)
		}
		seed[strings.ToLower(email)] = password
	}
	return seed, nil
}

// BuildSSOProvider constructs the OIDC client for back-office login.
// Returns nil when SSO is disabled or not configured.
func BuildSSOProvider(cfg config.SSOConfig, logger *slog.Logger) (*oidc.Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.DiscoveryURL == "" {
		if logger != nil {
			logger.Warn("sso enabled without a discovery url, skipping")
		}
		return nil, nil
	}

	provider, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scope:        cfg.Scope,
		DiscoveryURL: cfg.DiscoveryURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build oidc provider: %w", err)
	}

	if logger != nil {
		logger.Info("sso provider configured", "discovery_url", cfg.DiscoveryURL)
	}
	return provider, nil
}

// BuildRoleMapper maps IdP group claims and staff email domains to
// application roles.
func BuildRoleMapper(cfg config.SSOConfig) authroles.StaticRoleMapper {
	return authroles.StaticRoleMapper{
		AdminGroup:  cfg.AdminGroup,
		StaffGroup:  cfg.StaffGroup,
		StaffDomain: cfg.StaffDomain,
	}
}

// BuildSessionStore wraps the shared Redis client for HTTP sessions.
func BuildSessionStore(client goredis.UniversalClient) *redisadapter.SessionStore {
	return redisadapter.NewSessionStoreWithPrefix(client, sessionKeyPrefix)
}

package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://shop.example.com").
	// Used for generating absolute URLs in notifications and the SSO redirect.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// LoginRatePerMinute throttles credential endpoints per client IP.
	LoginRatePerMinute int `env:"HTTP_LOGIN_RATE_PER_MINUTE" envDefault:"10"`

	// LoginBurst is the burst size for the credential rate limiter.
	LoginBurst int `env:"HTTP_LOGIN_BURST" envDefault:"5"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.LoginRatePerMinute < 1 {
		h.LoginRatePerMinute = 1
	}
	if h.LoginBurst < 1 {
		h.LoginBurst = 1
	}
}

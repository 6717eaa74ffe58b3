package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/bulkhaus/bulk-ui-api/config"
	httpx "github.com/bulkhaus/bulk-ui-api/internal/http"
)

const minutesPerLimiterWindow = 60.0

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	services := httpx.RouterServices{
		Auth:           cfg.Services.Auth,
		SSO:            cfg.Services.SSO,
		Catalog:        cfg.Services.Catalog,
		Cart:           cfg.Services.Cart,
		Orders:         cfg.Services.Orders,
		Chat:           cfg.Services.Chat,
		Users:          cfg.Services.Users,
		StockAlerts:    cfg.Services.StockAlerts,
		CookieDomain:   appCfg.HTTP.CookieDomain,
		SSORedirectURL: appCfg.Auth.SSO.RedirectURL,
		LoginLimiter:   buildLoginLimiter(appCfg.HTTP),
		Logger:         logger,
	}

	handler := buildHTTPHandler(httpHandlerConfig{
		Logger:   logger,
		Services: services,
	})

	// Start server (logs "starting HTTP server" internally)
	server := startServer(logger, handler, appCfg.HTTP.Addr)

	return server
}

// buildLoginLimiter converts the per-minute config into a token bucket.
func buildLoginLimiter(cfg config.HTTPConfig) *httpx.RateLimiter {
	if cfg.LoginRatePerMinute <= 0 {
		return nil
	}
	perSecond := rate.Limit(float64(cfg.LoginRatePerMinute) / minutesPerLimiterWindow)
	return httpx.NewRateLimiter(perSecond, cfg.LoginBurst)
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
}

func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	router := httpx.NewRouter(cfg.Services)

	// Order: Recover -> Logging -> Router
	h := httpx.Logging(cfg.Logger)(router)
	h = httpx.Recover(cfg.Logger)(h)

	return h
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: /api/chat/stream holds its connection open.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}

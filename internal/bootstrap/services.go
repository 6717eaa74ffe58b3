package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bulkhaus/bulk-ui-api/config"
	"github.com/bulkhaus/bulk-ui-api/internal/core"
	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/notify"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/notify/slack"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/statsd"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

const shutdownWaitTimeout = 15 * time.Second

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth        *service.AuthService
	SSO         *service.SSOService
	Catalog     *service.CatalogService
	Cart        *service.CartService
	Orders      *service.OrderService
	Chat        *service.ChatService
	Users       *service.UserAdminService
	StockAlerts *service.StockAlertService

	Listener *service.SessionListener
	State    *service.AuthState

	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
	Notifier      notify.Sink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	ProfileRepo    *data.ProfileRepo
	ProductRepo    *data.ProductRepo
	CategoryRepo   *data.CategoryRepo
	CartRepo       *data.CartRepo
	OrderRepo      *data.OrderRepo
	ChatRepo       *data.ChatRepo
	StockAlertRepo *data.StockAlertRepo
	CacheRepo      *data.RedisCacheRepo
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient) *serviceRepositories {
	return &serviceRepositories{
		ProfileRepo:    data.NewProfileRepo(db),
		ProductRepo:    data.NewProductRepo(db),
		CategoryRepo:   data.NewCategoryRepo(db),
		CartRepo:       data.NewCartRepo(db),
		OrderRepo:      data.NewOrderRepo(db),
		ChatRepo:       data.NewChatRepo(db),
		StockAlertRepo: data.NewStockAlertRepo(db),
		CacheRepo:      data.NewRedisCacheRepo(redisClient),
	}
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "bulkhaus",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
		Notifier:      buildNotifier(obsLogger, cfg.Notifications),
	}
}

// buildNotifier wires the ops notification sink. Nil when disabled.
//
//nolint:ireturn // callers depend on the notify.Sink port, not the Slack client.
func buildNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) notify.Sink {
	if !cfg.Enabled || !cfg.Slack.Enabled {
		return nil
	}

	client, err := slack.NewClient(slack.Config{
		WebhookURL: cfg.Slack.WebhookURL,
		Channel:    cfg.Slack.Channel,
		Username:   cfg.Slack.Username,
		Timeout:    cfg.Timeout,
		RetryLimit: cfg.RetryLimit,
	})
	if err != nil {
		logger.Error("failed to initialise slack notifier", "error", err)
		return nil
	}

	logger.Info("slack notifications enabled", "channel", cfg.Slack.Channel)
	return client
}

// metricsSinkOrNil avoids handing services a typed-nil statsd client.
func metricsSinkOrNil(c *statsd.Client) statsd.Sink {
	if c == nil {
		return nil
	}
	return c
}

// BuildServices constructs the full service graph. The session
// listener is built but not attached; RunServicesWithShutdown attaches
// it once the process is committed to running.
func BuildServices(deps ServiceDeps) (ServiceContainer, error) {
	if deps.Config == nil {
		return ServiceContainer{}, errors.New("config is required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	if deps.RedisClient == nil {
		return ServiceContainer{}, errors.New("redis client is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos := buildRepositories(deps.DB, deps.RedisClient)
	obs := buildObservability(logger, deps.Config.Observability)

	provider, err := BuildIdentityProvider(deps.Config.Auth, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("build identity provider: %w", err)
	}

	sessions := BuildSessionStore(deps.RedisClient)
	state := service.NewAuthState()

	reconciler := service.NewProfileReconciler(service.ProfileReconcilerOptions{
		Profiles:      repos.ProfileRepo,
		State:         state,
		Notifier:      obs.Notifier,
		Metrics:       metricsSinkOrNil(obs.MetricsSink),
		Logger:        logger.With("component", "profile_reconciler"),
		ReadBackDelay: deps.Config.Reconciler.ReadBackDelay,
	})

	listener := service.NewSessionListener(service.SessionListenerOptions{
		Provider:   provider,
		State:      state,
		Reconciler: reconciler,
		Logger:     logger.With("component", "session_listener"),
	})

	authSvc := service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Profiles: repos.ProfileRepo,
		Sessions: sessions,
		State:    state,
		Logger:   logger.With("component", "auth_service"),
	})

	var ssoSvc *service.SSOService
	ssoProvider, err := BuildSSOProvider(deps.Config.Auth.SSO, logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	if ssoProvider != nil {
		ssoSvc = service.NewSSOService(service.SSOServiceOptions{
			Provider: ssoProvider,
			Sessions: sessions,
			Roles:    BuildRoleMapper(deps.Config.Auth.SSO),
		})
	}

	var cache core.CacheRepository
	if deps.Config.Cache.Enabled {
		cache = repos.CacheRepo
	}
	catalogSvc := service.NewCatalogService(service.CatalogServiceOptions{
		Products:   repos.ProductRepo,
		Categories: repos.CategoryRepo,
		Cache:      cache,
		Logger:     logger.With("component", "catalog_service"),
	})

	cartSvc := service.NewCartService(service.CartServiceOptions{
		Cart:     repos.CartRepo,
		Products: repos.ProductRepo,
	})

	stockAlertSvc := service.NewStockAlertService(service.StockAlertServiceOptions{
		Alerts:   repos.StockAlertRepo,
		Products: repos.ProductRepo,
		Notifier: obs.Notifier,
		Logger:   logger.With("component", "stock_alert_service"),
	})

	orderSvc := service.NewOrderService(service.OrderServiceOptions{
		Orders:  repos.OrderRepo,
		Alerts:  stockAlertSvc,
		Metrics: metricsSinkOrNil(obs.MetricsSink),
		Logger:  logger.With("component", "order_service"),
	})

	chatSvc := service.NewChatService(service.ChatServiceOptions{
		Chat: repos.ChatRepo,
	})

	userSvc := service.NewUserAdminService(service.UserAdminServiceOptions{
		Profiles: repos.ProfileRepo,
		State:    state,
		Sessions: sessions,
		Logger:   logger.With("component", "user_admin_service"),
	})

	return ServiceContainer{
		Auth:          authSvc,
		SSO:           ssoSvc,
		Catalog:       catalogSvc,
		Cart:          cartSvc,
		Orders:        orderSvc,
		Chat:          chatSvc,
		Users:         userSvc,
		StockAlerts:   stockAlertSvc,
		Listener:      listener,
		State:         state,
		Observability: obs,
	}, nil
}

// StartAlertScanner runs the periodic stock alert scan until ctx is
// done. The returned channel closes when the loop exits.
func StartAlertScanner(
	ctx context.Context,
	svc *service.StockAlertService,
	interval time.Duration,
	logger *slog.Logger,
	errCh chan<- error,
) <-chan struct{} {
	done := make(chan struct{})
	if svc == nil {
		close(done)
		return done
	}
	if logger == nil {
		logger = slog.Default()
	}
	if interval < time.Second {
		interval = time.Second
	}

	go func() {
		defer close(done)
		logger.Info("stock alert scanner started", "interval", interval.String())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("stock alert scanner stopping")
				return
			case <-ticker.C:
				if err := svc.Scan(ctx); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					logger.Error("stock alert scan failed", "error", err)
					select {
					case errCh <- fmt.Errorf("stock alert scan: %w", err):
					default:
					}
				}
			}
		}
	}()

	return done
}

// ServiceOrchestrationConfig groups everything RunServicesWithShutdown needs.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

// RunServicesWithShutdown attaches the session listener, starts all
// enabled services, and blocks until a shutdown signal arrives or a
// service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	enabled, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}

	if attachErr := cfg.Services.Listener.Attach(serviceCtx); attachErr != nil {
		// The listener keeps consuming events even when the initial
		// session check fails; log and carry on.
		logger.Warn("session listener startup check failed", "error", attachErr)
	}

	errCh := make(chan error, len(enabled)+1)

	var httpServer *http.Server
	if enabled[config.ServiceModeHTTP] {
		httpServer = StartHTTPServer(&HTTPServerConfig{
			Config:   cfg.Config,
			Services: cfg.Services,
			Logger:   logger,
		})
	}

	var scannerDone <-chan struct{}
	if enabled[config.ServiceModeAlertScanner] {
		scannerDone = StartAlertScanner(
			serviceCtx,
			cfg.Services.StockAlerts,
			cfg.Config.StockAlerts.ScanInterval,
			logger.With("component", "alert_scanner"),
			errCh,
		)
	}

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  httpServer,
		listener:    cfg.Services.Listener,
		scannerDone: scannerDone,
		logger:      logger,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	listener    *service.SessionListener
	scannerDone <-chan struct{}
	logger      *slog.Logger
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop stops the HTTP server, the session listener, then waits
// for background loops to drain.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	if cfg.listener != nil {
		cfg.listener.Detach()
		cfg.logger.Info("session listener detached")
	}

	waitForService(cfg.scannerDone, "alert scanner", cfg.logger)

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}

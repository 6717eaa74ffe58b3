package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth        AuthServiceInterface
	SSO         *service.SSOService
	Catalog     *service.CatalogService
	Cart        *service.CartService
	Orders      *service.OrderService
	Chat        *service.ChatService
	Users       *service.UserAdminService
	StockAlerts *service.StockAlertService

	CookieDomain   string
	SSORedirectURL string
	// LoginLimiter throttles credential endpoints; optional.
	LoginLimiter *RateLimiter
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	registerAuthRoutes(mux, services)
	registerCatalogRoutes(mux, services)
	registerCartRoutes(mux, services)
	registerOrderRoutes(mux, services)
	registerChatRoutes(mux, services)
	registerAdminRoutes(mux, services)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	return mux
}

func registerAuthRoutes(mux *http.ServeMux, services RouterServices) {
	h := &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain, Logger: services.Logger}

	throttle := func(hh http.Handler) http.Handler {
		if services.LoginLimiter != nil {
			return services.LoginLimiter.Middleware(hh)
		}
		return hh
	}

	mux.Handle("POST /api/auth/login", throttle(http.HandlerFunc(h.Login)))
	mux.Handle("POST /api/auth/register", throttle(http.HandlerFunc(h.Register)))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/status", h.Status)
	mux.Handle("PUT /api/auth/profile", RequireAuth(services.Auth)(http.HandlerFunc(h.UpdateProfile)))

	if services.SSO != nil {
		sso := &SSOHandlers{
			Svc:          services.SSO,
			CookieDomain: services.CookieDomain,
			RedirectURL:  services.SSORedirectURL,
			Logger:       services.Logger,
		}
		mux.HandleFunc("GET /auth/sso/login", sso.Login)
		mux.HandleFunc("GET /auth/sso/callback", sso.Callback)
		mux.HandleFunc("POST /auth/sso/logout", sso.Logout)
	}
}

func registerCatalogRoutes(mux *http.ServeMux, services RouterServices) {
	h := &CatalogHandlers{Svc: services.Catalog}
	staffOnly := RequireRole(services.Auth, domainauth.RoleStaff)
	adminOnly := RequireRole(services.Auth, domainauth.RoleAdmin)

	mux.Handle("GET /api/products", OptionalAuth(services.Auth)(http.HandlerFunc(h.ListProducts)))
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.Handle("POST /api/products", staffOnly(http.HandlerFunc(h.CreateProduct)))
	mux.Handle("PUT /api/products/{id}", staffOnly(http.HandlerFunc(h.UpdateProduct)))
	mux.Handle("DELETE /api/products/{id}", adminOnly(http.HandlerFunc(h.DeleteProduct)))
	mux.Handle("POST /api/products/{id}/stock", staffOnly(http.HandlerFunc(h.AdjustStock)))

	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("GET /api/categories/{slug}", h.GetCategoryBySlug)
	mux.Handle("POST /api/categories", staffOnly(http.HandlerFunc(h.CreateCategory)))
	mux.Handle("PUT /api/categories/{id}", staffOnly(http.HandlerFunc(h.UpdateCategory)))
	mux.Handle("DELETE /api/categories/{id}", adminOnly(http.HandlerFunc(h.DeleteCategory)))
}

func registerCartRoutes(mux *http.ServeMux, services RouterServices) {
	h := &CartHandlers{Svc: services.Cart}
	authed := RequireAuth(services.Auth)

	mux.Handle("GET /api/cart", authed(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/cart/items", authed(http.HandlerFunc(h.SetItem)))
	mux.Handle("DELETE /api/cart/items/{productID}", authed(http.HandlerFunc(h.RemoveItem)))
	mux.Handle("DELETE /api/cart", authed(http.HandlerFunc(h.Clear)))
}

func registerOrderRoutes(mux *http.ServeMux, services RouterServices) {
	h := &OrderHandlers{Svc: services.Orders}
	authed := RequireAuth(services.Auth)
	staffOnly := RequireRole(services.Auth, domainauth.RoleStaff)

	mux.Handle("POST /api/orders/checkout", authed(http.HandlerFunc(h.Checkout)))
	mux.Handle("GET /api/orders", authed(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/orders/{id}", authed(http.HandlerFunc(h.Get)))
	mux.Handle("POST /api/orders/{id}/cancel", authed(http.HandlerFunc(h.Cancel)))
	mux.Handle("POST /api/orders/{id}/status", staffOnly(http.HandlerFunc(h.SetStatus)))
}

func registerChatRoutes(mux *http.ServeMux, services RouterServices) {
	h := &ChatHandlers{Svc: services.Chat}
	authed := RequireAuth(services.Auth)
	staffOnly := RequireRole(services.Auth, domainauth.RoleStaff)

	mux.Handle("POST /api/chat/messages", authed(http.HandlerFunc(h.Post)))
	mux.Handle("GET /api/chat/messages", authed(http.HandlerFunc(h.History)))
	mux.Handle("GET /api/chat/stream", authed(http.HandlerFunc(h.Stream)))
	mux.Handle("GET /api/chat/conversations", staffOnly(http.HandlerFunc(h.Conversations)))
}

func registerAdminRoutes(mux *http.ServeMux, services RouterServices) {
	adminOnly := RequireRole(services.Auth, domainauth.RoleAdmin)
	staffOnly := RequireRole(services.Auth, domainauth.RoleStaff)

	users := &UserAdminHandlers{Svc: services.Users}
	mux.Handle("GET /api/admin/users", adminOnly(http.HandlerFunc(users.List)))
	mux.Handle("GET /api/admin/users/{id}", adminOnly(http.HandlerFunc(users.Get)))
	mux.Handle("PUT /api/admin/users/{id}", adminOnly(http.HandlerFunc(users.Update)))

	alerts := &StockAlertHandlers{Svc: services.StockAlerts}
	mux.Handle("POST /api/admin/stock-alerts/rules", staffOnly(http.HandlerFunc(alerts.CreateRule)))
	mux.Handle("GET /api/admin/stock-alerts/rules", staffOnly(http.HandlerFunc(alerts.ListRules)))
	mux.Handle("DELETE /api/admin/stock-alerts/rules/{id}", staffOnly(http.HandlerFunc(alerts.DeleteRule)))
	mux.Handle("GET /api/admin/stock-alerts", staffOnly(http.HandlerFunc(alerts.ListOpenAlerts)))
	mux.Handle("POST /api/admin/stock-alerts/{id}/resolve", staffOnly(http.HandlerFunc(alerts.ResolveAlert)))
	mux.Handle("POST /api/admin/stock-alerts/scan", staffOnly(http.HandlerFunc(alerts.Scan)))
}

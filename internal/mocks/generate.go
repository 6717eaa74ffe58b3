// Package mocks provides mock implementations for testing.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the repository interfaces in internal/core. Hand-written doubles for the
// auth ports live in the auth subpackage; they carry state (session events,
// profile rows) that gomock expectations express poorly.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
package mocks

// Generate mock for ProductRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=product_repository_mock.go github.com/bulkhaus/bulk-ui-api/internal/core ProductRepository

// Generate mock for CategoryRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=category_repository_mock.go github.com/bulkhaus/bulk-ui-api/internal/core CategoryRepository

// Generate mock for CartRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cart_repository_mock.go github.com/bulkhaus/bulk-ui-api/internal/core CartRepository

// Generate mock for OrderRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=order_repository_mock.go github.com/bulkhaus/bulk-ui-api/internal/core OrderRepository

// Generate mock for ChatRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=chat_repository_mock.go github.com/bulkhaus/bulk-ui-api/internal/core ChatRepository

// Generate mock for StockAlertRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=stock_alert_repository_mock.go github.com/bulkhaus/bulk-ui-api/internal/core StockAlertRepository

// Generate mock for ProfileDirectory interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=profile_directory_mock.go github.com/bulkhaus/bulk-ui-api/internal/core ProfileDirectory

// Generate mock for CacheRepository interface from internal/core package.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=cache_repository_mock.go github.com/bulkhaus/bulk-ui-api/internal/core CacheRepository

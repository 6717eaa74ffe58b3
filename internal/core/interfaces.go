package core

import (
	"context"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// ProductRepository defines the interface for catalog product data operations.
type ProductRepository interface {
	Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error)
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, opts model.ProductsListOptions) ([]*model.Product, error)
	Update(ctx context.Context, id string, req model.UpdateProductRequest) (*model.Product, error)
	Delete(ctx context.Context, id string) (bool, error)
	// AdjustStock atomically adds delta (may be negative) to a product's
	// stock and returns the updated row. Fails when the result would go
	// negative.
	AdjustStock(ctx context.Context, id string, delta float64) (*model.Product, error)
}

// CategoryRepository defines the interface for category data operations.
type CategoryRepository interface {
	Create(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error)
	GetByID(ctx context.Context, id string) (*model.Category, error)
	GetBySlug(ctx context.Context, slug string) (*model.Category, error)
	List(ctx context.Context) ([]*model.Category, error)
	Update(ctx context.Context, id string, req model.UpdateCategoryRequest) (*model.Category, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// CartRepository defines the interface for cart data operations.
type CartRepository interface {
	// Upsert inserts or replaces the (user, product) cart line.
	Upsert(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartItem, error)
	ListLines(ctx context.Context, userID string) ([]*model.CartLine, error)
	Remove(ctx context.Context, userID, productID string) (bool, error)
	Clear(ctx context.Context, userID string) error
}

// OrderRepository defines the interface for order data operations.
type OrderRepository interface {
	// Checkout snapshots the user's cart into an order with items,
	// decrements product stock, and clears the cart, all in one
	// transaction. Returns model.ErrEmptyCart when the cart has no lines.
	Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.Order, error)
	GetByID(ctx context.Context, id string) (*model.Order, error)
	ListItems(ctx context.Context, orderID string) ([]*model.OrderItem, error)
	List(ctx context.Context, opts model.OrdersListOptions) ([]*model.Order, error)
	// SetStatus transitions an order, enforcing model.CanTransition.
	SetStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error)
}

// ChatRepository defines the interface for support-chat data operations.
type ChatRepository interface {
	Insert(ctx context.Context, msg *model.ChatMessage) (*model.ChatMessage, error)
	// ListSince returns messages for a conversation created strictly
	// after the given cursor time, oldest first.
	ListSince(ctx context.Context, conversationID string, since time.Time, limit int) ([]*model.ChatMessage, error)
	ListConversations(ctx context.Context, limit, offset int) ([]*model.ChatConversation, error)
	// WaitForMessage blocks until a message is appended to the
	// conversation or ctx is done.
	WaitForMessage(ctx context.Context, conversationID string) error
}

// StockAlertRepository defines the interface for inventory alert data operations.
type StockAlertRepository interface {
	CreateRule(ctx context.Context, req *model.CreateStockAlertRuleRequest) (*model.StockAlertRule, error)
	ListRules(ctx context.Context, enabledOnly bool) ([]*model.StockAlertRule, error)
	DeleteRule(ctx context.Context, id string) (bool, error)
	// RecordAlert opens an alert for (rule, product); reports whether a
	// new alert row was created or an open one already existed.
	RecordAlert(ctx context.Context, alert *model.StockAlert) (*model.StockAlert, bool, error)
	ListOpenAlerts(ctx context.Context, limit, offset int) ([]*model.StockAlert, error)
	ResolveAlert(ctx context.Context, id string) (bool, error)
}

// ProfileDirectory defines the interface for back-office profile administration.
type ProfileDirectory interface {
	List(ctx context.Context, opts model.ProfilesListOptions) ([]*model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	UpdateByID(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.Profile, error)
}

// CacheRepository defines the interface for byte-value cache operations.
type CacheRepository interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) (bool, error)
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

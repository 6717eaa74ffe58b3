package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// Catalog repository sentinels.
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategorySlugExists = errors.New("category slug already exists")
	ErrInsufficientStock  = errors.New("insufficient stock")

	// Cart repository sentinels.
	ErrCartItemNotFound = errors.New("cart item not found")

	// Order repository sentinels.
	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidOrderTransition = errors.New("invalid order status transition")

	// Stock alert repository sentinels.
	ErrStockAlertRuleNotFound = errors.New("stock alert rule not found")
)

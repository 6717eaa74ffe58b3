package service

import (
	"context"
	"errors"

	"github.com/bulkhaus/bulk-ui-api/internal/core"
	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

// CartServiceOptions groups dependencies for CartService.
type CartServiceOptions struct {
	Cart     core.CartRepository
	Products core.ProductRepository
}

// CartService manages per-user shopping carts.
type CartService struct {
	cart     core.CartRepository
	products core.ProductRepository
}

// NewCartService constructs a new CartService.
func NewCartService(opts CartServiceOptions) *CartService {
	return &CartService{cart: opts.Cart, products: opts.Products}
}

// CartView is the cart as rendered to the storefront.
type CartView struct {
	Lines      []*model.CartLine `json:"lines"`
	TotalCents int64             `json:"total_cents"`
}

// Get returns the user's cart with live prices and a computed total.
func (s *CartService) Get(ctx context.Context, userID string) (*CartView, error) {
	lines, err := s.cart.ListLines(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &CartView{Lines: lines}
	for _, line := range lines {
		view.TotalCents += line.LineTotalCents()
	}
	return view, nil
}

// SetItem adds a product to the cart or replaces its quantity. The
// product must exist, be active, and have enough stock on the shelf;
// stock is only committed at checkout.
func (s *CartService) SetItem(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartItem, error) {
	if req == nil {
		return nil, errors.New("add cart item request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, data.ErrProductNotFound
	}
	if product.StockQuantity < req.Quantity {
		return nil, data.ErrInsufficientStock
	}

	return s.cart.Upsert(ctx, userID, req)
}

// RemoveItem removes a product from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	removed, err := s.cart.Remove(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !removed {
		return data.ErrCartItemNotFound
	}
	return nil
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.cart.Clear(ctx, userID)
}

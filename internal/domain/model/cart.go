package model

import (
	"errors"
	"strings"
	"time"
)

// CartItem is one product line in a user's cart. The cart holds at most
// one row per (user, product); adding the same product again upserts
// the quantity.
type CartItem struct {
	ID        string    `json:"id"         db:"id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	ProductID string    `json:"product_id" db:"product_id"`
	Quantity  float64   `json:"quantity"   db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine is a cart item joined with its product for display and
// checkout pricing.
type CartLine struct {
	CartItem
	ProductName string      `json:"product_name" db:"product_name"`
	Unit        ProductUnit `json:"unit"         db:"unit"`
	PriceCents  int64       `json:"price_cents"  db:"price_cents"`
}

// LineTotalCents returns quantity times unit price, rounded to the
// nearest cent.
func (l CartLine) LineTotalCents() int64 {
	return int64(l.Quantity*float64(l.PriceCents) + 0.5)
}

// AddCartItemRequest represents parameters to add or replace a cart line.
type AddCartItemRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
}

// Validate validates AddCartItemRequest.
func (r *AddCartItemRequest) Validate() error {
	if strings.TrimSpace(r.ProductID) == "" {
		return errors.New("product_id is required")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be > 0")
	}
	return nil
}

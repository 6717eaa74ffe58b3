package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxProductNameLen = 255

// ProductUnit is the unit bulk goods are priced and sold by.
type ProductUnit string

const (
	UnitKilogram ProductUnit = "kg"
	UnitLiter    ProductUnit = "l"
	UnitPiece    ProductUnit = "piece"
)

// Valid reports whether the unit is supported.
func (u ProductUnit) Valid() bool {
	switch u {
	case UnitKilogram, UnitLiter, UnitPiece:
		return true
	default:
		return false
	}
}

// ParseProductUnit normalizes a unit string and reports whether it is supported.
func ParseProductUnit(value string) (ProductUnit, bool) {
	unit := ProductUnit(strings.ToLower(strings.TrimSpace(value)))
	if unit.Valid() {
		return unit, true
	}
	return "", false
}

// Product represents a catalog item sold by weight, volume, or piece.
// PriceCents is the price per unit in the store currency's minor unit.
type Product struct {
	ID            string      `json:"id"                    db:"id"`
	Name          string      `json:"name"                  db:"name"`
	Description   *string     `json:"description,omitempty" db:"description"`
	CategoryID    *string     `json:"category_id,omitempty" db:"category_id"`
	Unit          ProductUnit `json:"unit"                  db:"unit"`
	PriceCents    int64       `json:"price_cents"           db:"price_cents"`
	StockQuantity float64     `json:"stock_quantity"        db:"stock_quantity"`
	ImageURL      *string     `json:"image_url,omitempty"   db:"image_url"`
	Active        bool        `json:"active"                db:"active"`
	CreatedAt     time.Time   `json:"created_at"            db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"            db:"updated_at"`
}

// CreateProductRequest represents parameters to create a Product.
type CreateProductRequest struct {
	Name          string      `json:"name"`
	Description   *string     `json:"description,omitempty"`
	CategoryID    *string     `json:"category_id,omitempty"`
	Unit          ProductUnit `json:"unit"`
	PriceCents    int64       `json:"price_cents"`
	StockQuantity float64     `json:"stock_quantity"`
	ImageURL      *string     `json:"image_url,omitempty"`
	Active        *bool       `json:"active,omitempty"`
}

// UpdateProductRequest represents parameters to update a Product.
type UpdateProductRequest struct {
	Name          *string      `json:"name,omitempty"`
	Description   *string      `json:"description,omitempty"`
	CategoryID    *string      `json:"category_id,omitempty"`
	Unit          *ProductUnit `json:"unit,omitempty"`
	PriceCents    *int64       `json:"price_cents,omitempty"`
	StockQuantity *float64     `json:"stock_quantity,omitempty"`
	ImageURL      *string      `json:"image_url,omitempty"`
	Active        *bool        `json:"active,omitempty"`
}

// Validate validates CreateProductRequest.
func (r *CreateProductRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxProductNameLen {
		return errors.New("name cannot exceed 255 characters")
	}
	if r.Unit == "" {
		r.Unit = UnitKilogram
	}
	if !r.Unit.Valid() {
		return errors.New("invalid unit")
	}
	if r.PriceCents < 0 {
		return errors.New("price_cents must be >= 0")
	}
	if r.StockQuantity < 0 {
		return errors.New("stock_quantity must be >= 0")
	}
	return nil
}

// Validate validates UpdateProductRequest.
func (r *UpdateProductRequest) Validate() error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return errors.New("name cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxProductNameLen {
			return errors.New("name cannot exceed 255 characters")
		}
	}
	if r.Unit != nil && !r.Unit.Valid() {
		return errors.New("invalid unit")
	}
	if r.PriceCents != nil && *r.PriceCents < 0 {
		return errors.New("price_cents must be >= 0")
	}
	if r.StockQuantity != nil && *r.StockQuantity < 0 {
		return errors.New("stock_quantity must be >= 0")
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateProductRequest.
func (r *UpdateProductRequest) HasUpdates() bool {
	return r.Name != nil || r.Description != nil || r.CategoryID != nil || r.Unit != nil ||
		r.PriceCents != nil || r.StockQuantity != nil || r.ImageURL != nil || r.Active != nil
}

// ProductsListOptions controls paging, filtering, and sorting for the
// storefront catalog listing.
// Sort supports: "created_at", "name", "price_cents"; Dir: "asc", "desc".
type ProductsListOptions struct {
	Limit         int
	Offset        int
	Q             *string // substring match on name (ILIKE)
	CategoryID    *string // exact match
	Active        *bool   // exact match
	MinPriceCents *int64
	MaxPriceCents *int64
	Sort          string
	Dir           string
}

package model

import (
	"errors"
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCanceled  OrderStatus = "canceled"
)

// Valid reports whether the status is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCanceled:
		return true
	default:
		return false
	}
}

// orderTransitions encodes the allowed status transitions.
// Cancellation is only possible before shipment.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCanceled},
	OrderConfirmed: {OrderShipped, OrderCanceled},
	OrderShipped:   {OrderDelivered},
}

// CanTransition reports whether status from can move to status to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseOrderStatus normalizes a status string and reports whether it is known.
func ParseOrderStatus(value string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	if status.Valid() {
		return status, true
	}
	return "", false
}

// Order is a checkout snapshot of a cart. Item prices are frozen at
// checkout time; later product price changes do not affect the order.
type Order struct {
	ID           string      `json:"id"                      db:"id"`
	UserID       string      `json:"user_id"                 db:"user_id"`
	Status       OrderStatus `json:"status"                  db:"status"`
	TotalCents   int64       `json:"total_cents"             db:"total_cents"`
	ShippingNote *string     `json:"shipping_note,omitempty" db:"shipping_note"`
	CreatedAt    time.Time   `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"              db:"updated_at"`
}

// OrderItem is one frozen product line inside an order.
type OrderItem struct {
	ID             string      `json:"id"               db:"id"`
	OrderID        string      `json:"order_id"         db:"order_id"`
	ProductID      string      `json:"product_id"       db:"product_id"`
	ProductName    string      `json:"product_name"     db:"product_name"`
	Unit           ProductUnit `json:"unit"             db:"unit"`
	Quantity       float64     `json:"quantity"         db:"quantity"`
	UnitPriceCents int64       `json:"unit_price_cents" db:"unit_price_cents"`
}

// LineTotalCents returns quantity times frozen unit price, rounded to
// the nearest cent.
func (i OrderItem) LineTotalCents() int64 {
	return int64(i.Quantity*float64(i.UnitPriceCents) + 0.5)
}

// CheckoutRequest represents parameters to place an order from the
// caller's current cart.
type CheckoutRequest struct {
	ShippingNote *string `json:"shipping_note,omitempty"`
}

// OrdersListOptions controls paging and filtering for listing orders.
// Sort supports: "created_at", "total_cents"; Dir: "asc", "desc".
type OrdersListOptions struct {
	Limit  int
	Offset int
	UserID *string      // exact match; nil lists all (staff/admin)
	Status *OrderStatus // exact match
	Sort   string
	Dir    string
}

// ErrEmptyCart is returned when checkout is attempted with no cart lines.
var ErrEmptyCart = errors.New("cart is empty")

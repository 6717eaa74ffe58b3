package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxStockAlertNameLen = 255

// StockAlertRule is an inventory alert rule. Expression is a JMESPath
// boolean expression evaluated against the product document, e.g.
// `stock_quantity < `25`` or `active && stock_quantity == `0``.
type StockAlertRule struct {
	ID         string    `json:"id"                    db:"id"`
	Name       string    `json:"name"                  db:"name"`
	Expression string    `json:"expression"            db:"expression"`
	CategoryID *string   `json:"category_id,omitempty" db:"category_id"`
	Enabled    bool      `json:"enabled"               db:"enabled"`
	CreatedAt  time.Time `json:"created_at"            db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"            db:"updated_at"`
}

// StockAlert is one triggered alert for a product. The (rule, product)
// pair is unique while the alert is unresolved so repeated evaluation
// does not duplicate open alerts.
type StockAlert struct {
	ID            string     `json:"id"                    db:"id"`
	RuleID        string     `json:"rule_id"               db:"rule_id"`
	ProductID     string     `json:"product_id"            db:"product_id"`
	ProductName   string     `json:"product_name"          db:"product_name"`
	StockQuantity float64    `json:"stock_quantity"        db:"stock_quantity"`
	TriggeredAt   time.Time  `json:"triggered_at"          db:"triggered_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// CreateStockAlertRuleRequest represents parameters to create a rule.
type CreateStockAlertRuleRequest struct {
	Name       string  `json:"name"`
	Expression string  `json:"expression"`
	CategoryID *string `json:"category_id,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

// Validate validates CreateStockAlertRuleRequest. Expression syntax is
// checked by the alert service at compile time, not here.
func (r *CreateStockAlertRuleRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxStockAlertNameLen {
		return errors.New("name cannot exceed 255 characters")
	}
	if strings.TrimSpace(r.Expression) == "" {
		return errors.New("expression is required")
	}
	return nil
}

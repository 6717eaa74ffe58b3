package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bulkhaus/bulk-ui-api/internal/data/pgxutil"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

const cartItemColumns = `id, user_id, product_id, quantity, created_at, updated_at`

// CartRepo provides database operations for shopping carts. Each user
// has at most one cart row per product; adding an existing product
// replaces the stored quantity.
type CartRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCartRepo creates a new CartRepo with real time provider.
func NewCartRepo(db *sql.DB) *CartRepo {
	return &CartRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewCartRepoWithTimeProvider creates a new CartRepo with a custom time provider (useful for tests).
func NewCartRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *CartRepo {
	return &CartRepo{DB: db, timeProvider: tp}
}

// Upsert sets the quantity for a product in the user's cart, creating
// the row if absent.
func (r *CartRepo) Upsert(ctx context.Context, userID string, req *model.AddCartItemRequest) (*model.CartItem, error) {
	if req == nil {
		return nil, errors.New("add cart item request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	var out model.CartItem
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, product_id) DO UPDATE
			SET quantity = EXCLUDED.quantity,
			    updated_at = $4
			RETURNING `+cartItemColumns,
			userID, req.ProductID, req.Quantity, now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.CartItem])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return &out, nil
}

// ListLines retrieves the user's cart joined with current product data
// so totals always reflect live prices.
func (r *CartRepo) ListLines(ctx context.Context, userID string) ([]*model.CartLine, error) {
	var rowsOut []model.CartLine
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
			       p.name AS product_name, p.unit, p.price_cents
			FROM cart_items ci
			JOIN products p ON p.id = ci.product_id
			WHERE ci.user_id = $1
			ORDER BY ci.created_at ASC`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.CartLine])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}

	res := make([]*model.CartLine, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Remove deletes a single product from the user's cart. Returns false
// when the product was not in the cart.
func (r *CartRepo) Remove(ctx context.Context, userID, productID string) (bool, error) {
	var removed bool
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx,
			`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
			userID, productID,
		)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		return nil
	}); err != nil {
		return false, fmt.Errorf("failed to remove cart item: %w", err)
	}
	return removed, nil
}

// Clear empties the user's cart. Clearing an already-empty cart is not
// an error.
func (r *CartRepo) Clear(ctx context.Context, userID string) error {
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
		return err
	}); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

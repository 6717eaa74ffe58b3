package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bulkhaus/bulk-ui-api/internal/data/pgxutil"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

const orderColumns = `id, user_id, status, total_cents, shipping_note, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, product_name, unit, quantity, unit_price_cents`

// OrderRepo provides database operations for orders.
type OrderRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewOrderRepo creates a new OrderRepo with real time provider.
func NewOrderRepo(db *sql.DB) *OrderRepo {
	return &OrderRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewOrderRepoWithTimeProvider creates a new OrderRepo with a custom time provider (useful for tests).
func NewOrderRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *OrderRepo {
	return &OrderRepo{DB: db, timeProvider: tp}
}

// checkoutLine is the cart snapshot row read inside the checkout
// transaction, with product data joined and locked.
type checkoutLine struct {
	ProductID   string  `db:"product_id"`
	ProductName string  `db:"product_name"`
	Unit        string  `db:"unit"`
	Quantity    float64 `db:"quantity"`
	PriceCents  int64   `db:"price_cents"`
	Stock       float64 `db:"stock_quantity"`
}

// Checkout converts the user's cart into a pending order. Cart lines
// are read with the product rows locked, stock is decremented, order
// and item rows are written, and the cart is cleared, all within one
// transaction. Prices and names are snapshotted onto the items so
// later catalog edits do not rewrite history.
func (r *OrderRepo) Checkout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.Order, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}

	var shippingNote *string
	if req != nil {
		shippingNote = req.ShippingNote
	}
	now := r.timeProvider.Now().UTC()

	var out model.Order
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, err := tx.Query(ctx, `
				SELECT ci.product_id, p.name AS product_name, p.unit, ci.quantity, p.price_cents, p.stock_quantity
				FROM cart_items ci
				JOIN products p ON p.id = ci.product_id
				WHERE ci.user_id = $1
				ORDER BY ci.created_at ASC
				FOR UPDATE OF p`,
				userID,
			)
			if err != nil {
				return err
			}
			lines, err := pgx.CollectRows(rows, pgx.RowToStructByName[checkoutLine])
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return model.ErrEmptyCart
			}

			var total int64
			for _, l := range lines {
				if l.Stock < l.Quantity {
					return fmt.Errorf("%w: product %s", ErrInsufficientStock, l.ProductID)
				}
				total += int64(l.Quantity*float64(l.PriceCents) + 0.5)
			}

			orderRows, err := tx.Query(ctx, `
				INSERT INTO orders (user_id, status, total_cents, shipping_note, created_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING `+orderColumns,
				userID, model.OrderPending, total, shippingNote, now,
			)
			if err != nil {
				return err
			}
			out, err = pgx.CollectOneRow(orderRows, pgx.RowToStructByName[model.Order])
			if err != nil {
				return err
			}

			for _, l := range lines {
				if _, err = tx.Exec(ctx, `
					INSERT INTO order_items (order_id, product_id, product_name, unit, quantity, unit_price_cents)
					VALUES ($1, $2, $3, $4, $5, $6)`,
					out.ID, l.ProductID, l.ProductName, l.Unit, l.Quantity, l.PriceCents,
				); err != nil {
					return err
				}
				if _, err = tx.Exec(ctx, `
					UPDATE products
					SET stock_quantity = stock_quantity - $2, updated_at = $3
					WHERE id = $1`,
					l.ProductID, l.Quantity, now,
				); err != nil {
					return err
				}
			}

			_, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
			return err
		},
	})
	if txErr != nil {
		if errors.Is(txErr, model.ErrEmptyCart) || errors.Is(txErr, ErrInsufficientStock) {
			return nil, txErr
		}
		return nil, fmt.Errorf("failed to checkout: %w", txErr)
	}
	return &out, nil
}

// GetByID retrieves an order by ID.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var out model.Order
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Order])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &out, nil
}

// ListItems retrieves the line items for an order.
func (r *OrderRepo) ListItems(ctx context.Context, orderID string) ([]*model.OrderItem, error) {
	var rowsOut []model.OrderItem
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = $1 ORDER BY id ASC`,
			orderID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.OrderItem])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	res := make([]*model.OrderItem, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// List retrieves orders with filtering and pagination. Customers see
// their own orders (UserID filter); the back-office lists all.
func (r *OrderRepo) List(ctx context.Context, opts model.OrdersListOptions) ([]*model.Order, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	var conds []string
	var args []any
	if opts.UserID != nil {
		args = append(args, *opts.UserID)
		conds = append(conds, "user_id = $"+strconv.Itoa(len(args)))
	}
	if opts.Status != nil {
		args = append(args, *opts.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) +
		` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	var rowsOut []model.Order
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Order])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	res := make([]*model.Order, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// SetStatus transitions an order to a new status. The current status
// is read under lock so concurrent transitions serialize, and the
// transition is validated against the order lifecycle.
func (r *OrderRepo) SetStatus(ctx context.Context, id string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidOrderTransition, status)
	}

	var out model.Order
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			var current model.OrderStatus
			err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			if err != nil {
				return err
			}
			if !model.CanTransition(current, status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidOrderTransition, current, status)
			}

			rows, err := tx.Query(ctx, `
				UPDATE orders SET status = $2, updated_at = $3
				WHERE id = $1
				RETURNING `+orderColumns,
				id, status, r.timeProvider.Now().UTC(),
			)
			if err != nil {
				return err
			}
			out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Order])
			return err
		},
	})
	if txErr != nil {
		if errors.Is(txErr, ErrOrderNotFound) || errors.Is(txErr, ErrInvalidOrderTransition) {
			return nil, txErr
		}
		return nil, fmt.Errorf("failed to set order status: %w", txErr)
	}
	return &out, nil
}

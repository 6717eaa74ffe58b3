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

const productColumns = `id, name, description, category_id, unit, price_cents, stock_quantity, image_url, active, created_at, updated_at`

// ProductRepo provides database operations for catalog products.
type ProductRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProductRepo creates a new ProductRepo with real time provider.
func NewProductRepo(db *sql.DB) *ProductRepo {
	return &ProductRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewProductRepoWithTimeProvider creates a new ProductRepo with a custom time provider (useful for tests).
func NewProductRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProductRepo {
	return &ProductRepo{DB: db, timeProvider: tp}
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, errors.New("create product request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	var out model.Product
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO products (name, description, category_id, unit, price_cents, stock_quantity, image_url, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+productColumns,
			strings.TrimSpace(req.Name),
			req.Description,
			req.CategoryID,
			req.Unit,
			req.PriceCents,
			req.StockQuantity,
			req.ImageURL,
			active,
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Product])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var out model.Product
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Product])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &out, nil
}

// List retrieves products with filtering, sorting, and pagination for
// the storefront catalog.
func (r *ProductRepo) List(ctx context.Context, opts model.ProductsListOptions) ([]*model.Product, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	where, args := buildProductFilters(opts)
	query := `SELECT ` + productColumns + ` FROM products` + where +
		` ORDER BY ` + productSortColumn(opts.Sort) + ` ` + normalizeDir(opts.Dir) +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	var rowsOut []model.Product
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Product])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	res := make([]*model.Product, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates fields of a product.
func (r *ProductRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateProductRequest,
) (*model.Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Product
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Product])
			return e
		}
		args = append(args, id)
		query := "UPDATE products SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + productColumns
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Product])
		return e
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return &out, nil
}

// Delete removes a product. Returns false when no row matched.
func (r *ProductRepo) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	}); err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return deleted, nil
}

// AdjustStock atomically adds delta to a product's stock quantity.
// The WHERE guard keeps stock from going negative under concurrent
// checkouts; a zero-row result on an existing product means the
// remaining stock was insufficient.
func (r *ProductRepo) AdjustStock(ctx context.Context, id string, delta float64) (*model.Product, error) {
	var out model.Product
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity + $2, updated_at = $3
			WHERE id = $1 AND stock_quantity + $2 >= 0
			RETURNING `+productColumns,
			id, delta, r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Product])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	return &out, nil
}

func (r *ProductRepo) buildUpdateClause(req model.UpdateProductRequest) (string, []any) {
	var sets []string
	var args []any

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}

	if req.Name != nil {
		add("name", strings.TrimSpace(*req.Name))
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if req.CategoryID != nil {
		add("category_id", *req.CategoryID)
	}
	if req.Unit != nil {
		add("unit", *req.Unit)
	}
	if req.PriceCents != nil {
		add("price_cents", *req.PriceCents)
	}
	if req.StockQuantity != nil {
		add("stock_quantity", *req.StockQuantity)
	}
	if req.ImageURL != nil {
		add("image_url", *req.ImageURL)
	}
	if req.Active != nil {
		add("active", *req.Active)
	}
	if len(sets) == 0 {
		return "", nil
	}

	args = append(args, r.timeProvider.Now().UTC())
	sets = append(sets, "updated_at = $"+strconv.Itoa(len(args)))
	return strings.Join(sets, ", "), args
}

func buildProductFilters(opts model.ProductsListOptions) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		add("name ILIKE ?", "%"+strings.TrimSpace(*opts.Q)+"%")
	}
	if opts.CategoryID != nil {
		add("category_id = ?", *opts.CategoryID)
	}
	if opts.Active != nil {
		add("active = ?", *opts.Active)
	}
	if opts.MinPriceCents != nil {
		add("price_cents >= ?", *opts.MinPriceCents)
	}
	if opts.MaxPriceCents != nil {
		add("price_cents <= ?", *opts.MaxPriceCents)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productSortColumn(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "name":
		return "name"
	case "price_cents", "price":
		return "price_cents"
	default:
		return "created_at"
	}
}

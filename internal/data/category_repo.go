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
	apperrors "github.com/bulkhaus/bulk-ui-api/internal/errors"
)

const categoryColumns = `id, name, slug, description, created_at, updated_at`

// CategoryRepo provides database operations for catalog categories.
type CategoryRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewCategoryRepo creates a new CategoryRepo with real time provider.
func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewCategoryRepoWithTimeProvider creates a new CategoryRepo with a custom time provider (useful for tests).
func NewCategoryRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *CategoryRepo {
	return &CategoryRepo{DB: db, timeProvider: tp}
}

// Create inserts a new category. The slug is derived from the name when
// the request does not carry one.
func (r *CategoryRepo) Create(ctx context.Context, req *model.CreateCategoryRequest) (*model.Category, error) {
	if req == nil {
		return nil, errors.New("create category request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = model.Slugify(req.Name)
	}

	var out model.Category
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO categories (name, slug, description, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING `+categoryColumns,
			strings.TrimSpace(req.Name),
			slug,
			req.Description,
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Category])
		return err
	})
	if apperrors.IsUniqueViolation(err) {
		return nil, ErrCategorySlugExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &out, nil
}

// GetByID retrieves a category by ID.
func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*model.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
}

// GetBySlug retrieves a category by its URL slug.
func (r *CategoryRepo) GetBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return r.getOne(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
}

func (r *CategoryRepo) getOne(ctx context.Context, query string, arg any) (*model.Category, error) {
	var out model.Category
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Category])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &out, nil
}

// List retrieves all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]*model.Category, error) {
	var rowsOut []model.Category
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Category])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	res := make([]*model.Category, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// Update updates fields of a category.
func (r *CategoryRepo) Update(
	ctx context.Context,
	id string,
	req model.UpdateCategoryRequest,
) (*model.Category, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Category
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Category])
			return e
		}
		args = append(args, id)
		query := "UPDATE categories SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + categoryColumns
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Category])
		return e
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if apperrors.IsUniqueViolation(err) {
		return nil, ErrCategorySlugExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return &out, nil
}

// Delete removes a category. Returns false when no row matched.
// Products referencing the category keep it alive through the foreign
// key; that surfaces as a constraint error from the driver.
func (r *CategoryRepo) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	}); err != nil {
		return false, fmt.Errorf("delete category: %w", apperrors.MapDBError(err))
	}
	return deleted, nil
}

func (r *CategoryRepo) buildUpdateClause(req model.UpdateCategoryRequest) (string, []any) {
	var sets []string
	var args []any

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}

	if req.Name != nil {
		add("name", strings.TrimSpace(*req.Name))
	}
	if req.Slug != nil {
		add("slug", strings.TrimSpace(*req.Slug))
	}
	if req.Description != nil {
		add("description", *req.Description)
	}
	if len(sets) == 0 {
		return "", nil
	}

	args = append(args, r.timeProvider.Now().UTC())
	sets = append(sets, "updated_at = $"+strconv.Itoa(len(args)))
	return strings.Join(sets, ", "), args
}

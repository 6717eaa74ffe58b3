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
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

const profileColumns = `id, email, display_name, phone, role, suspended, created_at, updated_at`

// ProfileRepo provides database operations for profiles. It implements
// both ports.ProfileStore (reconciler surface) and core.ProfileDirectory
// (back-office surface).
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider (useful for tests).
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

// GetByID retrieves a profile by identity ID.
// A zero-row result is ports.ErrProfileNotFound; any other failure is a
// transport error. Callers must not conflate the two.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("profile id is required")
	}

	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Profile])
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &out, nil
}

// Insert inserts a new profile row. A uniqueness violation on the
// identity ID is returned as ports.ErrProfileExists so the reconciler
// can treat it as "row present" and re-fetch.
func (r *ProfileRepo) Insert(ctx context.Context, req *model.CreateProfileRequest) (*model.Profile, error) {
	if req == nil {
		return nil, errors.New("create profile request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	createdAt := r.timeProvider.Now().UTC()
	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO profiles (id, email, display_name, phone, role, suspended, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6)
			RETURNING `+profileColumns,
			strings.TrimSpace(req.ID),
			strings.TrimSpace(req.Email),
			req.DisplayName,
			req.Phone,
			req.Role,
			createdAt,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Profile])
		return err
	})
	if apperrors.IsUniqueViolation(err) {
		return nil, ports.ErrProfileExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}
	return &out, nil
}

// UpdateByID applies a partial update and returns the updated row.
func (r *ProfileRepo) UpdateByID(
	ctx context.Context,
	id string,
	req model.UpdateProfileRequest,
) (*model.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		setClause, args := r.buildUpdateClause(req)
		if setClause == "" {
			rows, err := conn.Query(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
			if err != nil {
				return err
			}
			defer rows.Close()
			var e error
			out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Profile])
			return e
		}
		args = append(args, id)
		query := "UPDATE profiles SET " + setClause +
			" WHERE id = $" + strconv.Itoa(len(args)) +
			" RETURNING " + profileColumns
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		var e error
		out, e = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Profile])
		return e
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ports.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &out, nil
}

// List retrieves profiles with paging and filtering for the back-office.
func (r *ProfileRepo) List(ctx context.Context, opts model.ProfilesListOptions) ([]*model.Profile, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := max(opts.Offset, 0)

	where, args := buildProfileFilters(opts)
	query := `SELECT ` + profileColumns + ` FROM profiles` + where +
		` ORDER BY ` + profileSortColumn(opts.Sort) + ` ` + normalizeDir(opts.Dir) +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	var rowsOut []model.Profile
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.Profile])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	res := make([]*model.Profile, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

func (r *ProfileRepo) buildUpdateClause(req model.UpdateProfileRequest) (string, []any) {
	var sets []string
	var args []any

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}

	if req.DisplayName != nil {
		add("display_name", *req.DisplayName)
	}
	if req.Phone != nil {
		add("phone", *req.Phone)
	}
	if req.Role != nil {
		add("role", *req.Role)
	}
	if req.Suspended != nil {
		add("suspended", *req.Suspended)
	}
	if len(sets) == 0 {
		return "", nil
	}

	args = append(args, r.timeProvider.Now().UTC())
	sets = append(sets, "updated_at = $"+strconv.Itoa(len(args)))
	return strings.Join(sets, ", "), args
}

func buildProfileFilters(opts model.ProfilesListOptions) (string, []any) {
	var conds []string
	var args []any

	if opts.Q != nil && strings.TrimSpace(*opts.Q) != "" {
		args = append(args, "%"+strings.TrimSpace(*opts.Q)+"%")
		p := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(email ILIKE "+p+" OR display_name ILIKE "+p+")")
	}
	if opts.Role != nil {
		args = append(args, *opts.Role)
		conds = append(conds, "role = $"+strconv.Itoa(len(args)))
	}
	if opts.Suspended != nil {
		args = append(args, *opts.Suspended)
		conds = append(conds, "suspended = $"+strconv.Itoa(len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func profileSortColumn(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "email":
		return "email"
	default:
		return "created_at"
	}
}

// normalizeDir clamps a sort direction to "asc" or "desc".
func normalizeDir(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

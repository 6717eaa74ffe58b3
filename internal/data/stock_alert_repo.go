package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bulkhaus/bulk-ui-api/internal/data/pgxutil"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

const stockAlertRuleColumns = `id, name, expression, category_id, enabled, created_at, updated_at`

const stockAlertColumns = `id, rule_id, product_id, product_name, stock_quantity, triggered_at, resolved_at`

// StockAlertRepo provides database operations for inventory alert rules
// and triggered alerts.
type StockAlertRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewStockAlertRepo creates a new StockAlertRepo with real time provider.
func NewStockAlertRepo(db *sql.DB) *StockAlertRepo {
	return &StockAlertRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewStockAlertRepoWithTimeProvider creates a new StockAlertRepo with a custom time provider (useful for tests).
func NewStockAlertRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *StockAlertRepo {
	return &StockAlertRepo{DB: db, timeProvider: tp}
}

// CreateRule inserts a new alert rule.
func (r *StockAlertRepo) CreateRule(
	ctx context.Context,
	req *model.CreateStockAlertRuleRequest,
) (*model.StockAlertRule, error) {
	if req == nil {
		return nil, errors.New("create stock alert rule request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.StockAlertRule
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO stock_alert_rules (name, expression, category_id, enabled, created_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+stockAlertRuleColumns,
			strings.TrimSpace(req.Name),
			strings.TrimSpace(req.Expression),
			req.CategoryID,
			req.Enabled,
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.StockAlertRule])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to create stock alert rule: %w", err)
	}
	return &out, nil
}

// ListRules retrieves alert rules, optionally only enabled ones.
func (r *StockAlertRepo) ListRules(ctx context.Context, enabledOnly bool) ([]*model.StockAlertRule, error) {
	query := `SELECT ` + stockAlertRuleColumns + ` FROM stock_alert_rules`
	if enabledOnly {
		query += ` WHERE enabled`
	}
	query += ` ORDER BY created_at ASC`

	var rowsOut []model.StockAlertRule
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.StockAlertRule])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list stock alert rules: %w", err)
	}

	res := make([]*model.StockAlertRule, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// DeleteRule removes an alert rule. Returns false when no row matched.
func (r *StockAlertRepo) DeleteRule(ctx context.Context, id string) (bool, error) {
	var deleted bool
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM stock_alert_rules WHERE id = $1`, id)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected() > 0
		return nil
	}); err != nil {
		return false, fmt.Errorf("failed to delete stock alert rule: %w", err)
	}
	return deleted, nil
}

// RecordAlert opens an alert for (rule, product). The partial unique
// index on open alerts makes this idempotent: while an alert for the
// pair is unresolved, re-recording reports created=false instead of
// stacking duplicates.
func (r *StockAlertRepo) RecordAlert(ctx context.Context, alert *model.StockAlert) (*model.StockAlert, bool, error) {
	if alert == nil {
		return nil, false, errors.New("stock alert is required")
	}

	var out model.StockAlert
	created := false
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO stock_alerts (rule_id, product_id, product_name, stock_quantity, triggered_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (rule_id, product_id) WHERE resolved_at IS NULL DO NOTHING
			RETURNING `+stockAlertColumns,
			alert.RuleID,
			alert.ProductID,
			alert.ProductName,
			alert.StockQuantity,
			r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.StockAlert])
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict path: fetch the already-open alert.
			existing, qErr := conn.Query(ctx, `
				SELECT `+stockAlertColumns+`
				FROM stock_alerts
				WHERE rule_id = $1 AND product_id = $2 AND resolved_at IS NULL`,
				alert.RuleID, alert.ProductID,
			)
			if qErr != nil {
				return qErr
			}
			out, qErr = pgx.CollectOneRow(existing, pgx.RowToStructByName[model.StockAlert])
			return qErr
		}
		if err == nil {
			created = true
		}
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to record stock alert: %w", err)
	}
	return &out, created, nil
}

// ListOpenAlerts retrieves unresolved alerts, most recent first.
func (r *StockAlertRepo) ListOpenAlerts(ctx context.Context, limit, offset int) ([]*model.StockAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	offset = max(offset, 0)

	var rowsOut []model.StockAlert
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+stockAlertColumns+`
			FROM stock_alerts
			WHERE resolved_at IS NULL
			ORDER BY triggered_at DESC
			LIMIT $1 OFFSET $2`,
			limit, offset,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		rowsOut, err = pgx.CollectRows(rows, pgx.RowToStructByName[model.StockAlert])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list open stock alerts: %w", err)
	}

	res := make([]*model.StockAlert, len(rowsOut))
	for i := range rowsOut {
		res[i] = &rowsOut[i]
	}
	return res, nil
}

// ResolveAlert closes an open alert. Returns false when the alert does
// not exist or is already resolved.
func (r *StockAlertRepo) ResolveAlert(ctx context.Context, id string) (bool, error) {
	var resolved bool
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, `
			UPDATE stock_alerts SET resolved_at = $2
			WHERE id = $1 AND resolved_at IS NULL`,
			id, r.timeProvider.Now().UTC(),
		)
		if err != nil {
			return err
		}
		resolved = tag.RowsAffected() > 0
		return nil
	}); err != nil {
		return false, fmt.Errorf("failed to resolve stock alert: %w", err)
	}
	return resolved, nil
}

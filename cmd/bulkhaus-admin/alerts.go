package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/data"
	"github.com/bulkhaus/bulk-ui-api/internal/service"
)

const defaultAlertCommandTimeout = 2 * time.Minute

type scanAlertsOptions struct {
	Timeout time.Duration
}

type listAlertsOptions struct {
	Timeout time.Duration
	Limit   int
	Offset  int
}

func runScanAlerts(cmdCtx *commandContext, args []string) error {
	opts, err := parseScanAlertsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		alertRepo := data.NewStockAlertRepo(db)
		svc := service.NewStockAlertService(service.StockAlertServiceOptions{
			Alerts:   alertRepo,
			Products: data.NewProductRepo(db),
			Logger:   cmdCtx.Logger,
		})

		before, err := countOpenAlerts(ctx, alertRepo)
		if err != nil {
			return err
		}

		cmdCtx.Logger.Info("evaluating stock alert rules")
		if scanErr := svc.Scan(ctx); scanErr != nil {
			return fmt.Errorf("scan alerts: %w", scanErr)
		}

		after, err := countOpenAlerts(ctx, alertRepo)
		if err != nil {
			return err
		}

		cmdCtx.Logger.Info("scan completed",
			"open_alerts", after,
			"newly_triggered", max(0, after-before))
		return nil
	})
}

func runListOpenAlerts(cmdCtx *commandContext, args []string) error {
	opts, err := parseListAlertsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		alertRepo := data.NewStockAlertRepo(db)
		alerts, listErr := alertRepo.ListOpenAlerts(ctx, opts.Limit, opts.Offset)
		if listErr != nil {
			return fmt.Errorf("list open alerts: %w", listErr)
		}

		if len(alerts) == 0 {
			return writeln(os.Stdout, "No open stock alerts.")
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if _, werr := fmt.Fprintln(tw, "ID\tPRODUCT\tSTOCK\tRULE\tTRIGGERED"); werr != nil {
			return fmt.Errorf("write header: %w", werr)
		}
		for _, a := range alerts {
			if _, werr := fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%s\n",
				a.ID,
				a.ProductName,
				a.StockQuantity,
				a.RuleID,
				a.TriggeredAt.Format(time.RFC3339),
			); werr != nil {
				return fmt.Errorf("write alert row: %w", werr)
			}
		}
		if ferr := tw.Flush(); ferr != nil {
			return fmt.Errorf("flush table: %w", ferr)
		}
		return nil
	})
}

// countOpenAlerts pages through open alerts to get a total. Fine at
// admin-CLI scale.
func countOpenAlerts(ctx context.Context, repo *data.StockAlertRepo) (int, error) {
	const page = 500
	total := 0
	for offset := 0; ; offset += page {
		alerts, err := repo.ListOpenAlerts(ctx, page, offset)
		if err != nil {
			return 0, fmt.Errorf("count open alerts: %w", err)
		}
		total += len(alerts)
		if len(alerts) < page {
			return total, nil
		}
	}
}

func parseScanAlertsFlags(args []string) (scanAlertsOptions, error) {
	fs := flag.NewFlagSet("scan-alerts", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := scanAlertsOptions{
		Timeout: defaultAlertCommandTimeout,
	}

	fs.DurationVar(&opts.Timeout, "timeout", defaultAlertCommandTimeout, "Maximum duration to wait for the scan")

	if err := fs.Parse(args); err != nil {
		return scanAlertsOptions{}, err
	}

	if opts.Timeout <= 0 {
		return scanAlertsOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

func parseListAlertsFlags(args []string) (listAlertsOptions, error) {
	fs := flag.NewFlagSet("list-open-alerts", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listAlertsOptions{
		Timeout: defaultAlertCommandTimeout,
		Limit:   50,
	}

	fs.DurationVar(&opts.Timeout, "timeout", defaultAlertCommandTimeout, "Maximum duration to wait for the listing")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum number of alerts to list")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of alerts to skip")

	if err := fs.Parse(args); err != nil {
		return listAlertsOptions{}, err
	}

	if opts.Limit <= 0 {
		return listAlertsOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listAlertsOptions{}, errors.New("--offset cannot be negative")
	}

	return opts, nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/bootstrap"
)

const (
	sessionScanPattern    = "session:*"
	sessionScanBatch      = 200
	defaultSessionTimeout = time.Minute
)

type clearSessionsOptions struct {
	Timeout time.Duration
	DryRun  bool
	Yes     bool
}

func runClearSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseClearSessionsFlags(args)
	if err != nil {
		return err
	}

	if !opts.DryRun {
		if confirmErr := confirmDestructive(opts.Yes, "delete all HTTP sessions", "the configured Redis instance"); confirmErr != nil {
			return confirmErr
		}
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", cerr)
		}
	}()

	var cursor uint64
	deleted := 0
	for {
		keys, next, scanErr := client.Scan(ctx, cursor, sessionScanPattern, sessionScanBatch).Result()
		if scanErr != nil {
			return fmt.Errorf("scan sessions: %w", scanErr)
		}

		if len(keys) > 0 {
			if opts.DryRun {
				for _, key := range keys {
					if werr := writeln(os.Stdout, key); werr != nil {
						return werr
					}
				}
				deleted += len(keys)
			} else {
				removed, delErr := client.Del(ctx, keys...).Result()
				if delErr != nil {
					return fmt.Errorf("delete sessions: %w", delErr)
				}
				deleted += int(removed)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if opts.DryRun {
		cmdCtx.Logger.Info("dry run complete", "sessions_found", deleted)
	} else {
		cmdCtx.Logger.Info("sessions cleared", "sessions_deleted", deleted)
	}
	return nil
}

func parseClearSessionsFlags(args []string) (clearSessionsOptions, error) {
	fs := flag.NewFlagSet("clear-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := clearSessionsOptions{
		Timeout: defaultSessionTimeout,
	}

	fs.DurationVar(&opts.Timeout, "timeout", defaultSessionTimeout, "Maximum duration to wait for the operation")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "List matching session keys without deleting them")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip the interactive confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return clearSessionsOptions{}, err
	}

	if opts.Timeout <= 0 {
		return clearSessionsOptions{}, errors.New("--timeout must be greater than zero")
	}

	return opts, nil
}

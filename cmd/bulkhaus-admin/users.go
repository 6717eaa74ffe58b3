package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bulkhaus/bulk-ui-api/internal/data"
	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

const defaultUserCommandTimeout = time.Minute

type promoteUserOptions struct {
	Timeout time.Duration
	Email   string
	Role    domainauth.Role
}

// runPromoteUser changes a profile's role directly in the database. The
// HTTP role endpoint requires an existing admin session, so this is how
// the first admin of a deployment gets created.
func runPromoteUser(cmdCtx *commandContext, args []string) error {
	opts, err := parsePromoteUserFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		repo := data.NewProfileRepo(db)

		profile, err := findProfileByEmail(ctx, repo, opts.Email)
		if err != nil {
			return err
		}

		if profile.Role == opts.Role {
			cmdCtx.Logger.Info("profile already has role",
				"email", profile.Email,
				"role", string(profile.Role))
			return nil
		}

		role := opts.Role
		updated, err := repo.UpdateByID(ctx, profile.ID, model.UpdateProfileRequest{Role: &role})
		if err != nil {
			return fmt.Errorf("update profile role: %w", err)
		}

		cmdCtx.Logger.Info("profile role changed",
			"email", updated.Email,
			"previous_role", string(profile.Role),
			"role", string(updated.Role))
		return nil
	})
}

func findProfileByEmail(ctx context.Context, repo *data.ProfileRepo, email string) (*model.Profile, error) {
	q := email
	profiles, err := repo.List(ctx, model.ProfilesListOptions{Q: &q, Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("look up profile: %w", err)
	}

	// The filter is a substring match, so pin to the exact address.
	for _, p := range profiles {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no profile with email %q", email)
}

func parsePromoteUserFlags(args []string) (promoteUserOptions, error) {
	fs := flag.NewFlagSet("promote-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := promoteUserOptions{
		Timeout: defaultUserCommandTimeout,
	}
	roleName := string(domainauth.RoleStaff)

	fs.DurationVar(&opts.Timeout, "timeout", defaultUserCommandTimeout, "Maximum duration to wait for the operation")
	fs.StringVar(&opts.Email, "email", "", "Email address of the profile to change (required)")
	fs.StringVar(&roleName, "role", roleName, "Target role: customer, staff, or admin")

	if err := fs.Parse(args); err != nil {
		return promoteUserOptions{}, err
	}

	opts.Email = strings.TrimSpace(opts.Email)
	if opts.Email == "" {
		return promoteUserOptions{}, errors.New("--email is required")
	}
	if opts.Timeout <= 0 {
		return promoteUserOptions{}, errors.New("--timeout must be greater than zero")
	}

	switch role := domainauth.Role(strings.ToLower(strings.TrimSpace(roleName))); role {
	case domainauth.RoleCustomer, domainauth.RoleStaff, domainauth.RoleAdmin:
		opts.Role = role
	default:
		return promoteUserOptions{}, fmt.Errorf("unknown role %q", roleName)
	}

	return opts, nil
}

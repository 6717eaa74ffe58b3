package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/metrics"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/notify"
	"github.com/bulkhaus/bulk-ui-api/internal/observability/statsd"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

const defaultReadBackDelay = 500 * time.Millisecond

// ProfileReconcilerOptions groups dependencies for ProfileReconciler.
type ProfileReconcilerOptions struct {
	Profiles ports.ProfileStore
	State    *AuthState
	Notifier notify.Sink // optional; failures surface here as ops events
	Metrics  statsd.Sink // optional
	Logger   *slog.Logger
	// ReadBackDelay is the pause before the authoritative re-read after
	// an optimistic insert. Default 500ms; tests shorten it.
	ReadBackDelay time.Duration
}

// ProfileReconciler converges the local profile state with the
// profiles table for the signed-in identity. It never creates more
// than one row per identity; the table's primary key is the only lock.
type ProfileReconciler struct {
	profiles      ports.ProfileStore
	state         *AuthState
	notifier      notify.Sink
	metrics       statsd.Sink
	logger        *slog.Logger
	readBackDelay time.Duration
}

// NewProfileReconciler constructs a new ProfileReconciler.
func NewProfileReconciler(opts ProfileReconcilerOptions) *ProfileReconciler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "profile_reconciler")
	}
	delay := opts.ReadBackDelay
	if delay == 0 {
		delay = defaultReadBackDelay
	}
	return &ProfileReconciler{
		profiles:      opts.Profiles,
		state:         opts.State,
		notifier:      opts.Notifier,
		metrics:       opts.Metrics,
		logger:        logger,
		readBackDelay: delay,
	}
}

// Reconcile resolves the profile row for ident and mirrors it into the
// auth state. profileAttempted is set up front: even a failed attempt
// counts as attempted, so gating logic stops reporting "pending".
//
// Outcomes:
//   - row present: state profile set from the row
//   - row absent: a default row is inserted; losing the insert race to
//     a concurrent reconciliation is resolved by re-fetching
//   - transport error: reported, previously loaded profile kept
func (r *ProfileReconciler) Reconcile(ctx context.Context, ident domainauth.Identity) {
	r.state.markProfileAttempted()
	start := time.Now()

	profile, err := r.profiles.GetByID(ctx, ident.UserID)
	switch {
	case err == nil:
		r.state.mergeProfile(profile)
		metrics.EmitReconcile(r.metrics, metrics.ReconcileMetric{Outcome: "merged", Duration: time.Since(start)})
	case errors.Is(err, ports.ErrProfileNotFound):
		r.createDefault(ctx, ident)
		metrics.EmitReconcile(r.metrics, metrics.ReconcileMetric{Outcome: "created", Duration: time.Since(start)})
	default:
		r.report(ctx, "profile lookup failed", err, ident.UserID)
		metrics.EmitReconcile(r.metrics, metrics.ReconcileMetric{Outcome: "failed", Err: err, Duration: time.Since(start)})
	}
}

// createDefault inserts the bootstrap row derived from the identity's
// metadata, then schedules the authoritative re-read.
func (r *ProfileReconciler) createDefault(ctx context.Context, ident domainauth.Identity) {
	req := DefaultProfile(ident)

	inserted, err := r.profiles.Insert(ctx, req)
	switch {
	case err == nil:
		// Optimistic value first; the delayed re-read supersedes it with
		// whatever the database actually holds.
		r.state.mergeProfile(inserted)
		r.scheduleReadBack(ctx, ident.UserID)
	case errors.Is(err, ports.ErrProfileExists):
		// A concurrent reconciliation won the race; the row is there.
		refetched, refetchErr := r.profiles.GetByID(ctx, ident.UserID)
		if refetchErr != nil {
			r.report(ctx, "profile re-fetch after insert race failed", refetchErr, ident.UserID)
			return
		}
		r.state.mergeProfile(refetched)
	default:
		r.report(ctx, "profile bootstrap insert failed", err, ident.UserID)
	}
}

// scheduleReadBack re-reads the row after a short delay so triggers or
// column defaults applied by the database replace the optimistic copy.
func (r *ProfileReconciler) scheduleReadBack(ctx context.Context, userID string) {
	go func() {
		timer := time.NewTimer(r.readBackDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		fresh, err := r.profiles.GetByID(ctx, userID)
		if err != nil {
			r.logger.WarnContext(ctx, "authoritative profile re-read failed",
				"user_id", userID, "err", err)
			return
		}
		r.state.mergeProfile(fresh)
	}()
}

func (r *ProfileReconciler) report(ctx context.Context, msg string, err error, userID string) {
	r.logger.ErrorContext(ctx, msg, "user_id", userID, "err", err)
	if r.notifier == nil {
		return
	}
	notifyErr := r.notifier.SendOpsEvent(ctx, notify.OpsEventPayload{
		Source:     "profile_reconciler",
		Summary:    msg,
		Detail:     err.Error(),
		Severity:   notify.SeverityWarning,
		OccurredAt: time.Now(),
		Metadata:   map[string]string{"user_id": userID},
	})
	if notifyErr != nil {
		r.logger.WarnContext(ctx, "ops notification failed", "err", notifyErr)
	}
}

// DefaultProfile builds the bootstrap profile row for a fresh
// identity. Metadata is a one-time hint: role defaults to customer,
// display name falls back to the email local-part, phone stays null
// when absent.
func DefaultProfile(ident domainauth.Identity) *model.CreateProfileRequest {
	req := &model.CreateProfileRequest{
		ID:    ident.UserID,
		Email: ident.Email,
		Role:  domainauth.ParseRole(ident.Metadata.Role),
	}

	if name := strings.TrimSpace(ident.Metadata.FullName); name != "" {
		req.DisplayName = &name
	} else if local := emailLocalPart(ident.Email); local != "" {
		req.DisplayName = &local
	}

	if phone := strings.TrimSpace(ident.Metadata.Phone); phone != "" {
		req.Phone = &phone
	}

	return req
}

func emailLocalPart(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return ""
	}
	return email[:at]
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

const reconcileQueueSize = 16

// SessionListenerOptions groups dependencies for SessionListener.
type SessionListenerOptions struct {
	Provider   ports.IdentityProvider
	State      *AuthState
	Reconciler *ProfileReconciler
	Logger     *slog.Logger
}

// SessionListener consumes identity-provider session events and keeps
// the auth state converged. Event handling happens in two stages: the
// consumer goroutine mirrors session state synchronously in event
// order, then hands profile reconciliation to a queue drained by a
// single worker, so a slow database read never delays the next event.
type SessionListener struct {
	provider   ports.IdentityProvider
	state      *AuthState
	reconciler *ProfileReconciler
	logger     *slog.Logger

	mu        sync.Mutex
	attached  bool
	cancelSub func()
	cancelCtx context.CancelFunc
	events    chan domainauth.Event
	tasks     chan domainauth.Identity
	done      chan struct{}
	workDone  chan struct{}
}

// NewSessionListener constructs a new SessionListener.
func NewSessionListener(opts SessionListenerOptions) *SessionListener {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "session_listener")
	}
	return &SessionListener{
		provider:   opts.Provider,
		state:      opts.State,
		reconciler: opts.Reconciler,
		logger:     logger,
	}
}

// Attach subscribes to provider events and performs the one-time
// current-session check. When a session already exists (process restart
// with a live remote session), the profile is reconciled synchronously
// before loading clears, so the first snapshot readers see is settled.
func (l *SessionListener) Attach(ctx context.Context) error {
	l.mu.Lock()
	if l.attached {
		l.mu.Unlock()
		return errors.New("session listener already attached")
	}
	l.attached = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	l.cancelCtx = cancel
	l.events = make(chan domainauth.Event, reconcileQueueSize)
	l.tasks = make(chan domainauth.Identity, reconcileQueueSize)
	l.done = make(chan struct{})
	l.workDone = make(chan struct{})
	l.cancelSub = l.provider.Subscribe(l.events)
	l.mu.Unlock()

	l.state.setAttached(true)

	go l.consume(runCtx)
	go l.work(runCtx)

	ident, err := l.provider.CurrentSession(ctx)
	if err != nil {
		l.state.setLoading(false)
		return fmt.Errorf("current session check: %w", err)
	}
	if ident != nil {
		l.state.setIdentity(ident)
		// Reconcile under the listener's own context so the delayed
		// read-back it may schedule is stopped by Detach, not left
		// running on the caller's context.
		l.reconciler.Reconcile(runCtx, *ident)
	}
	l.state.setLoading(false)
	return nil
}

// Detach cancels the subscription and stops both goroutines. After it
// returns no further state writes happen on behalf of this listener.
func (l *SessionListener) Detach() {
	l.mu.Lock()
	if !l.attached {
		l.mu.Unlock()
		return
	}
	l.attached = false
	cancelSub := l.cancelSub
	cancelCtx := l.cancelCtx
	done := l.done
	workDone := l.workDone
	l.mu.Unlock()

	cancelSub()
	cancelCtx()
	<-done
	<-workDone
}

// Loading reports whether the initial session check is still pending.
func (l *SessionListener) Loading() bool {
	return l.state.Loading()
}

// consume mirrors each event into the auth state in arrival order and
// enqueues reconciliation where a session is present.
func (l *SessionListener) consume(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.events:
			l.handleEvent(ctx, ev)
		}
	}
}

func (l *SessionListener) handleEvent(ctx context.Context, ev domainauth.Event) {
	switch ev.Kind {
	case domainauth.EventSignedOut:
		l.state.clearSession()
	case domainauth.EventSignedIn, domainauth.EventTokenRefreshed, domainauth.EventUserUpdated:
		if !ev.HasSession() {
			l.logger.WarnContext(ctx, "session event without identity", "kind", ev.Kind)
			return
		}
		l.state.setIdentity(ev.Identity)
		l.enqueue(ctx, *ev.Identity)
	default:
		l.logger.WarnContext(ctx, "unknown session event", "kind", ev.Kind)
	}
}

// enqueue defers reconciliation to the worker. A full queue drops the
// task; the identity mirror already happened and a later event for the
// same user will reconcile again.
func (l *SessionListener) enqueue(ctx context.Context, ident domainauth.Identity) {
	select {
	case l.tasks <- ident:
	default:
		l.logger.WarnContext(ctx, "reconcile queue full, dropping task", "user_id", ident.UserID)
	}
}

// work drains the reconciliation queue one task at a time.
func (l *SessionListener) work(ctx context.Context) {
	defer close(l.workDone)

	for {
		select {
		case <-ctx.Done():
			return
		case ident := <-l.tasks:
			l.reconciler.Reconcile(ctx, ident)
		}
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	mockauth "github.com/bulkhaus/bulk-ui-api/internal/mocks/auth"
)

type listenerFixture struct {
	provider *mockauth.FakeIdentityProvider
	profiles *mockauth.MemoryProfileStore
	state    *AuthState
	listener *SessionListener
}

func newListenerFixture() *listenerFixture {
	f := &listenerFixture{
		provider: &mockauth.FakeIdentityProvider{},
		profiles: mockauth.NewMemoryProfileStore(),
		state:    NewAuthState(),
	}
	reconciler := newTestReconciler(f.profiles, f.state)
	f.listener = NewSessionListener(SessionListenerOptions{
		Provider:   f.provider,
		State:      f.state,
		Reconciler: reconciler,
	})
	return f
}

func TestAttachWithoutSessionSettlesUnauthenticated(t *testing.T) {
	f := newListenerFixture()

	require.NoError(t, f.listener.Attach(context.Background()))
	defer f.listener.Detach()

	snap := f.state.Snapshot()
	require.Equal(t, PhaseUnauthenticated, snap.Phase())
	require.False(t, f.listener.Loading())
}

func TestAttachRecoversExistingSessionSynchronously(t *testing.T) {
	f := newListenerFixture()
	ident := testIdentity("user-1", "ada@example.com")
	f.provider.CurrentSessionFunc = func(context.Context) (*domainauth.Identity, error) {
		return &ident, nil
	}

	require.NoError(t, f.listener.Attach(context.Background()))
	defer f.listener.Detach()

	// The profile must be settled by the time Attach returns; readers
	// never observe the loading phase resolving into a half-state.
	snap := f.state.Snapshot()
	require.Equal(t, PhaseAuthenticatedWithProfile, snap.Phase())
	require.Equal(t, "user-1", snap.Profile.ID)
}

func TestAttachCurrentSessionFailureClearsLoading(t *testing.T) {
	f := newListenerFixture()
	f.provider.CurrentSessionFunc = func(context.Context) (*domainauth.Identity, error) {
		return nil, errors.New("identity service unreachable")
	}

	err := f.listener.Attach(context.Background())
	require.Error(t, err)
	defer f.listener.Detach()

	require.False(t, f.listener.Loading())
	require.Equal(t, PhaseUnauthenticated, f.state.Snapshot().Phase())
}

func TestDoubleAttachRejected(t *testing.T) {
	f := newListenerFixture()
	require.NoError(t, f.listener.Attach(context.Background()))
	defer f.listener.Detach()

	require.Error(t, f.listener.Attach(context.Background()))
}

func TestSignedInEventReconcilesProfile(t *testing.T) {
	f := newListenerFixture()
	require.NoError(t, f.listener.Attach(context.Background()))
	defer f.listener.Detach()

	ident := testIdentity("user-2", "bob@example.com")
	f.provider.Publish(domainauth.Event{Kind: domainauth.EventSignedIn, Identity: &ident})

	require.Eventually(t, func() bool {
		return f.state.Snapshot().Phase() == PhaseAuthenticatedWithProfile
	}, time.Second, 10*time.Millisecond)

	snap := f.state.Snapshot()
	require.Equal(t, "user-2", snap.Identity.UserID)
	require.Equal(t, "user-2", snap.Profile.ID)
}

func TestSignedOutEventClearsState(t *testing.T) {
	f := newListenerFixture()
	require.NoError(t, f.listener.Attach(context.Background()))
	defer f.listener.Detach()

	ident := testIdentity("user-3", "c@example.com")
	f.provider.Publish(domainauth.Event{Kind: domainauth.EventSignedIn, Identity: &ident})
	require.Eventually(t, func() bool {
		return f.state.Snapshot().IsAuthenticated()
	}, time.Second, 10*time.Millisecond)

	f.provider.Publish(domainauth.Event{Kind: domainauth.EventSignedOut})
	require.Eventually(t, func() bool {
		return f.state.Snapshot().Phase() == PhaseUnauthenticated
	}, time.Second, 10*time.Millisecond)
}

func TestTokenRefreshUpdatesIdentity(t *testing.T) {
	f := newListenerFixture()
	require.NoError(t, f.listener.Attach(context.Background()))
	defer f.listener.Detach()

	ident := testIdentity("user-4", "d@example.com")
	f.provider.Publish(domainauth.Event{Kind: domainauth.EventSignedIn, Identity: &ident})
	require.Eventually(t, func() bool {
		return f.state.Snapshot().IsAuthenticated()
	}, time.Second, 10*time.Millisecond)

	refreshed := ident
	refreshed.ExpiresAt = ident.ExpiresAt.Add(time.Hour)
	f.provider.Publish(domainauth.Event{Kind: domainauth.EventTokenRefreshed, Identity: &refreshed})

	require.Eventually(t, func() bool {
		snap := f.state.Snapshot()
		return snap.Identity != nil && snap.Identity.ExpiresAt.Equal(refreshed.ExpiresAt)
	}, time.Second, 10*time.Millisecond)
}

func TestSignedInEventWithoutIdentityIgnored(t *testing.T) {
	f := newListenerFixture()
	require.NoError(t, f.listener.Attach(context.Background()))
	defer f.listener.Detach()

	f.provider.Publish(domainauth.Event{Kind: domainauth.EventSignedIn})

	// Give the consumer a beat; the state must remain unauthenticated.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, PhaseUnauthenticated, f.state.Snapshot().Phase())
}

func TestDetachStopsEventDelivery(t *testing.T) {
	f := newListenerFixture()
	require.NoError(t, f.listener.Attach(context.Background()))
	f.listener.Detach()

	ident := testIdentity("user-5", "e@example.com")
	f.provider.Publish(domainauth.Event{Kind: domainauth.EventSignedIn, Identity: &ident})

	time.Sleep(20 * time.Millisecond)
	require.False(t, f.state.Snapshot().IsAuthenticated())
}

func TestDetachStopsPendingReadBack(t *testing.T) {
	provider := &mockauth.FakeIdentityProvider{}
	profiles := mockauth.NewMemoryProfileStore()
	state := NewAuthState()
	reconciler := NewProfileReconciler(ProfileReconcilerOptions{
		Profiles:      profiles,
		State:         state,
		ReadBackDelay: 60 * time.Millisecond,
	})
	listener := NewSessionListener(SessionListenerOptions{
		Provider:   provider,
		State:      state,
		Reconciler: reconciler,
	})

	ident := testIdentity("user-7", "g@example.com")
	provider.CurrentSessionFunc = func(context.Context) (*domainauth.Identity, error) {
		return &ident, nil
	}

	require.NoError(t, listener.Attach(context.Background()))
	require.Equal(t, domainauth.RoleCustomer, state.Snapshot().Profile.Role)

	// Detach before the delayed re-read fires, then change the stored
	// row. The re-read must have been cancelled with the listener; a
	// write landing after Detach would surface the admin role here.
	listener.Detach()
	profiles.Put(&model.Profile{ID: "user-7", Email: "g@example.com", Role: domainauth.RoleAdmin})

	time.Sleep(120 * time.Millisecond)
	require.Equal(t, domainauth.RoleCustomer, state.Snapshot().Profile.Role)
}

func TestDetachWithoutAttachIsNoOp(t *testing.T) {
	f := newListenerFixture()
	f.listener.Detach()
	f.listener.Detach()
}

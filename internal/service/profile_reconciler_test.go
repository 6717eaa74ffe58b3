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
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

func testIdentity(userID, email string) domainauth.Identity {
	return domainauth.Identity{
		UserID:    userID,
		Email:     email,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func newTestReconciler(profiles ports.ProfileStore, state *AuthState) *ProfileReconciler {
	return NewProfileReconciler(ProfileReconcilerOptions{
		Profiles:      profiles,
		State:         state,
		ReadBackDelay: 5 * time.Millisecond,
	})
}

func TestReconcileMergesExistingProfile(t *testing.T) {
	store := mockauth.NewMemoryProfileStore()
	state := NewAuthState()
	ident := testIdentity("user-1", "a@example.com")
	state.setIdentity(&ident)

	name := "Ada"
	created, err := store.Insert(context.Background(), &model.CreateProfileRequest{
		ID:          "user-1",
		Email:       "a@example.com",
		Role:        domainauth.RoleStaff,
		DisplayName: &name,
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	r := newTestReconciler(store, state)
	r.Reconcile(context.Background(), ident)

	snap := state.Snapshot()
	require.True(t, snap.ProfileAttempted)
	require.NotNil(t, snap.Profile)
	require.Equal(t, domainauth.RoleStaff, snap.Profile.Role)
}

func TestReconcileCreatesDefaultProfileWhenAbsent(t *testing.T) {
	store := mockauth.NewMemoryProfileStore()
	state := NewAuthState()
	ident := testIdentity("user-2", "bob@example.com")
	state.setIdentity(&ident)

	r := newTestReconciler(store, state)
	r.Reconcile(context.Background(), ident)

	snap := state.Snapshot()
	require.True(t, snap.ProfileAttempted)
	require.NotNil(t, snap.Profile)
	require.Equal(t, "user-2", snap.Profile.ID)
	require.Equal(t, domainauth.RoleCustomer, snap.Profile.Role)
	require.NotNil(t, snap.Profile.DisplayName)
	require.Equal(t, "bob", *snap.Profile.DisplayName)
}

func TestReconcileInsertRaceRefetches(t *testing.T) {
	store := mockauth.NewMemoryProfileStore()
	state := NewAuthState()
	ident := testIdentity("user-3", "c@example.com")
	state.setIdentity(&ident)

	// The winning row exists, but the first lookup misses it and the
	// insert collides, modelling a concurrent reconciliation that won.
	store.Put(&model.Profile{ID: "user-3", Email: "c@example.com", Role: domainauth.RoleCustomer})
	seq := &sequencedProfileStore{inner: store, missFirst: true}

	r := newTestReconciler(seq, state)
	r.Reconcile(context.Background(), ident)

	snap := state.Snapshot()
	require.True(t, snap.ProfileAttempted)
	require.NotNil(t, snap.Profile)
	require.Equal(t, "user-3", snap.Profile.ID)
}

// sequencedProfileStore misses the first GetByID and delegates after,
// modelling a row that appears between lookup and insert.
type sequencedProfileStore struct {
	inner     *mockauth.MemoryProfileStore
	missFirst bool
}

func (s *sequencedProfileStore) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	if s.missFirst {
		s.missFirst = false
		return nil, ports.ErrProfileNotFound
	}
	return s.inner.GetByID(ctx, id)
}

func (s *sequencedProfileStore) Insert(ctx context.Context, req *model.CreateProfileRequest) (*model.Profile, error) {
	return nil, ports.ErrProfileExists
}

func (s *sequencedProfileStore) UpdateByID(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.Profile, error) {
	return s.inner.UpdateByID(ctx, id, req)
}

func TestReconcileTransportErrorKeepsLoadedProfile(t *testing.T) {
	store := mockauth.NewMemoryProfileStore()
	state := NewAuthState()
	ident := testIdentity("user-4", "d@example.com")
	state.setIdentity(&ident)

	existing := &model.Profile{ID: "user-4", Email: "d@example.com", Role: domainauth.RoleCustomer}
	state.setProfile(existing)

	store.GetErr = errors.New("connection refused")

	r := newTestReconciler(store, state)
	r.Reconcile(context.Background(), ident)

	snap := state.Snapshot()
	require.True(t, snap.ProfileAttempted)
	require.NotNil(t, snap.Profile, "transport failure must not wipe a loaded profile")
	require.Equal(t, "user-4", snap.Profile.ID)
}

func TestReconcileReadBackSupersedesOptimisticRow(t *testing.T) {
	store := mockauth.NewMemoryProfileStore()
	state := NewAuthState()
	ident := testIdentity("user-5", "e@example.com")
	state.setIdentity(&ident)

	r := newTestReconciler(store, state)
	r.Reconcile(context.Background(), ident)

	// Database trigger gives the row a different display name before
	// the delayed re-read fires.
	settled := "Trigger Applied"
	row, err := store.GetByID(context.Background(), "user-5")
	require.NoError(t, err)
	row.DisplayName = &settled
	store.Put(row)

	require.Eventually(t, func() bool {
		snap := state.Snapshot()
		return snap.Profile != nil && snap.Profile.DisplayName != nil &&
			*snap.Profile.DisplayName == settled
	}, time.Second, 10*time.Millisecond)
}

func TestReadBackAfterSignOutDoesNotResurrectProfile(t *testing.T) {
	store := mockauth.NewMemoryProfileStore()
	state := NewAuthState()
	ident := testIdentity("user-6", "f@example.com")
	state.setIdentity(&ident)

	r := newTestReconciler(store, state)
	r.Reconcile(context.Background(), ident)

	state.clearSession()

	// The delayed re-read fires against a signed-out state and must be
	// a no-op.
	time.Sleep(30 * time.Millisecond)
	snap := state.Snapshot()
	require.Nil(t, snap.Profile)
	require.False(t, snap.ProfileAttempted)
}

func TestDefaultProfile(t *testing.T) {
	ident := domainauth.Identity{
		UserID: "user-7",
		Email:  "grace@example.com",
		Metadata: domainauth.Metadata{
			FullName: "Grace Hopper",
			Phone:    "+1 555 0100",
			Role:     "staff",
		},
	}

	req := DefaultProfile(ident)
	require.Equal(t, "user-7", req.ID)
	require.Equal(t, "grace@example.com", req.Email)
	require.Equal(t, domainauth.RoleStaff, req.Role)
	require.NotNil(t, req.DisplayName)
	require.Equal(t, "Grace Hopper", *req.DisplayName)
	require.NotNil(t, req.Phone)
	require.Equal(t, "+1 555 0100", *req.Phone)
}

func TestDefaultProfileFallsBackToEmailLocalPart(t *testing.T) {
	req := DefaultProfile(domainauth.Identity{UserID: "u", Email: "karen@example.com"})
	require.Equal(t, domainauth.RoleCustomer, req.Role)
	require.NotNil(t, req.DisplayName)
	require.Equal(t, "karen", *req.DisplayName)
	require.Nil(t, req.Phone)
}

func TestDefaultProfileUnparseableEmailLeavesNameEmpty(t *testing.T) {
	req := DefaultProfile(domainauth.Identity{UserID: "u", Email: "@example.com"})
	require.Nil(t, req.DisplayName)
}

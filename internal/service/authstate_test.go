package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

func TestAuthStatePhases(t *testing.T) {
	state := NewAuthState()
	require.Equal(t, PhaseUninitialized, state.Snapshot().Phase())

	state.setAttached(true)
	require.Equal(t, PhaseLoading, state.Snapshot().Phase())

	state.setLoading(false)
	require.Equal(t, PhaseUnauthenticated, state.Snapshot().Phase())

	ident := testIdentity("u1", "u1@example.com")
	state.setIdentity(&ident)
	require.Equal(t, PhaseAuthenticatedNoProfile, state.Snapshot().Phase())

	state.setProfile(&model.Profile{ID: "u1", Role: domainauth.RoleCustomer})
	require.Equal(t, PhaseAuthenticatedWithProfile, state.Snapshot().Phase())

	state.clearSession()
	require.Equal(t, PhaseUnauthenticated, state.Snapshot().Phase())
}

func TestAuthSnapshotRoleFlags(t *testing.T) {
	state := NewAuthState()
	ident := testIdentity("u2", "u2@example.com")
	state.setIdentity(&ident)

	require.True(t, state.Snapshot().IsAuthenticated())
	require.False(t, state.Snapshot().IsStaff())
	require.False(t, state.Snapshot().IsAdmin())

	state.setProfile(&model.Profile{ID: "u2", Role: domainauth.RoleStaff})
	require.True(t, state.Snapshot().IsStaff())
	require.False(t, state.Snapshot().IsAdmin())

	state.setProfile(&model.Profile{ID: "u2", Role: domainauth.RoleAdmin})
	require.True(t, state.Snapshot().IsStaff())
	require.True(t, state.Snapshot().IsAdmin())
}

func TestSnapshotIsValueCopy(t *testing.T) {
	state := NewAuthState()
	ident := testIdentity("u3", "u3@example.com")
	state.setIdentity(&ident)
	state.setProfile(&model.Profile{ID: "u3", Role: domainauth.RoleCustomer})

	snap := state.Snapshot()
	snap.Profile.Role = domainauth.RoleAdmin
	snap.Identity.Email = "tampered@example.com"

	fresh := state.Snapshot()
	require.Equal(t, domainauth.RoleCustomer, fresh.Profile.Role)
	require.Equal(t, "u3@example.com", fresh.Identity.Email)
}

func TestMergeProfileIgnoresMismatchedUser(t *testing.T) {
	state := NewAuthState()
	ident := testIdentity("u4", "u4@example.com")
	state.setIdentity(&ident)

	state.mergeProfile(&model.Profile{ID: "someone-else", Role: domainauth.RoleAdmin})
	require.Nil(t, state.Snapshot().Profile)

	state.mergeProfile(&model.Profile{ID: "u4", Role: domainauth.RoleCustomer})
	require.NotNil(t, state.Snapshot().Profile)
}

func TestClearSessionRearmsProfileAttempted(t *testing.T) {
	state := NewAuthState()
	ident := testIdentity("u5", "u5@example.com")
	state.setIdentity(&ident)
	state.markProfileAttempted()
	require.True(t, state.Snapshot().ProfileAttempted)

	state.clearSession()
	require.False(t, state.Snapshot().ProfileAttempted)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
	mockauth "github.com/bulkhaus/bulk-ui-api/internal/mocks/auth"
)

type stubProfileDirectory struct {
	ListFunc       func(ctx context.Context, opts model.ProfilesListOptions) ([]*model.Profile, error)
	GetByIDFunc    func(ctx context.Context, id string) (*model.Profile, error)
	UpdateByIDFunc func(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.Profile, error)
}

func (s *stubProfileDirectory) List(ctx context.Context, opts model.ProfilesListOptions) ([]*model.Profile, error) {
	if s.ListFunc != nil {
		return s.ListFunc(ctx, opts)
	}
	return nil, nil
}

func (s *stubProfileDirectory) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	if s.GetByIDFunc != nil {
		return s.GetByIDFunc(ctx, id)
	}
	return &model.Profile{ID: id}, nil
}

func (s *stubProfileDirectory) UpdateByID(ctx context.Context, id string, req model.UpdateProfileRequest) (*model.Profile, error) {
	if s.UpdateByIDFunc != nil {
		return s.UpdateByIDFunc(ctx, id, req)
	}
	return &model.Profile{ID: id}, nil
}

// revokerFunc adapts a func to SessionRevoker.
type revokerFunc func(ctx context.Context, userID string) (int, error)

func (f revokerFunc) DeleteByUser(ctx context.Context, userID string) (int, error) {
	return f(ctx, userID)
}

// updatingDirectory applies the request onto a copy of the base row,
// the way the real repository's RETURNING clause reflects the update.
func updatingDirectory(base model.Profile) *stubProfileDirectory {
	return &stubProfileDirectory{
		UpdateByIDFunc: func(_ context.Context, id string, req model.UpdateProfileRequest) (*model.Profile, error) {
			out := base
			out.ID = id
			if req.DisplayName != nil {
				out.DisplayName = req.DisplayName
			}
			if req.Phone != nil {
				out.Phone = req.Phone
			}
			if req.Role != nil {
				out.Role = *req.Role
			}
			if req.Suspended != nil {
				out.Suspended = *req.Suspended
			}
			return &out, nil
		},
	}
}

func signedInState(userID string, role domainauth.Role) *AuthState {
	state := NewAuthState()
	state.setAttached(false)
	state.setIdentity(&domainauth.Identity{UserID: userID, Email: userID + "@example.com"})
	state.setProfile(&model.Profile{ID: userID, Role: role})
	state.markProfileAttempted()
	return state
}

func TestAdminRoleChangeFlipsSnapshot(t *testing.T) {
	state := signedInState("u1", domainauth.RoleCustomer)
	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: updatingDirectory(model.Profile{Email: "u1@example.com", Role: domainauth.RoleCustomer}),
		State:    state,
	})

	require.False(t, state.Snapshot().IsAdmin())

	role := domainauth.RoleAdmin
	updated, err := svc.Update(context.Background(), "u1", model.UpdateProfileRequest{Role: &role})
	require.NoError(t, err)
	require.Equal(t, domainauth.RoleAdmin, updated.Role)

	snap := state.Snapshot()
	require.True(t, snap.IsAdmin())
	require.True(t, snap.IsStaff())
}

func TestUpdateOtherUserLeavesSnapshotAlone(t *testing.T) {
	state := signedInState("u1", domainauth.RoleStaff)
	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: updatingDirectory(model.Profile{Role: domainauth.RoleStaff}),
		State:    state,
	})

	role := domainauth.RoleAdmin
	_, err := svc.Update(context.Background(), "u2", model.UpdateProfileRequest{Role: &role})
	require.NoError(t, err)

	snap := state.Snapshot()
	require.False(t, snap.IsAdmin())
	require.Equal(t, "u1", snap.Profile.ID)
}

func TestRoleChangeRevokesUserSessions(t *testing.T) {
	sessions := mockauth.NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s1", UserID: "u1", Role: domainauth.RoleStaff}))
	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s2", UserID: "u1", Role: domainauth.RoleStaff}))
	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s3", UserID: "u2", Role: domainauth.RoleCustomer}))

	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: updatingDirectory(model.Profile{Role: domainauth.RoleStaff}),
		Sessions: sessions,
	})

	role := domainauth.RoleCustomer
	_, err := svc.Update(ctx, "u1", model.UpdateProfileRequest{Role: &role})
	require.NoError(t, err)

	require.Equal(t, 1, sessions.Len())
	_, err = sessions.Get(ctx, "s3")
	require.NoError(t, err)
}

func TestSuspensionRevokesUserSessions(t *testing.T) {
	sessions := mockauth.NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s1", UserID: "u1"}))

	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: updatingDirectory(model.Profile{}),
		Sessions: sessions,
	})

	suspended := true
	_, err := svc.Update(ctx, "u1", model.UpdateProfileRequest{Suspended: &suspended})
	require.NoError(t, err)
	require.Equal(t, 0, sessions.Len())
}

func TestDisplayNameChangeKeepsSessions(t *testing.T) {
	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: updatingDirectory(model.Profile{}),
		Sessions: revokerFunc(func(context.Context, string) (int, error) {
			t.Fatal("revoker must not run for a display name change")
			return 0, nil
		}),
	})

	name := "New Name"
	_, err := svc.Update(context.Background(), "u1", model.UpdateProfileRequest{DisplayName: &name})
	require.NoError(t, err)
}

func TestRevocationFailureDoesNotFailUpdate(t *testing.T) {
	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: updatingDirectory(model.Profile{}),
		Sessions: revokerFunc(func(context.Context, string) (int, error) {
			return 0, errors.New("redis down")
		}),
	})

	role := domainauth.RoleStaff
	updated, err := svc.Update(context.Background(), "u1", model.UpdateProfileRequest{Role: &role})
	require.NoError(t, err)
	require.Equal(t, domainauth.RoleStaff, updated.Role)
}

func TestUpdatePropagatesRepositoryError(t *testing.T) {
	want := errors.New("boom")
	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: &stubProfileDirectory{
			UpdateByIDFunc: func(context.Context, string, model.UpdateProfileRequest) (*model.Profile, error) {
				return nil, want
			},
		},
	})

	_, err := svc.Update(context.Background(), "u1", model.UpdateProfileRequest{})
	require.ErrorIs(t, err, want)
}

func TestListForwardsOptions(t *testing.T) {
	var got model.ProfilesListOptions
	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: &stubProfileDirectory{
			ListFunc: func(_ context.Context, opts model.ProfilesListOptions) ([]*model.Profile, error) {
				got = opts
				return []*model.Profile{{ID: "u1"}}, nil
			},
		},
	})

	role := domainauth.RoleStaff
	out, err := svc.List(context.Background(), model.ProfilesListOptions{Limit: 5, Role: &role})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 5, got.Limit)
	require.Equal(t, &role, got.Role)
}

func TestGetDelegates(t *testing.T) {
	svc := NewUserAdminService(UserAdminServiceOptions{
		Profiles: &stubProfileDirectory{
			GetByIDFunc: func(_ context.Context, id string) (*model.Profile, error) {
				return &model.Profile{ID: id, Role: domainauth.RoleAdmin}, nil
			},
		},
	})

	profile, err := svc.Get(context.Background(), "u9")
	require.NoError(t, err)
	require.Equal(t, "u9", profile.ID)
	require.Equal(t, domainauth.RoleAdmin, profile.Role)
}

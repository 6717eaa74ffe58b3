package service

import (
	"context"
	"log/slog"

	"github.com/bulkhaus/bulk-ui-api/internal/core"
	"github.com/bulkhaus/bulk-ui-api/internal/domain/model"
)

// SessionRevoker deletes all stored HTTP sessions belonging to a user.
// Sessions snapshot the role at login, so a role change or suspension
// must revoke them to take effect before the next login.
type SessionRevoker interface {
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

// UserAdminServiceOptions groups dependencies for UserAdminService.
type UserAdminServiceOptions struct {
	Profiles core.ProfileDirectory
	State    *AuthState
	Sessions SessionRevoker
	Logger   *slog.Logger
}

// UserAdminService is the back-office view over profiles: listing,
// role changes, suspension. The profile row is the role's source of
// truth; Update pushes the new row into the live auth state and
// revokes the user's sessions so the change is effective immediately,
// not on the next login.
type UserAdminService struct {
	profiles core.ProfileDirectory
	state    *AuthState
	sessions SessionRevoker
	logger   *slog.Logger
}

// NewUserAdminService constructs a new UserAdminService.
func NewUserAdminService(opts UserAdminServiceOptions) *UserAdminService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &UserAdminService{
		profiles: opts.Profiles,
		state:    opts.State,
		sessions: opts.Sessions,
		logger:   logger,
	}
}

// List returns profiles per the options.
func (s *UserAdminService) List(ctx context.Context, opts model.ProfilesListOptions) ([]*model.Profile, error) {
	return s.profiles.List(ctx, opts)
}

// Get returns one profile.
func (s *UserAdminService) Get(ctx context.Context, id string) (*model.Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// Update applies role or suspension changes to a profile. The updated
// row is merged into the auth state so derived flags flip on the next
// snapshot, and role or suspension changes revoke the user's sessions.
func (s *UserAdminService) Update(
	ctx context.Context,
	id string,
	req model.UpdateProfileRequest,
) (*model.Profile, error) {
	updated, err := s.profiles.UpdateByID(ctx, id, req)
	if err != nil {
		return nil, err
	}

	if s.state != nil {
		s.state.mergeProfile(updated)
	}

	if s.sessions != nil && (req.Role != nil || req.Suspended != nil) {
		if revoked, revokeErr := s.sessions.DeleteByUser(ctx, id); revokeErr != nil {
			s.logger.Warn("session revocation failed after profile update",
				"user_id", id, "error", revokeErr)
		} else if revoked > 0 {
			s.logger.Info("sessions revoked after profile update",
				"user_id", id, "sessions", revoked)
		}
	}

	return updated, nil
}

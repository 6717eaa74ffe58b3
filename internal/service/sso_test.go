package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
	mockauth "github.com/bulkhaus/bulk-ui-api/internal/mocks/auth"
	"github.com/bulkhaus/bulk-ui-api/internal/ports"
)

func groupRoleMapper() ports.RoleMapper {
	return mockauth.RoleMapFunc(func(_ string, groups []string) domainauth.Role {
		for _, g := range groups {
			switch g {
			case "bulkhaus-admins":
				return domainauth.RoleAdmin
			case "bulkhaus-staff":
				return domainauth.RoleStaff
			}
		}
		return domainauth.RoleCustomer
	})
}

func newSSOFixture(provider *mockauth.FakeSSOProvider) (*SSOService, *mockauth.MemorySessionStore) {
	sessions := mockauth.NewMemorySessionStore()
	svc := NewSSOService(SSOServiceOptions{
		Provider: provider,
		Sessions: sessions,
		Roles:    groupRoleMapper(),
	})
	return svc, sessions
}

func TestBeginReturnsAuthURL(t *testing.T) {
	svc, _ := newSSOFixture(&mockauth.FakeSSOProvider{})

	result, err := svc.Begin(context.Background(), "https://shop.example/admin/callback")
	require.NoError(t, err)
	require.NotEmpty(t, result.AuthURL)
	require.NotEmpty(t, result.State)
	require.NotEmpty(t, result.Nonce)
}

func TestBeginRequiresRedirectURL(t *testing.T) {
	svc, _ := newSSOFixture(&mockauth.FakeSSOProvider{})

	_, err := svc.Begin(context.Background(), "")
	require.Error(t, err)
}

func TestCompleteMapsGroupsToRole(t *testing.T) {
	provider := &mockauth.FakeSSOProvider{
		ExchangeFunc: func(context.Context, ports.SSOExchangeInput) (ports.SSOIdentity, error) {
			return ports.SSOIdentity{
				UserID:    "staff-1",
				Email:     "pat@bulkhaus.example",
				Groups:    []string{"bulkhaus-staff"},
				ExpiresAt: time.Now().Add(time.Hour),
			}, nil
		},
	}
	svc, sessions := newSSOFixture(provider)

	result, err := svc.Complete(context.Background(), CompleteSSOInput{
		Code: "code", State: "state", Nonce: "nonce",
	})
	require.NoError(t, err)
	require.Equal(t, domainauth.RoleStaff, result.Session.Role)
	require.Equal(t, 1, sessions.Len())

	stored, err := sessions.Get(context.Background(), result.Session.ID)
	require.NoError(t, err)
	require.Equal(t, "staff-1", stored.UserID)
}

func TestCompleteAdminGroupWins(t *testing.T) {
	provider := &mockauth.FakeSSOProvider{
		ExchangeFunc: func(context.Context, ports.SSOExchangeInput) (ports.SSOIdentity, error) {
			return ports.SSOIdentity{
				UserID: "admin-1",
				Email:  "root@bulkhaus.example",
				Groups: []string{"bulkhaus-admins", "bulkhaus-staff"},
			}, nil
		},
	}
	svc, _ := newSSOFixture(provider)

	result, err := svc.Complete(context.Background(), CompleteSSOInput{
		Code: "code", State: "state", Nonce: "nonce",
	})
	require.NoError(t, err)
	require.Equal(t, domainauth.RoleAdmin, result.Session.Role)
}

func TestCompleteRejectsNonStaffIdentity(t *testing.T) {
	provider := &mockauth.FakeSSOProvider{
		ExchangeFunc: func(context.Context, ports.SSOExchangeInput) (ports.SSOIdentity, error) {
			return ports.SSOIdentity{UserID: "rando", Email: "rando@gmail.example"}, nil
		},
	}
	svc, sessions := newSSOFixture(provider)

	_, err := svc.Complete(context.Background(), CompleteSSOInput{
		Code: "code", State: "state", Nonce: "nonce",
	})
	require.Error(t, err)
	require.Equal(t, 0, sessions.Len())
}

func TestCompleteRequiresAllCallbackParameters(t *testing.T) {
	svc, _ := newSSOFixture(&mockauth.FakeSSOProvider{})

	cases := []CompleteSSOInput{
		{State: "s", Nonce: "n"},
		{Code: "c", Nonce: "n"},
		{Code: "c", State: "s"},
	}
	for _, input := range cases {
		_, err := svc.Complete(context.Background(), input)
		require.Error(t, err, "%+v", input)
	}
}

func TestSSOLogout(t *testing.T) {
	svc, sessions := newSSOFixture(&mockauth.FakeSSOProvider{})
	require.NoError(t, sessions.Save(context.Background(), domainauth.Session{ID: "s1", UserID: "staff-1"}))

	require.NoError(t, svc.Logout(context.Background(), "s1"))
	require.Equal(t, 0, sessions.Len())

	// Blank session ID is a no-op, not an error.
	require.NoError(t, svc.Logout(context.Background(), ""))
}

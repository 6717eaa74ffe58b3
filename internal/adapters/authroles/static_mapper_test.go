package authroles

import (
	"testing"

	"github.com/stretchr/testify/require"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
)

func TestMapAdminGroupWins(t *testing.T) {
	m := StaticRoleMapper{AdminGroup: "shop-admins", StaffGroup: "shop-staff"}

	role := m.Map("x@example.com", []string{"shop-staff", "shop-admins"})
	require.Equal(t, domainauth.RoleAdmin, role)
}

func TestMapStaffGroup(t *testing.T) {
	m := StaticRoleMapper{AdminGroup: "shop-admins", StaffGroup: "shop-staff"}

	role := m.Map("x@example.com", []string{"unrelated", "shop-staff"})
	require.Equal(t, domainauth.RoleStaff, role)
}

func TestMapStaffDomainFallback(t *testing.T) {
	m := StaticRoleMapper{StaffDomain: "bulkhaus.de"}

	require.Equal(t, domainauth.RoleStaff, m.Map("pat@bulkhaus.de", nil))
	require.Equal(t, domainauth.RoleStaff, m.Map("pat@ops.bulkhaus.de", nil),
		"subdomains share the registrable domain")
	require.Equal(t, domainauth.RoleStaff, m.Map("PAT@BULKHAUS.DE", nil))
	require.Equal(t, domainauth.RoleCustomer, m.Map("pat@gmail.com", nil))
}

func TestMapNoConfigurationDefaultsToCustomer(t *testing.T) {
	m := StaticRoleMapper{}

	require.Equal(t, domainauth.RoleCustomer, m.Map("x@example.com", []string{"shop-admins"}))
}

func TestMapMalformedEmail(t *testing.T) {
	m := StaticRoleMapper{StaffDomain: "bulkhaus.de"}

	require.Equal(t, domainauth.RoleCustomer, m.Map("no-at-sign", nil))
	require.Equal(t, domainauth.RoleCustomer, m.Map("trailing@", nil))
	require.Equal(t, domainauth.RoleCustomer, m.Map("", nil))
}

package authroles

import (
	"strings"

	"golang.org/x/net/publicsuffix"

	domainauth "github.com/bulkhaus/bulk-ui-api/internal/domain/auth"
)

// StaticRoleMapper maps SSO group claims and email domains to
// application roles. Group membership wins; the staff email domain is
// a fallback for tenants whose IdP does not expose groups.
type StaticRoleMapper struct {
	AdminGroup string
	StaffGroup string
	// StaffDomain grants the staff role to any address whose registrable
	// domain matches, e.g. "bulkhaus.example". Subdomains count, so
	// ops.bulkhaus.example addresses qualify too.
	StaffDomain string
}

func (m StaticRoleMapper) Map(email string, groups []string) domainauth.Role {
	for _, g := range groups {
		if m.AdminGroup != "" && g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	for _, g := range groups {
		if m.StaffGroup != "" && g == m.StaffGroup {
			return domainauth.RoleStaff
		}
	}
	if m.StaffDomain != "" && emailMatchesDomain(email, m.StaffDomain) {
		return domainauth.RoleStaff
	}
	return domainauth.RoleCustomer
}

// emailMatchesDomain compares registrable domains so staff on
// departmental subdomains are recognized without listing each one.
func emailMatchesDomain(email, domain string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	host := strings.ToLower(email[at+1:])
	want := strings.ToLower(strings.TrimSpace(domain))

	if host == want {
		return true
	}

	hostBase, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	wantBase, err := publicsuffix.EffectiveTLDPlusOne(want)
	if err != nil {
		return false
	}
	return hostBase == wantBase
}

package report

import (
	"strings"

	"github.com/sectools/azrecon/pkg/models/domain"
)

// Summary is the headline numbers a snapshot boils down to. Both the
// markdown and PDF renderers open with it.
type Summary struct {
	SecureScorePercent    float64
	Recommendations       int
	HighSeverityFindings  int
	PublicResources       int
	HighRiskNetworkGroups int
	PrivilegedAssignments int
	GuestUsers            int
	UsersWithoutMFA       int
	NonCompliantResources int
	TotalPrincipals       int
}

var privilegedRoleMarkers = []string{"owner", "contributor", "admin"}

// Summarize computes the headline numbers for one snapshot.
func Summarize(snapshot *domain.ScanSnapshot) Summary {
	s := Summary{
		SecureScorePercent: snapshot.SecureScore.Percentage,
		Recommendations:    len(snapshot.Recommendations),
		PublicResources:    len(snapshot.PublicResources),
		TotalPrincipals:    snapshot.IdentityBreakdown.Total(),
	}

	for _, rec := range snapshot.Recommendations {
		if strings.EqualFold(rec.Severity, "High") {
			s.HighSeverityFindings++
		}
	}
	for _, nsg := range snapshot.NetworkSecurityGroups {
		if nsg.RiskLevel == "High" {
			s.HighRiskNetworkGroups++
		}
	}
	for _, ra := range snapshot.RoleAssignments {
		if IsPrivilegedRole(ra.RoleDefinitionName) {
			s.PrivilegedAssignments++
		}
	}
	for _, u := range snapshot.Users {
		if u.IsGuest {
			s.GuestUsers++
		}
		if !u.MFAEnabled {
			s.UsersWithoutMFA++
		}
	}
	for _, cr := range snapshot.ComplianceResults {
		if strings.EqualFold(cr.ComplianceState, "NonCompliant") {
			s.NonCompliantResources++
		}
	}
	return s
}

// IsPrivilegedRole reports whether a role grants broad write or
// administrative access.
func IsPrivilegedRole(roleName string) bool {
	lower := strings.ToLower(roleName)
	for _, marker := range privilegedRoleMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

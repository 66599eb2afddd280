package identity

import (
	"sort"

	"github.com/sectools/azrecon/pkg/models/domain"
)

// Aggregate builds an identity breakdown from a flat list of role
// assignments in a single pass. Each received record counts once; the
// provider's own duplicates are treated as data, not collapsed. Categories
// that received no assignments are omitted from the result, so the
// presentation layer can skip zero-count groups without checking counts.
func Aggregate(assignments []domain.RoleAssignment) domain.IdentityBreakdown {
	breakdown := domain.IdentityBreakdown{}

	for _, assignment := range assignments {
		category := Classify(assignment.PrincipalType)

		cat, ok := breakdown[category]
		if !ok {
			cat = domain.CategoryBreakdown{Roles: map[string]int{}}
		}
		cat.Count++
		cat.Roles[assignment.RoleDefinitionName]++
		breakdown[category] = cat
	}

	return breakdown
}

// TopRoles returns up to n roles of a category ordered by count descending,
// ties broken by role name ascending so the ordering is reproducible.
// n <= 0 returns all roles.
func TopRoles(cat domain.CategoryBreakdown, n int) []domain.RoleCount {
	roles := make([]domain.RoleCount, 0, len(cat.Roles))
	for name, count := range cat.Roles {
		roles = append(roles, domain.RoleCount{Name: name, Count: count})
	}

	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Count != roles[j].Count {
			return roles[i].Count > roles[j].Count
		}
		return roles[i].Name < roles[j].Name
	})

	if n > 0 && len(roles) > n {
		roles = roles[:n]
	}
	return roles
}

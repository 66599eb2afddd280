package domain

// PrincipalCategory is the closed set of identity classes a role assignment
// can be attributed to. Provider type tags that are not recognized map to
// CategoryUnknownOrDeleted, never to a new key.
type PrincipalCategory string

const (
	CategoryUser             PrincipalCategory = "users"
	CategoryServicePrincipal PrincipalCategory = "service_principals"
	CategoryManagedIdentity  PrincipalCategory = "managed_identities"
	CategoryGroup            PrincipalCategory = "groups"
	CategoryUnknownOrDeleted PrincipalCategory = "unknown_or_deleted"
)

// Categories lists every principal category in display order.
func Categories() []PrincipalCategory {
	return []PrincipalCategory{
		CategoryUser,
		CategoryServicePrincipal,
		CategoryManagedIdentity,
		CategoryGroup,
		CategoryUnknownOrDeleted,
	}
}

// RoleAssignment is a single binding of a principal to a role at a scope,
// as returned by the provider. Immutable once fetched.
type RoleAssignment struct {
	PrincipalID        string `json:"principal_id"`
	PrincipalName      string `json:"principal_name"`
	PrincipalType      string `json:"principal_type"`
	RoleDefinitionName string `json:"role_definition_name"`
	Scope              string `json:"scope"`
	SubscriptionID     string `json:"subscription_id,omitempty"`
}

// CategoryBreakdown holds the aggregate for one principal category.
// Count equals the sum of the role counts.
type CategoryBreakdown struct {
	Count int            `json:"count"`
	Roles map[string]int `json:"roles"`
}

// IdentityBreakdown maps principal categories to their aggregates.
// Categories with no assignments are omitted.
type IdentityBreakdown map[PrincipalCategory]CategoryBreakdown

// Total returns the number of assignments counted across all categories.
func (b IdentityBreakdown) Total() int {
	total := 0
	for _, cat := range b {
		total += cat.Count
	}
	return total
}

// RoleCount pairs a role name with the number of assignments of that role
// within a category.
type RoleCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

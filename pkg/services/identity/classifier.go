package identity

import (
	"strings"

	"github.com/sectools/azrecon/pkg/models/domain"
)

// Classify maps a raw provider principal type tag to a category.
// It is total: empty strings, unknown tags and orphaned assignments all
// land in CategoryUnknownOrDeleted. Known tags are matched
// case-insensitively since providers are not consistent about casing.
func Classify(raw string) domain.PrincipalCategory {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user":
		return domain.CategoryUser
	case "serviceprincipal":
		return domain.CategoryServicePrincipal
	case "managedidentity":
		return domain.CategoryManagedIdentity
	case "group":
		return domain.CategoryGroup
	default:
		return domain.CategoryUnknownOrDeleted
	}
}

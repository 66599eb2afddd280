package identity

import (
	"testing"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected domain.PrincipalCategory
	}{
		{"user", "User", domain.CategoryUser},
		{"user lowercase", "user", domain.CategoryUser},
		{"user uppercase", "USER", domain.CategoryUser},
		{"service principal", "ServicePrincipal", domain.CategoryServicePrincipal},
		{"service principal lowercase", "serviceprincipal", domain.CategoryServicePrincipal},
		{"managed identity", "ManagedIdentity", domain.CategoryManagedIdentity},
		{"group", "Group", domain.CategoryGroup},
		{"empty string", "", domain.CategoryUnknownOrDeleted},
		{"whitespace only", "   ", domain.CategoryUnknownOrDeleted},
		{"unknown tag", "Device", domain.CategoryUnknownOrDeleted},
		{"provider label for deleted", "Unknown or Deleted", domain.CategoryUnknownOrDeleted},
		{"padded known tag", " User ", domain.CategoryUser},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Classify(tc.raw))
		})
	}
}

func TestClassify_AlwaysReturnsValidCategory(t *testing.T) {
	inputs := []string{"", "garbage", "рользователь", "user\x00", "ServicePrincipal2"}

	valid := map[domain.PrincipalCategory]bool{}
	for _, c := range domain.Categories() {
		valid[c] = true
	}

	for _, in := range inputs {
		assert.True(t, valid[Classify(in)], "input %q must map into the closed set", in)
	}
}

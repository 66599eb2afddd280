package scan

import (
	"errors"
	"testing"
	"time"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func completeFeeds() Feeds {
	return Feeds{
		SecureScore: Feed[domain.SecureScore]{
			Value: domain.SecureScore{CurrentScore: 30, MaxScore: 60, Percentage: 50},
		},
		Recommendations: Feed[[]domain.Recommendation]{
			Value: []domain.Recommendation{{ID: "r1", Severity: "High"}},
		},
		RoleAssignments: Feed[[]domain.RoleAssignment]{
			Value: []domain.RoleAssignment{
				{PrincipalID: "u1", PrincipalType: "User", RoleDefinitionName: "Reader"},
			},
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	builder := NewBuilderWithClock(fixedClock())

	t.Run("assembles snapshot with build-time timestamp", func(t *testing.T) {
		snapshot, err := builder.Build("tenant-1", completeFeeds())

		require.NoError(t, err)
		assert.Equal(t, "tenant-1", snapshot.TenantID)
		assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), snapshot.ScanTimestamp)
		assert.Equal(t, 50.0, snapshot.SecureScore.Percentage)
		assert.Equal(t, 1, snapshot.IdentityBreakdown[domain.CategoryUser].Count)
	})

	t.Run("missing secure score fails the whole build", func(t *testing.T) {
		feeds := completeFeeds()
		feeds.SecureScore.Err = errors.New("defender api unavailable")

		snapshot, err := builder.Build("tenant-1", feeds)

		assert.Nil(t, snapshot)
		var partial *PartialScanError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, []string{"secure_score"}, partial.Failed)
	})

	t.Run("all failed feeds are named", func(t *testing.T) {
		feeds := completeFeeds()
		feeds.Users.Err = errors.New("graph denied")
		feeds.RoleAssignments.Err = errors.New("throttled")

		_, err := builder.Build("tenant-1", feeds)

		var partial *PartialScanError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, []string{"users", "role_assignments"}, partial.Failed)
		assert.Contains(t, partial.Error(), "users, role_assignments")
	})

	t.Run("empty role assignment feed is not a failure", func(t *testing.T) {
		feeds := completeFeeds()
		feeds.RoleAssignments.Value = nil

		snapshot, err := builder.Build("tenant-1", feeds)

		require.NoError(t, err)
		assert.Empty(t, snapshot.IdentityBreakdown)
	})
}

package scan

import (
	"context"
	"errors"
	"testing"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSecureScoreSource struct{ mock.Mock }

func (m *mockSecureScoreSource) Scores(ctx context.Context, subs []string) (domain.SecureScore, error) {
	args := m.Called(ctx, subs)
	return args.Get(0).(domain.SecureScore), args.Error(1)
}

func (m *mockSecureScoreSource) Recommendations(ctx context.Context, subs []string) ([]domain.Recommendation, error) {
	args := m.Called(ctx, subs)
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

type mockExposureSource struct{ mock.Mock }

func (m *mockExposureSource) PublicResources(ctx context.Context, subs []string) ([]domain.PublicResource, error) {
	args := m.Called(ctx, subs)
	return args.Get(0).([]domain.PublicResource), args.Error(1)
}

func (m *mockExposureSource) NetworkSecurityGroups(ctx context.Context, subs []string) ([]domain.NetworkSecurityGroup, error) {
	args := m.Called(ctx, subs)
	return args.Get(0).([]domain.NetworkSecurityGroup), args.Error(1)
}

type mockIdentitySource struct{ mock.Mock }

func (m *mockIdentitySource) Users(ctx context.Context) ([]domain.UserInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.UserInfo), args.Error(1)
}

func (m *mockIdentitySource) RoleAssignments(ctx context.Context, subs []string) ([]domain.RoleAssignment, error) {
	args := m.Called(ctx, subs)
	return args.Get(0).([]domain.RoleAssignment), args.Error(1)
}

type mockPolicySource struct{ mock.Mock }

func (m *mockPolicySource) PolicyAssignments(ctx context.Context, subs []string) ([]domain.PolicyAssignment, error) {
	args := m.Called(ctx, subs)
	return args.Get(0).([]domain.PolicyAssignment), args.Error(1)
}

func (m *mockPolicySource) ComplianceResults(ctx context.Context, subs []string) ([]domain.ComplianceResult, error) {
	args := m.Called(ctx, subs)
	return args.Get(0).([]domain.ComplianceResult), args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) Save(ctx context.Context, snapshot *domain.ScanSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *mockStore) Latest(ctx context.Context, tenantID string) (*domain.ScanSnapshot, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScanSnapshot), args.Error(1)
}

type fixtures struct {
	secureScore *mockSecureScoreSource
	exposure    *mockExposureSource
	identity    *mockIdentitySource
	policy      *mockPolicySource
	store       *mockStore
	orch        *Orchestrator
}

func setup() *fixtures {
	f := &fixtures{
		secureScore: new(mockSecureScoreSource),
		exposure:    new(mockExposureSource),
		identity:    new(mockIdentitySource),
		policy:      new(mockPolicySource),
		store:       new(mockStore),
	}
	f.orch = NewOrchestrator(Sources{
		SecureScore: f.secureScore,
		Exposure:    f.exposure,
		Identity:    f.identity,
		Policy:      f.policy,
	}, NewBuilderWithClock(fixedClock()), f.store)
	return f
}

func (f *fixtures) happyPathExcept(skip ...string) {
	skipped := map[string]bool{}
	for _, s := range skip {
		skipped[s] = true
	}

	if !skipped["scores"] {
		f.secureScore.On("Scores", mock.Anything, mock.Anything).
			Return(domain.SecureScore{CurrentScore: 10, MaxScore: 20, Percentage: 50}, nil)
	}
	if !skipped["recommendations"] {
		f.secureScore.On("Recommendations", mock.Anything, mock.Anything).
			Return([]domain.Recommendation{}, nil)
	}
	f.exposure.On("PublicResources", mock.Anything, mock.Anything).
		Return([]domain.PublicResource{}, nil)
	f.exposure.On("NetworkSecurityGroups", mock.Anything, mock.Anything).
		Return([]domain.NetworkSecurityGroup{}, nil)
	f.identity.On("Users", mock.Anything).
		Return([]domain.UserInfo{}, nil)
	f.identity.On("RoleAssignments", mock.Anything, mock.Anything).
		Return([]domain.RoleAssignment{
			{PrincipalID: "u1", PrincipalType: "User", RoleDefinitionName: "Reader"},
		}, nil)
	f.policy.On("PolicyAssignments", mock.Anything, mock.Anything).
		Return([]domain.PolicyAssignment{}, nil)
	f.policy.On("ComplianceResults", mock.Anything, mock.Anything).
		Return([]domain.ComplianceResult{}, nil)
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()
	subs := []string{"sub-1"}

	t.Run("successful scan persists the snapshot", func(t *testing.T) {
		f := setup()
		f.happyPathExcept()
		f.store.On("Save", mock.Anything, mock.AnythingOfType("*domain.ScanSnapshot")).Return(nil)

		snapshot, err := f.orch.Run(ctx, "tenant-1", subs)

		require.NoError(t, err)
		assert.Equal(t, "tenant-1", snapshot.TenantID)
		assert.Equal(t, 1, snapshot.IdentityBreakdown.Total())
		f.store.AssertCalled(t, "Save", mock.Anything, snapshot)
	})

	t.Run("failed feed aborts before persistence", func(t *testing.T) {
		f := setup()
		f.happyPathExcept("scores")
		f.secureScore.On("Scores", mock.Anything, mock.Anything).
			Return(domain.SecureScore{}, errors.New("defender unavailable"))

		snapshot, err := f.orch.Run(ctx, "tenant-1", subs)

		assert.Nil(t, snapshot)
		var partial *PartialScanError
		require.ErrorAs(t, err, &partial)
		assert.Equal(t, []string{"secure_score"}, partial.Failed)
		f.store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("store failure is propagated and retryable", func(t *testing.T) {
		f := setup()
		f.happyPathExcept()
		f.store.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		snapshot, err := f.orch.Run(ctx, "tenant-1", subs)

		assert.Nil(t, snapshot)
		require.ErrorContains(t, err, "persist snapshot")
	})

	t.Run("cancelled context does not persist", func(t *testing.T) {
		f := setup()
		f.happyPathExcept()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		snapshot, err := f.orch.Run(cancelled, "tenant-1", subs)

		assert.Nil(t, snapshot)
		require.ErrorIs(t, err, context.Canceled)
		f.store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

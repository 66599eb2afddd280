package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/models/domain"
)

// SecureScoreSource fetches the provider's secure score feeds.
type SecureScoreSource interface {
	Scores(ctx context.Context, subscriptionIDs []string) (domain.SecureScore, error)
	Recommendations(ctx context.Context, subscriptionIDs []string) ([]domain.Recommendation, error)
}

// ExposureSource fetches internet-exposure feeds.
type ExposureSource interface {
	PublicResources(ctx context.Context, subscriptionIDs []string) ([]domain.PublicResource, error)
	NetworkSecurityGroups(ctx context.Context, subscriptionIDs []string) ([]domain.NetworkSecurityGroup, error)
}

// IdentitySource fetches directory users and role assignments.
type IdentitySource interface {
	Users(ctx context.Context) ([]domain.UserInfo, error)
	RoleAssignments(ctx context.Context, subscriptionIDs []string) ([]domain.RoleAssignment, error)
}

// PolicySource fetches policy assignments and compliance states.
type PolicySource interface {
	PolicyAssignments(ctx context.Context, subscriptionIDs []string) ([]domain.PolicyAssignment, error)
	ComplianceResults(ctx context.Context, subscriptionIDs []string) ([]domain.ComplianceResult, error)
}

// SnapshotStore persists snapshots and serves the latest per tenant.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *domain.ScanSnapshot) error
	Latest(ctx context.Context, tenantID string) (*domain.ScanSnapshot, error)
}

// Sources bundles the feed fetchers a scan draws from.
type Sources struct {
	SecureScore SecureScoreSource
	Exposure    ExposureSource
	Identity    IdentitySource
	Policy      PolicySource
}

// Orchestrator runs a full scan: fetch all feeds concurrently, build the
// snapshot, persist it. Persistence is the final step, so a cancelled or
// failed scan leaves the previously stored snapshot untouched.
type Orchestrator struct {
	sources Sources
	builder *Builder
	store   SnapshotStore
}

func NewOrchestrator(sources Sources, builder *Builder, store SnapshotStore) *Orchestrator {
	return &Orchestrator{
		sources: sources,
		builder: builder,
		store:   store,
	}
}

// Run executes one scan for the tenant across the given subscriptions.
// Every feed is attempted even when another fails, so the resulting
// *PartialScanError names all failed feeds and callers can retry those
// alone.
func (o *Orchestrator) Run(ctx context.Context, tenantID string, subscriptionIDs []string) (*domain.ScanSnapshot, error) {
	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("tenant_id", tenantID).
		Int("subscriptions", len(subscriptionIDs)).
		Msg("starting scan")

	var feeds Feeds
	var wg sync.WaitGroup
	fetch := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}

	fetch(func() {
		feeds.SecureScore.Value, feeds.SecureScore.Err = o.sources.SecureScore.Scores(ctx, subscriptionIDs)
	})
	fetch(func() {
		feeds.Recommendations.Value, feeds.Recommendations.Err = o.sources.SecureScore.Recommendations(ctx, subscriptionIDs)
	})
	fetch(func() {
		feeds.PublicResources.Value, feeds.PublicResources.Err = o.sources.Exposure.PublicResources(ctx, subscriptionIDs)
	})
	fetch(func() {
		feeds.NetworkGroups.Value, feeds.NetworkGroups.Err = o.sources.Exposure.NetworkSecurityGroups(ctx, subscriptionIDs)
	})
	fetch(func() {
		feeds.Users.Value, feeds.Users.Err = o.sources.Identity.Users(ctx)
	})
	fetch(func() {
		feeds.RoleAssignments.Value, feeds.RoleAssignments.Err = o.sources.Identity.RoleAssignments(ctx, subscriptionIDs)
	})
	fetch(func() {
		feeds.PolicyAssignments.Value, feeds.PolicyAssignments.Err = o.sources.Policy.PolicyAssignments(ctx, subscriptionIDs)
	})
	fetch(func() {
		feeds.ComplianceResults.Value, feeds.ComplianceResults.Err = o.sources.Policy.ComplianceResults(ctx, subscriptionIDs)
	})
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}

	snapshot, err := o.builder.Build(tenantID, feeds)
	if err != nil {
		return nil, err
	}

	if err := o.store.Save(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}

	logger.Info().
		Str("tenant_id", tenantID).
		Int("role_assignments", len(snapshot.RoleAssignments)).
		Int("recommendations", len(snapshot.Recommendations)).
		Msg("scan completed")

	return snapshot, nil
}

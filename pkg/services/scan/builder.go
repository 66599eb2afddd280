package scan

import (
	"time"

	"github.com/sectools/azrecon/pkg/models/domain"
	"github.com/sectools/azrecon/pkg/services/identity"
)

// Feed carries one feed's fetched value together with its fetch error.
// Feeds are fetched independently; the builder inspects the errors and
// either assembles a complete snapshot or fails as a whole.
type Feed[T any] struct {
	Value T
	Err   error
}

// Feeds is the full set of inputs the builder assembles into a snapshot.
type Feeds struct {
	SecureScore       Feed[domain.SecureScore]
	Recommendations   Feed[[]domain.Recommendation]
	PublicResources   Feed[[]domain.PublicResource]
	NetworkGroups     Feed[[]domain.NetworkSecurityGroup]
	Users             Feed[[]domain.UserInfo]
	RoleAssignments   Feed[[]domain.RoleAssignment]
	PolicyAssignments Feed[[]domain.PolicyAssignment]
	ComplianceResults Feed[[]domain.ComplianceResult]
}

// Builder assembles scan snapshots. The clock is injectable so tests can
// pin the snapshot timestamp.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

func NewBuilderWithClock(now func() time.Time) *Builder {
	return &Builder{now: now}
}

// Build validates that every feed was fetched and assembles an immutable
// snapshot, running the role aggregation over the role-assignment feed.
// All-or-nothing: any feed error fails the whole build with
// *PartialScanError and nothing is returned. An empty role-assignment
// feed is valid input, not a failure.
//
// The timestamp is assigned here, at build time, so a report reflects one
// logical point in time even though feeds were fetched over an interval.
func (b *Builder) Build(tenantID string, feeds Feeds) (*domain.ScanSnapshot, error) {
	var failed []string
	var causes []error
	collect := func(name string, err error) {
		if err != nil {
			failed = append(failed, name)
			causes = append(causes, err)
		}
	}

	collect("secure_score", feeds.SecureScore.Err)
	collect("recommendations", feeds.Recommendations.Err)
	collect("public_resources", feeds.PublicResources.Err)
	collect("network_security_groups", feeds.NetworkGroups.Err)
	collect("users", feeds.Users.Err)
	collect("role_assignments", feeds.RoleAssignments.Err)
	collect("policy_assignments", feeds.PolicyAssignments.Err)
	collect("compliance_results", feeds.ComplianceResults.Err)

	if len(failed) > 0 {
		return nil, &PartialScanError{Failed: failed, Causes: causes}
	}

	return &domain.ScanSnapshot{
		TenantID:              tenantID,
		ScanTimestamp:         b.now(),
		SecureScore:           feeds.SecureScore.Value,
		Recommendations:       feeds.Recommendations.Value,
		PublicResources:       feeds.PublicResources.Value,
		NetworkSecurityGroups: feeds.NetworkGroups.Value,
		Users:                 feeds.Users.Value,
		IdentityBreakdown:     identity.Aggregate(feeds.RoleAssignments.Value),
		RoleAssignments:       feeds.RoleAssignments.Value,
		PolicyAssignments:     feeds.PolicyAssignments.Value,
		ComplianceResults:     feeds.ComplianceResults.Value,
	}, nil
}

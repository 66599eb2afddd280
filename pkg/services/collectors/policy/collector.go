package policy

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/policyinsights/armpolicyinsights"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armpolicy"
	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/models/domain"
)

// Collector reads policy assignments and per-resource compliance states.
type Collector struct {
	cred azcore.TokenCredential
}

func NewCollector(cred azcore.TokenCredential) *Collector {
	return &Collector{cred: cred}
}

// PolicyAssignments lists every policy assignment visible in the given
// subscriptions.
func (c *Collector) PolicyAssignments(ctx context.Context, subscriptionIDs []string) ([]domain.PolicyAssignment, error) {
	var assignments []domain.PolicyAssignment
	for _, subID := range subscriptionIDs {
		client, err := armpolicy.NewAssignmentsClient(subID, c.cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create policy client for %s: %w", subID, err)
		}

		pager := client.NewListPager(nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to list policy assignments in %s: %w", subID, err)
			}
			for _, a := range page.Value {
				if a == nil || a.Properties == nil {
					continue
				}
				assignment := domain.PolicyAssignment{
					ID:                 deref(a.ID),
					Name:               deref(a.Name),
					DisplayName:        deref(a.Properties.DisplayName),
					PolicyDefinitionID: deref(a.Properties.PolicyDefinitionID),
					Scope:              deref(a.Properties.Scope),
				}
				if a.Properties.EnforcementMode != nil {
					assignment.EnforcementMode = string(*a.Properties.EnforcementMode)
				}
				assignments = append(assignments, assignment)
			}
		}
	}
	return assignments, nil
}

// ComplianceResults queries the latest policy state of every resource in
// the given subscriptions. Subscriptions where policy insights is not
// registered are skipped with a warning.
func (c *Collector) ComplianceResults(ctx context.Context, subscriptionIDs []string) ([]domain.ComplianceResult, error) {
	logger := zerolog.Ctx(ctx)

	client, err := armpolicyinsights.NewPolicyStatesClient(c.cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create policy insights client: %w", err)
	}

	var results []domain.ComplianceResult
	for _, subID := range subscriptionIDs {
		pager := client.NewListQueryResultsForSubscriptionPager(armpolicyinsights.PolicyStatesResourceLatest, subID, nil, nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				logger.Warn().Err(err).Str("subscription_id", subID).Msg("policy states unavailable, skipping subscription")
				break
			}
			for _, state := range page.Value {
				if state == nil {
					continue
				}
				results = append(results, domain.ComplianceResult{
					PolicyAssignmentID:   deref(state.PolicyAssignmentID),
					PolicyAssignmentName: deref(state.PolicyAssignmentName),
					ResourceID:           deref(state.ResourceID),
					ComplianceState:      deref(state.ComplianceState),
					ResourceType:         deref(state.ResourceType),
					ResourceLocation:     deref(state.ResourceLocation),
				})
			}
		}
	}
	return results, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

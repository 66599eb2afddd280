package securescore

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/security/armsecurity"
	"github.com/rs/zerolog"
	"github.com/sectools/azrecon/pkg/models/domain"
)

const initiativeName = "ascScore"

// Collector reads secure scores and security assessments from Defender
// for Cloud, per subscription.
type Collector struct {
	cred       azcore.TokenCredential
	newFactory func(subscriptionID string) (*armsecurity.ClientFactory, error)
}

func NewCollector(cred azcore.TokenCredential) *Collector {
	return &Collector{
		cred: cred,
		newFactory: func(subscriptionID string) (*armsecurity.ClientFactory, error) {
			return armsecurity.NewClientFactory(subscriptionID, cred, nil)
		},
	}
}

// Scores sums the "ascScore" initiative across subscriptions and keeps
// the per-control detail. Subscriptions without Defender enabled are
// skipped with a warning rather than failing the feed.
func (c *Collector) Scores(ctx context.Context, subscriptionIDs []string) (domain.SecureScore, error) {
	logger := zerolog.Ctx(ctx)

	var total domain.SecureScore
	var reached int
	for _, subID := range subscriptionIDs {
		factory, err := c.newFactory(subID)
		if err != nil {
			return domain.SecureScore{}, fmt.Errorf("failed to create security client for %s: %w", subID, err)
		}

		score, controls, err := collectSubscription(ctx, factory, subID)
		if err != nil {
			logger.Warn().Err(err).Str("subscription_id", subID).Msg("secure score unavailable, skipping subscription")
			continue
		}
		reached++
		total.CurrentScore += score.CurrentScore
		total.MaxScore += score.MaxScore
		total.ControlScores = append(total.ControlScores, controls...)
	}

	if reached == 0 && len(subscriptionIDs) > 0 {
		return domain.SecureScore{}, fmt.Errorf("secure score unavailable in all %d subscriptions", len(subscriptionIDs))
	}
	if total.MaxScore > 0 {
		total.Percentage = total.CurrentScore / total.MaxScore * 100
	}
	return total, nil
}

func collectSubscription(ctx context.Context, factory *armsecurity.ClientFactory, subID string) (domain.SecureScore, []domain.ControlScore, error) {
	var score domain.SecureScore

	pager := factory.NewSecureScoresClient().NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return domain.SecureScore{}, nil, fmt.Errorf("failed to list secure scores: %w", err)
		}
		for _, item := range page.Value {
			if item == nil || item.Properties == nil || item.Properties.Score == nil {
				continue
			}
			if deref(item.Name) != initiativeName {
				continue
			}
			if item.Properties.Score.Current != nil {
				score.CurrentScore = *item.Properties.Score.Current
			}
			if item.Properties.Score.Max != nil {
				score.MaxScore = float64(*item.Properties.Score.Max)
			}
		}
	}

	var controls []domain.ControlScore
	controlPager := factory.NewSecureScoreControlsClient().NewListBySecureScorePager(initiativeName, nil)
	for controlPager.More() {
		page, err := controlPager.NextPage(ctx)
		if err != nil {
			return domain.SecureScore{}, nil, fmt.Errorf("failed to list secure score controls: %w", err)
		}
		for _, ctrl := range page.Value {
			if ctrl == nil || ctrl.Properties == nil {
				continue
			}
			cs := domain.ControlScore{
				SubscriptionID: subID,
				ScoreName:      deref(ctrl.Name),
				DisplayName:    deref(ctrl.Properties.DisplayName),
			}
			if s := ctrl.Properties.Score; s != nil {
				if s.Current != nil {
					cs.CurrentScore = *s.Current
				}
				if s.Max != nil {
					cs.MaxScore = float64(*s.Max)
				}
				if s.Percentage != nil {
					cs.Percentage = *s.Percentage * 100
				}
			}
			controls = append(controls, cs)
		}
	}

	return score, controls, nil
}

// Recommendations lists unhealthy security assessments. Healthy and
// not-applicable assessments are dropped, matching what the dashboard
// asks users to act on.
func (c *Collector) Recommendations(ctx context.Context, subscriptionIDs []string) ([]domain.Recommendation, error) {
	logger := zerolog.Ctx(ctx)

	var recs []domain.Recommendation
	for _, subID := range subscriptionIDs {
		factory, err := c.newFactory(subID)
		if err != nil {
			return nil, fmt.Errorf("failed to create security client for %s: %w", subID, err)
		}

		scope := fmt.Sprintf("/subscriptions/%s", subID)
		pager := factory.NewAssessmentsClient().NewListPager(scope, nil)
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				logger.Warn().Err(err).Str("subscription_id", subID).Msg("assessments unavailable, skipping subscription")
				break
			}
			for _, a := range page.Value {
				rec, ok := toRecommendation(a)
				if ok {
					recs = append(recs, rec)
				}
			}
		}
	}
	return recs, nil
}

func toRecommendation(a *armsecurity.AssessmentResponse) (domain.Recommendation, bool) {
	if a == nil || a.Properties == nil {
		return domain.Recommendation{}, false
	}
	props := a.Properties

	state := ""
	if props.Status != nil && props.Status.Code != nil {
		state = string(*props.Status.Code)
	}
	if state != string(armsecurity.AssessmentStatusCodeUnhealthy) {
		return domain.Recommendation{}, false
	}

	rec := domain.Recommendation{
		ID:                deref(a.ID),
		Name:              deref(props.DisplayName),
		State:             state,
		AffectedResources: 1,
	}
	if md := props.Metadata; md != nil {
		rec.Description = deref(md.Description)
		if md.Severity != nil {
			rec.Severity = string(*md.Severity)
		}
		if len(md.Categories) > 0 && md.Categories[0] != nil {
			rec.Category = string(*md.Categories[0])
		}
	}
	return rec, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package securescore

import (
	"context"
	"errors"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/security/armsecurity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func unhealthyAssessment() *armsecurity.AssessmentResponse {
	code := armsecurity.AssessmentStatusCodeUnhealthy
	severity := armsecurity.SeverityHigh
	category := armsecurity.CategoriesCompute
	return &armsecurity.AssessmentResponse{
		ID: strPtr("/subscriptions/sub-1/providers/Microsoft.Security/assessments/a1"),
		Properties: &armsecurity.AssessmentPropertiesResponse{
			DisplayName: strPtr("Management ports should be closed"),
			Status:      &armsecurity.AssessmentStatusResponse{Code: &code},
			Metadata: &armsecurity.AssessmentMetadataProperties{
				Severity:    &severity,
				Categories:  []*armsecurity.Categories{&category},
				Description: strPtr("Open management ports expose the VM."),
			},
		},
	}
}

func TestToRecommendation_Unhealthy(t *testing.T) {
	rec, ok := toRecommendation(unhealthyAssessment())
	require.True(t, ok)

	assert.Equal(t, "Management ports should be closed", rec.Name)
	assert.Equal(t, "Unhealthy", rec.State)
	assert.Equal(t, "High", rec.Severity)
	assert.Equal(t, "Compute", rec.Category)
	assert.Equal(t, "Open management ports expose the VM.", rec.Description)
	assert.Equal(t, 1, rec.AffectedResources)
}

func TestToRecommendation_DropsHealthy(t *testing.T) {
	a := unhealthyAssessment()
	code := armsecurity.AssessmentStatusCodeHealthy
	a.Properties.Status.Code = &code

	_, ok := toRecommendation(a)
	assert.False(t, ok)
}

func TestToRecommendation_DropsIncomplete(t *testing.T) {
	_, ok := toRecommendation(nil)
	assert.False(t, ok)

	_, ok = toRecommendation(&armsecurity.AssessmentResponse{})
	assert.False(t, ok)

	a := unhealthyAssessment()
	a.Properties.Status = nil
	_, ok = toRecommendation(a)
	assert.False(t, ok)
}

func TestToRecommendation_NoMetadata(t *testing.T) {
	a := unhealthyAssessment()
	a.Properties.Metadata = nil

	rec, ok := toRecommendation(a)
	require.True(t, ok)
	assert.Empty(t, rec.Severity)
	assert.Empty(t, rec.Category)
	assert.Empty(t, rec.Description)
}

func TestScores_FactoryError(t *testing.T) {
	c := &Collector{
		newFactory: func(string) (*armsecurity.ClientFactory, error) {
			return nil, errors.New("bad credential")
		},
	}

	_, err := c.Scores(context.Background(), []string{"sub-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub-1")
}

func TestRecommendations_FactoryError(t *testing.T) {
	c := &Collector{
		newFactory: func(string) (*armsecurity.ClientFactory, error) {
			return nil, errors.New("bad credential")
		},
	}

	_, err := c.Recommendations(context.Background(), []string{"sub-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub-1")
}

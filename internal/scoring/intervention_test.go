package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendInterventionTimeline(t *testing.T) {
	tests := []struct {
		tier     AcuityTier
		timeline string
	}{
		{AcuityHigh, "Immediate priority - contact within 24 hours"},
		{AcuityMedium, "High priority - contact within 72 hours"},
		{AcuityLow, "Standard priority - contact within 1 week"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier), func(t *testing.T) {
			plan := RecommendIntervention(VulnerabilityScore{AcuityTier: tt.tier})
			assert.Equal(t, tt.timeline, plan.Timeline)
			assert.Equal(t, tt.tier, plan.AcuityTier)
			assert.Len(t, plan.ImmediateActions, 4)
			assert.NotEmpty(t, plan.SupportServices)
		})
	}
}

func TestRecommendInterventionUsesScoreHousing(t *testing.T) {
	score := CalculateScore(IntakeAnswers{
		ChronicHealth: true,
		SubstanceUse:  true,
		MentalHealth:  true,
	})
	plan := RecommendIntervention(score)
	assert.Equal(t, AcuityHigh, plan.AcuityTier)
	assert.Equal(t, HousingPermanentSupportive, plan.HousingType)
	assert.Contains(t, plan.ImmediateActions, "Begin permanent supportive housing application")
}

func TestRecommendInterventionUnknownTier(t *testing.T) {
	plan := RecommendIntervention(VulnerabilityScore{AcuityTier: "critical"})
	assert.Equal(t, "Standard priority - contact within 1 week", plan.Timeline)
}

func TestRecommendInterventionReturnsCopies(t *testing.T) {
	first := RecommendIntervention(VulnerabilityScore{AcuityTier: AcuityMedium})
	first.ImmediateActions[0] = "changed"
	first.SupportServices[0] = "changed"

	second := RecommendIntervention(VulnerabilityScore{AcuityTier: AcuityMedium})
	assert.Equal(t, "Schedule rapid re-housing assessment", second.ImmediateActions[0])
	assert.Equal(t, "Employment assistance", second.SupportServices[0])
}

func TestInterventionPlanJSON(t *testing.T) {
	plan := RecommendIntervention(VulnerabilityScore{AcuityTier: AcuityLow, RecommendedHousingType: HousingEmergencyShelter})
	data, err := json.Marshal(plan)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "low", m["acuity_level"])
	assert.Equal(t, "emergency_shelter", m["housing_type"])
	assert.Contains(t, m, "immediate_actions")
}

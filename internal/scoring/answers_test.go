package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIntakeAnswersDefaults(t *testing.T) {
	a := NewIntakeAnswers(RawAnswers{})
	assert.False(t, a.CurrentlyHomeless)
	assert.False(t, a.HasIncome)
	assert.False(t, a.HasFamilySupport)
	assert.Nil(t, a.NightsHomelessPast3Years)
	assert.Nil(t, a.MonthlyIncome)
	assert.Equal(t, 0, a.NightsHomeless())
}

func TestNewIntakeAnswersFromJSON(t *testing.T) {
	body := `{
		"currently_homeless": true,
		"nights_homeless_past_3_years": 400,
		"mental_health": true,
		"has_income": false,
		"monthly_income": -20,
		"has_id": true,
		"living_situation": "car"
	}`
	var raw RawAnswers
	require.NoError(t, json.Unmarshal([]byte(body), &raw))

	a := NewIntakeAnswers(raw)
	assert.True(t, a.CurrentlyHomeless)
	assert.True(t, a.MentalHealth)
	assert.True(t, a.HasID)
	assert.False(t, a.HasSocialSecurityCard)
	assert.Equal(t, 400, a.NightsHomeless())
	assert.Nil(t, a.MonthlyIncome, "negative income is treated as absent")
	assert.Equal(t, "car", a.LivingSituation)
}

func TestNormalizeNegativeNights(t *testing.T) {
	a := IntakeAnswers{NightsHomelessPast3Years: intPtr(-1)}
	n := a.Normalize()
	assert.Nil(t, n.NightsHomelessPast3Years)
	assert.Equal(t, 0, a.NightsHomeless())
}

func TestNormalizeCopiesPointers(t *testing.T) {
	nights := 120
	a := IntakeAnswers{NightsHomelessPast3Years: &nights}
	n := a.Normalize()
	require.NotNil(t, n.NightsHomelessPast3Years)

	nights = 10
	assert.Equal(t, 120, *n.NightsHomelessPast3Years)
}

func TestRawAnswersMissingVsFalse(t *testing.T) {
	// Omitting a mitigator and sending false score the same.
	var omitted, explicit RawAnswers
	require.NoError(t, json.Unmarshal([]byte(`{}`), &omitted))
	require.NoError(t, json.Unmarshal([]byte(`{"has_income":false,"has_id":false}`), &explicit))
	assert.Equal(t,
		CalculateScore(NewIntakeAnswers(omitted)),
		CalculateScore(NewIntakeAnswers(explicit)),
	)
}

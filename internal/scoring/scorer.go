package scoring

import (
	"log/slog"
	"time"
)

// VulnerabilityScore is the output of scoring one set of intake answers.
// TotalScore always equals the sum of the three sub-scores.
type VulnerabilityScore struct {
	HousingHistoryScore    int         `json:"housing_history_score"`
	WellnessScore          int         `json:"wellness_score"`
	RiskScore              int         `json:"risk_score"`
	TotalScore             int         `json:"total_score"`
	AcuityTier             AcuityTier  `json:"acuity_level"`
	RecommendedHousingType HousingType `json:"recommended_housing_type"`
	CalculatedAt           time.Time   `json:"calculated_at"`
}

// CalculateScore computes the vulnerability score for a, capping each
// sub-score before summation. It is pure and never fails; CalculatedAt is
// left zero.
func CalculateScore(a IntakeAnswers) VulnerabilityScore {
	a = a.Normalize()

	housing := clamp(sumPoints(HousingHistoryFactors(a)), 0, maxHousingHistory)
	wellness := clamp(sumPoints(WellnessFactors(a)), 0, maxWellness)
	risk := clamp(sumPoints(RiskFactors(a)), 0, maxRisk)

	total := housing + wellness + risk
	tier, housingType := TierForTotal(total)

	return VulnerabilityScore{
		HousingHistoryScore:    housing,
		WellnessScore:          wellness,
		RiskScore:              risk,
		TotalScore:             total,
		AcuityTier:             tier,
		RecommendedHousingType: housingType,
	}
}

// Scorer wraps CalculateScore with a clock and logging for use by the
// intake pipeline.
type Scorer struct {
	now    func() time.Time
	logger *slog.Logger
}

// NewScorer creates a Scorer. A nil clock uses time.Now.
func NewScorer(now func() time.Time, logger *slog.Logger) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now, logger: logger}
}

// Score calculates the score for a and stamps CalculatedAt.
func (s *Scorer) Score(a IntakeAnswers) VulnerabilityScore {
	score := CalculateScore(a)
	score.CalculatedAt = s.now().UTC()

	s.logger.Debug("vulnerability score calculated",
		"total", score.TotalScore,
		"housing_history", score.HousingHistoryScore,
		"wellness", score.WellnessScore,
		"risk", score.RiskScore,
		"acuity", score.AcuityTier,
		"housing_type", score.RecommendedHousingType,
	)
	return score
}

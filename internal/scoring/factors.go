package scoring

const (
	maxHousingHistory = 6
	maxWellness       = 6
	maxRisk           = 5

	chronicNights  = 365
	extendedNights = 90
)

// Domain names used in FactorResult.
const (
	DomainHousingHistory = "housing_history"
	DomainWellness       = "wellness"
	DomainRisk           = "risk"
)

// FactorResult captures one rule's contribution to a sub-score.
type FactorResult struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// HousingHistoryFactors returns the housing-history rules that fired.
func HousingHistoryFactors(a IntakeAnswers) []FactorResult {
	var out []FactorResult
	if a.CurrentlyHomeless {
		out = append(out, FactorResult{Domain: DomainHousingHistory, Name: "currently_homeless", Points: 1, Reason: "currently homeless"})
	}
	// The two length-of-homelessness tiers are mutually exclusive.
	switch nights := a.NightsHomeless(); {
	case nights >= chronicNights:
		out = append(out, FactorResult{Domain: DomainHousingHistory, Name: "nights_homeless", Points: 2, Reason: "365+ nights homeless in 3 years"})
	case nights >= extendedNights:
		out = append(out, FactorResult{Domain: DomainHousingHistory, Name: "nights_homeless", Points: 1, Reason: "90+ nights homeless in 3 years"})
	}
	if a.TransportationBarriers {
		out = append(out, FactorResult{Domain: DomainHousingHistory, Name: "transportation_barriers", Points: 1, Reason: "transportation barrier"})
	}
	if a.ChildcareBarriers {
		out = append(out, FactorResult{Domain: DomainHousingHistory, Name: "childcare_barriers", Points: 1, Reason: "childcare barrier"})
	}
	if a.EmploymentBarriers {
		out = append(out, FactorResult{Domain: DomainHousingHistory, Name: "employment_barriers", Points: 1, Reason: "employment barrier"})
	}
	return out
}

// WellnessFactors returns the wellness rules that fired.
func WellnessFactors(a IntakeAnswers) []FactorResult {
	var out []FactorResult
	if a.ChronicHealth {
		out = append(out, FactorResult{Domain: DomainWellness, Name: "chronic_health", Points: 2, Reason: "chronic health condition"})
	}
	if a.SubstanceUse {
		out = append(out, FactorResult{Domain: DomainWellness, Name: "substance_use", Points: 2, Reason: "substance use"})
	}
	if a.MentalHealth {
		out = append(out, FactorResult{Domain: DomainWellness, Name: "mental_health", Points: 2, Reason: "mental health condition"})
	}
	return out
}

// RiskFactors returns the risk rules that fired.
func RiskFactors(a IntakeAnswers) []FactorResult {
	var out []FactorResult
	if a.HistoryFosterCare {
		out = append(out, FactorResult{Domain: DomainRisk, Name: "history_foster_care", Points: 1, Reason: "foster care history"})
	}
	if a.HistoryIncarceration {
		out = append(out, FactorResult{Domain: DomainRisk, Name: "history_incarceration", Points: 1, Reason: "incarceration history"})
	}
	if a.HistoryVictimization {
		out = append(out, FactorResult{Domain: DomainRisk, Name: "history_victimization", Points: 1, Reason: "victimization history"})
	}
	if !a.HasIncome {
		out = append(out, FactorResult{Domain: DomainRisk, Name: "no_income", Points: 1, Reason: "no income"})
	}
	// One point whether one or both documents are missing.
	if !a.HasID || !a.HasSocialSecurityCard {
		out = append(out, FactorResult{Domain: DomainRisk, Name: "missing_documents", Points: 1, Reason: "missing ID or SSN card"})
	}
	if !a.HasFamilySupport && !a.HasFriendsSupport {
		out = append(out, FactorResult{Domain: DomainRisk, Name: "no_support_network", Points: 1, Reason: "no family or friend support"})
	}
	return out
}

// Explain returns every rule that fired across the three domains, in
// housing-history, wellness, risk order.
func Explain(a IntakeAnswers) []FactorResult {
	a = a.Normalize()
	var out []FactorResult
	out = append(out, HousingHistoryFactors(a)...)
	out = append(out, WellnessFactors(a)...)
	out = append(out, RiskFactors(a)...)
	return out
}

func sumPoints(factors []FactorResult) int {
	total := 0
	for _, f := range factors {
		total += f.Points
	}
	return total
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

package scoring

// InterventionPlan is the fixed, tier-specific set of next steps attached to
// a caseworker's action item.
type InterventionPlan struct {
	HousingType      HousingType `json:"housing_type"`
	AcuityTier       AcuityTier  `json:"acuity_level"`
	ImmediateActions []string    `json:"immediate_actions"`
	SupportServices  []string    `json:"support_services"`
	Timeline         string      `json:"timeline"`
}

type interventionTemplate struct {
	actions  []string
	services []string
	timeline string
}

var interventions = map[AcuityTier]interventionTemplate{
	AcuityHigh: {
		actions: []string{
			"Contact emergency shelter for immediate placement",
			"Connect with healthcare services within 48 hours",
			"Begin permanent supportive housing application",
			"Schedule comprehensive needs assessment",
		},
		services: []string{
			"Case management",
			"Mental health services",
			"Substance abuse treatment",
			"Medical care coordination",
			"Benefits enrollment",
		},
		timeline: "Immediate priority - contact within 24 hours",
	},
	AcuityMedium: {
		actions: []string{
			"Schedule rapid re-housing assessment",
			"Connect with job training resources",
			"Identify temporary housing options",
			"Begin document collection process",
		},
		services: []string{
			"Employment assistance",
			"Financial literacy training",
			"Life skills coaching",
			"Healthcare navigation",
		},
		timeline: "High priority - contact within 72 hours",
	},
	AcuityLow: {
		actions: []string{
			"Assess for diversion opportunities",
			"Connect with prevention services",
			"Provide resource navigation",
			"Schedule follow-up check-in",
		},
		services: []string{
			"Financial assistance",
			"Mediation services",
			"Resource referrals",
			"Community support groups",
		},
		timeline: "Standard priority - contact within 1 week",
	},
}

// RecommendIntervention looks up the intervention plan for the score's tier.
// Only the tier is consulted. An unknown tier is treated as low.
func RecommendIntervention(score VulnerabilityScore) InterventionPlan {
	tmpl, ok := interventions[score.AcuityTier]
	if !ok {
		tmpl = interventions[AcuityLow]
	}
	return InterventionPlan{
		HousingType:      score.RecommendedHousingType,
		AcuityTier:       score.AcuityTier,
		ImmediateActions: append([]string(nil), tmpl.actions...),
		SupportServices:  append([]string(nil), tmpl.services...),
		Timeline:         tmpl.timeline,
	}
}

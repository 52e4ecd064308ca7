package scoring

// IntakeAnswers holds the questionnaire responses consumed by scoring.
// Values are immutable once submitted; a resubmission produces a new value.
type IntakeAnswers struct {
	// Housing history
	CurrentlyHomeless        bool   `json:"currently_homeless"`
	NightsHomelessPast3Years *int   `json:"nights_homeless_past_3_years,omitempty"`
	LivingSituation          string `json:"living_situation,omitempty"`
	TransportationBarriers   bool   `json:"transportation_barriers"`
	ChildcareBarriers        bool   `json:"childcare_barriers"`
	EmploymentBarriers       bool   `json:"employment_barriers"`

	// Wellness
	ChronicHealth bool `json:"chronic_health"`
	SubstanceUse  bool `json:"substance_use"`
	MentalHealth  bool `json:"mental_health"`

	// Risk: institutional history
	HistoryFosterCare    bool `json:"history_foster_care"`
	HistoryIncarceration bool `json:"history_incarceration"`
	HistoryVictimization bool `json:"history_victimization"`

	// Risk: resources
	HasIncome             bool     `json:"has_income"`
	IncomeSource          string   `json:"income_source,omitempty"`
	MonthlyIncome         *float64 `json:"monthly_income,omitempty"`
	HasID                 bool     `json:"has_id"`
	HasSocialSecurityCard bool     `json:"has_social_security_card"`

	// Risk: support network
	HasFamilySupport  bool `json:"has_family_support"`
	HasFriendsSupport bool `json:"has_friends_support"`

	AdditionalInfo string `json:"additional_info,omitempty"`
}

// RawAnswers is the loosely-typed shape answers arrive in. Every field is
// optional; NewIntakeAnswers turns it into IntakeAnswers.
type RawAnswers struct {
	CurrentlyHomeless        *bool    `json:"currently_homeless"`
	NightsHomelessPast3Years *int     `json:"nights_homeless_past_3_years"`
	LivingSituation          string   `json:"living_situation"`
	TransportationBarriers   *bool    `json:"transportation_barriers"`
	ChildcareBarriers        *bool    `json:"childcare_barriers"`
	EmploymentBarriers       *bool    `json:"employment_barriers"`
	ChronicHealth            *bool    `json:"chronic_health"`
	SubstanceUse             *bool    `json:"substance_use"`
	MentalHealth             *bool    `json:"mental_health"`
	HistoryFosterCare        *bool    `json:"history_foster_care"`
	HistoryIncarceration     *bool    `json:"history_incarceration"`
	HistoryVictimization     *bool    `json:"history_victimization"`
	HasIncome                *bool    `json:"has_income"`
	IncomeSource             string   `json:"income_source"`
	MonthlyIncome            *float64 `json:"monthly_income"`
	HasID                    *bool    `json:"has_id"`
	HasSocialSecurityCard    *bool    `json:"has_social_security_card"`
	HasFamilySupport         *bool    `json:"has_family_support"`
	HasFriendsSupport        *bool    `json:"has_friends_support"`
	AdditionalInfo           string   `json:"additional_info"`
}

// NewIntakeAnswers applies the documented defaults to raw answers: a missing
// flag is false, and a missing or negative count or amount is absent.
// It never fails.
func NewIntakeAnswers(raw RawAnswers) IntakeAnswers {
	a := IntakeAnswers{
		CurrentlyHomeless:        flag(raw.CurrentlyHomeless),
		NightsHomelessPast3Years: raw.NightsHomelessPast3Years,
		LivingSituation:          raw.LivingSituation,
		TransportationBarriers:   flag(raw.TransportationBarriers),
		ChildcareBarriers:        flag(raw.ChildcareBarriers),
		EmploymentBarriers:       flag(raw.EmploymentBarriers),
		ChronicHealth:            flag(raw.ChronicHealth),
		SubstanceUse:             flag(raw.SubstanceUse),
		MentalHealth:             flag(raw.MentalHealth),
		HistoryFosterCare:        flag(raw.HistoryFosterCare),
		HistoryIncarceration:     flag(raw.HistoryIncarceration),
		HistoryVictimization:     flag(raw.HistoryVictimization),
		HasIncome:                flag(raw.HasIncome),
		IncomeSource:             raw.IncomeSource,
		MonthlyIncome:            raw.MonthlyIncome,
		HasID:                    flag(raw.HasID),
		HasSocialSecurityCard:    flag(raw.HasSocialSecurityCard),
		HasFamilySupport:         flag(raw.HasFamilySupport),
		HasFriendsSupport:        flag(raw.HasFriendsSupport),
		AdditionalInfo:           raw.AdditionalInfo,
	}
	return a.Normalize()
}

// Normalize returns a copy with out-of-domain numeric fields cleared.
// Pointer fields are copied so the result shares no memory with a.
func (a IntakeAnswers) Normalize() IntakeAnswers {
	out := a
	out.NightsHomelessPast3Years = nil
	if a.NightsHomelessPast3Years != nil && *a.NightsHomelessPast3Years >= 0 {
		n := *a.NightsHomelessPast3Years
		out.NightsHomelessPast3Years = &n
	}
	out.MonthlyIncome = nil
	if a.MonthlyIncome != nil && *a.MonthlyIncome >= 0 {
		m := *a.MonthlyIncome
		out.MonthlyIncome = &m
	}
	return out
}

// NightsHomeless returns the trailing three-year count, or 0 when absent.
func (a IntakeAnswers) NightsHomeless() int {
	if a.NightsHomelessPast3Years == nil || *a.NightsHomelessPast3Years < 0 {
		return 0
	}
	return *a.NightsHomelessPast3Years
}

func flag(b *bool) bool {
	return b != nil && *b
}

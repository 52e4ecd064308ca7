package scoring

// AcuityTier is the coarse severity classification derived from the total score.
type AcuityTier string

const (
	AcuityLow    AcuityTier = "low"
	AcuityMedium AcuityTier = "medium"
	AcuityHigh   AcuityTier = "high"
)

// Valid reports whether t is one of the known tiers.
func (t AcuityTier) Valid() bool {
	switch t {
	case AcuityLow, AcuityMedium, AcuityHigh:
		return true
	}
	return false
}

// HousingType is the housing program recommended for a client.
type HousingType string

const (
	HousingEmergencyShelter    HousingType = "emergency_shelter"
	HousingTransitional        HousingType = "transitional"
	HousingRapidRehousing      HousingType = "rapid_rehousing"
	HousingPermanentSupportive HousingType = "permanent_supportive"
	HousingOther               HousingType = "other"
)

func (h HousingType) Valid() bool {
	switch h {
	case HousingEmergencyShelter, HousingTransitional, HousingRapidRehousing,
		HousingPermanentSupportive, HousingOther:
		return true
	}
	return false
}

const (
	highAcuityMin   = 8
	mediumAcuityMin = 4

	// MaxTotalScore is the ceiling of HousingHistory + Wellness + Risk caps.
	MaxTotalScore = maxHousingHistory + maxWellness + maxRisk
)

// TierForTotal maps a total score to its acuity tier and recommended housing.
// Evaluated top-down, first match wins.
func TierForTotal(total int) (AcuityTier, HousingType) {
	switch {
	case total >= highAcuityMin:
		return AcuityHigh, HousingPermanentSupportive
	case total >= mediumAcuityMin:
		return AcuityMedium, HousingRapidRehousing
	default:
		return AcuityLow, HousingEmergencyShelter
	}
}

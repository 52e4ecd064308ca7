package hermes

import (
	"time"

	"github.com/MikeSquared-Agency/Intake/internal/scoring"
)

// IntakeRequestEvent is an intake submitted over the bus instead of HTTP.
type IntakeRequestEvent struct {
	QRCode           string             `json:"qr_code"`
	FirstName        string             `json:"first_name"`
	LastName         string             `json:"last_name"`
	MiddleName       string             `json:"middle_name,omitempty"`
	PreferredName    string             `json:"preferred_name,omitempty"`
	Phone            string             `json:"phone,omitempty"`
	Email            string             `json:"email,omitempty"`
	PreferredContact string             `json:"preferred_contact,omitempty"`
	PrimaryLanguage  string             `json:"primary_language,omitempty"`
	NeedsInterpreter bool               `json:"needs_interpreter,omitempty"`
	IntakeData       scoring.RawAnswers `json:"intake_data"`
	Source           string             `json:"source,omitempty"`
}

type ClientAssessedEvent struct {
	ClientID       string              `json:"client_id"`
	AssessmentID   string              `json:"assessment_id"`
	OrganizationID string              `json:"organization_id"`
	Zone           string              `json:"zone"`
	TotalScore     int                 `json:"total_score"`
	AcuityTier     scoring.AcuityTier  `json:"acuity_level"`
	HousingType    scoring.HousingType `json:"recommended_housing_type"`
	Timestamp      time.Time           `json:"timestamp"`
}

type ClientAssignedEvent struct {
	ClientID       string `json:"client_id"`
	CaseworkerID   string `json:"caseworker_id"`
	OrganizationID string `json:"organization_id"`
	Zone           string `json:"zone"`
	Source         string `json:"source"`
}

type ClientUnassignedEvent struct {
	ClientID       string             `json:"client_id"`
	OrganizationID string             `json:"organization_id"`
	Zone           string             `json:"zone"`
	AcuityTier     scoring.AcuityTier `json:"acuity_level"`
}

type ClientReassessedEvent struct {
	ClientID      string             `json:"client_id"`
	AssessmentID  string             `json:"assessment_id"`
	PreviousScore *int               `json:"previous_score,omitempty"`
	TotalScore    int                `json:"total_score"`
	AcuityTier    scoring.AcuityTier `json:"acuity_level"`
}

type ClientUpdatedEvent struct {
	ClientID         string    `json:"client_id"`
	CaseworkerID     string    `json:"caseworker_id"`
	PreviousStatus   string    `json:"previous_status"`
	Status           string    `json:"status"`
	MatchedHousingID string    `json:"matched_housing_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

type ActionCreatedEvent struct {
	ActionID     string `json:"action_id"`
	CaseworkerID string `json:"caseworker_id"`
	ClientID     string `json:"client_id"`
	ActionType   string `json:"action_type"`
	Priority     int    `json:"priority"`
}

type ActionCompletedEvent struct {
	ActionID     string    `json:"action_id"`
	CaseworkerID string    `json:"caseworker_id"`
	ClientID     string    `json:"client_id"`
	CompletedAt  time.Time `json:"completed_at"`
}

type StatsEvent struct {
	TotalClients      int       `json:"total_clients"`
	Unassigned        int       `json:"unassigned"`
	PlacementRate     float64   `json:"placement_rate"`
	ActiveCaseworkers int       `json:"active_caseworkers"`
	Timestamp         time.Time `json:"timestamp"`
}

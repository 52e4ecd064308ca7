package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/scoring"
)

// ErrAlreadyAssigned is returned when a client picked up by the sweep was
// assigned concurrently by another path.
var ErrAlreadyAssigned = errors.New("client already assigned")

const DefaultZone = "default"

type ClientStatus string

const (
	ClientStatusIntake   ClientStatus = "intake"
	ClientStatusAssessed ClientStatus = "assessed"
	ClientStatusMatched  ClientStatus = "matched"
	ClientStatusPlaced   ClientStatus = "placed"
	ClientStatusFollowUp ClientStatus = "follow_up"
	ClientStatusInactive ClientStatus = "inactive"
)

// ClientStatuses lists the lifecycle in order.
var ClientStatuses = []ClientStatus{
	ClientStatusIntake, ClientStatusAssessed, ClientStatusMatched,
	ClientStatusPlaced, ClientStatusFollowUp, ClientStatusInactive,
}

// Reached reports whether a client in status s is at or past m in the
// lifecycle. Inactive sits outside the ordering and only reaches itself.
func (s ClientStatus) Reached(m ClientStatus) bool {
	if s == ClientStatusInactive || m == ClientStatusInactive {
		return s == m
	}
	return statusRank(s) >= statusRank(m)
}

func statusRank(s ClientStatus) int {
	for i, v := range ClientStatuses {
		if s == v {
			return i
		}
	}
	return -1
}

func (s ClientStatus) Valid() bool {
	for _, v := range ClientStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type ActionType string

const (
	ActionInitialContact ActionType = "initial_contact"
	ActionFollowUp       ActionType = "follow_up"
	ActionDocumentNeeded ActionType = "document_needed"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionInitialContact, ActionFollowUp, ActionDocumentNeeded:
		return true
	}
	return false
}

type Organization struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Zones        []string  `json:"zones"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

type Caseworker struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Zones          []string  `json:"assigned_zones"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

// CoversZone reports whether zone is in the caseworker's zone set.
func (c *Caseworker) CoversZone(zone string) bool {
	for _, z := range c.Zones {
		if z == zone {
			return true
		}
	}
	return false
}

type QRCode struct {
	Code           string     `json:"code"`
	OrganizationID string     `json:"organization_id"`
	Location       string     `json:"location"`
	Zone           string     `json:"zone"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	ScanCount      int64      `json:"scan_count"`
	LastScannedAt  *time.Time `json:"last_scanned_at,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RoutingZone returns the zone used for assignment, falling back to DefaultZone.
func (q *QRCode) RoutingZone() string {
	if q.Zone == "" {
		return DefaultZone
	}
	return q.Zone
}

type Client struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID string    `json:"organization_id"`
	QRCode         string    `json:"qr_code"`
	Zone           string    `json:"zone"`

	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	MiddleName    string `json:"middle_name,omitempty"`
	PreferredName string `json:"preferred_name,omitempty"`

	// Contact
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	PreferredContact string `json:"preferred_contact"`

	// Demographics
	DateOfBirth   *time.Time `json:"date_of_birth,omitempty"`
	Gender        string     `json:"gender,omitempty"`
	Race          []string   `json:"race,omitempty"`
	Ethnicity     string     `json:"ethnicity,omitempty"`
	VeteranStatus *bool      `json:"veteran_status,omitempty"`

	// Language
	PrimaryLanguage  string `json:"primary_language"`
	NeedsInterpreter bool   `json:"needs_interpreter"`

	// State
	Status               ClientStatus `json:"status"`
	AssignedCaseworkerID *string      `json:"assigned_caseworker_id,omitempty"`

	// Assessment
	IntakeAnswers       *scoring.IntakeAnswers      `json:"intake_data,omitempty"`
	VulnerabilityScore  *scoring.VulnerabilityScore `json:"vi_spdat_score,omitempty"`
	CurrentAssessmentID *uuid.UUID                  `json:"current_assessment_id,omitempty"`
	IntakeCompletedAt   *time.Time                  `json:"intake_completed_at,omitempty"`

	// Housing
	MatchedHousingID string     `json:"matched_housing_id,omitempty"`
	HousingPlacedAt  *time.Time `json:"housing_placed_at,omitempty"`

	Notes     []string  `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName is the display name used on action items.
func (c *Client) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Assessment is one immutable scoring of a client's answers.
type Assessment struct {
	ID        uuid.UUID                  `json:"id"`
	ClientID  uuid.UUID                  `json:"client_id"`
	Answers   scoring.IntakeAnswers      `json:"intake_data"`
	Score     scoring.VulnerabilityScore `json:"vi_spdat_score"`
	Plan      scoring.InterventionPlan   `json:"recommendations"`
	CreatedAt time.Time                  `json:"created_at"`
}

type ActionItem struct {
	ID                uuid.UUID                 `json:"id"`
	CaseworkerID      string                    `json:"caseworker_id"`
	ClientID          uuid.UUID                 `json:"client_id"`
	ClientName        string                    `json:"client_name"`
	ActionType        ActionType                `json:"action_type"`
	Priority          int                       `json:"priority"`
	Description       string                    `json:"description"`
	Recommendations   *scoring.InterventionPlan `json:"recommendations,omitempty"`
	DueDate           *time.Time                `json:"due_date,omitempty"`
	Completed         bool                      `json:"completed"`
	CompletedAt       *time.Time                `json:"completed_at,omitempty"`
	CompletionNotes   string                    `json:"completion_notes,omitempty"`
	CreatedAt         time.Time                 `json:"created_at"`
}

type CaseworkerFilter struct {
	OrganizationID string
	Zone           string
	ActiveOnly     bool
}

type ClientFilter struct {
	OrganizationID string
	CaseworkerID   string
	Status         *ClientStatus
	Unassigned     bool
	// After resumes an oldest-first unassigned listing past the given row.
	After  *ClientCursor
	Limit  int
	Offset int
}

// ClientCursor is a (created_at, id) keyset position.
type ClientCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// ClientUpdate carries the caseworker-editable fields of a client. Nil
// fields are left unchanged; Note is appended to the client's notes.
type ClientUpdate struct {
	Status           *ClientStatus
	Note             string
	MatchedHousingID *string
	HousingPlacedAt  *time.Time
}

type ActionItemFilter struct {
	CaseworkerID string
	Completed    *bool
	Limit        int
}

// IntakeRecord is everything one intake submission writes.
type IntakeRecord struct {
	Client     *Client
	Assessment *Assessment
	Action     *ActionItem // nil when no caseworker covers the zone
}

// ReassessmentRecord is everything one resubmission writes.
type ReassessmentRecord struct {
	ClientID   uuid.UUID
	Assessment *Assessment
	Action     *ActionItem
}

type StatusCounts map[ClientStatus]int

// Total sums every status.
func (c StatusCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// PlacementRate is placed clients as a percentage of total, 0 when empty.
func PlacementRate(placed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(placed) / float64(total) * 100
}

type CityMetrics struct {
	TotalClients      int          `json:"total_clients"`
	ByStatus          StatusCounts `json:"by_status"`
	PlacementRate     float64      `json:"placement_rate"`
	UnassignedClients int          `json:"unassigned_clients"`
	ActiveCaseworkers int          `json:"active_caseworkers"`
	ActiveQRCodes     int          `json:"active_qr_codes"`
}

type CaseworkerStats struct {
	TotalClients        int          `json:"total"`
	ByStatus            StatusCounts `json:"by_status"`
	PlacementRate       float64      `json:"placement_rate"`
	PendingActions      int          `json:"pending"`
	HighPriorityActions int          `json:"high_priority"`
}

type Store interface {
	// Directory
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	CreateCaseworker(ctx context.Context, cw *Caseworker) error
	GetCaseworker(ctx context.Context, id string) (*Caseworker, error)
	ListCaseworkers(ctx context.Context, filter CaseworkerFilter) ([]*Caseworker, error)
	CreateQRCode(ctx context.Context, qr *QRCode) error
	GetQRCode(ctx context.Context, code string) (*QRCode, error)
	IncrementQRScan(ctx context.Context, code string, at time.Time) (int64, error)

	// Clients
	GetClient(ctx context.Context, id uuid.UUID) (*Client, error)
	ListClients(ctx context.Context, filter ClientFilter) ([]*Client, error)
	CountClients(ctx context.Context, filter ClientFilter) (int, error)
	UpdateClient(ctx context.Context, id uuid.UUID, upd ClientUpdate) (*Client, error)

	// Assessments
	ListAssessments(ctx context.Context, clientID uuid.UUID) ([]*Assessment, error)

	// Action queue
	ListActionItems(ctx context.Context, filter ActionItemFilter) ([]*ActionItem, error)
	// CompleteActionItem reports whether this call is the one that completed the item.
	CompleteActionItem(ctx context.Context, caseworkerID string, id uuid.UUID, notes string, at time.Time) (*ActionItem, bool, error)

	// Intake (transactional)
	RecordIntake(ctx context.Context, rec *IntakeRecord) error
	RecordReassessment(ctx context.Context, rec *ReassessmentRecord) error
	AssignClient(ctx context.Context, clientID uuid.UUID, caseworkerID string, action *ActionItem) error

	// Metrics
	GetCityMetrics(ctx context.Context) (*CityMetrics, error)
	GetCaseworkerStats(ctx context.Context, caseworkerID string) (*CaseworkerStats, error)

	Close() error
}

package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/scoring"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

const (
	msgAwaitingCaseworker    = "A caseworker will be assigned within 24 hours"
	msgCaseworkerUnavailable = "Caseworker information not available"
	stepHoused               = "Housed Successfully"
	nextHoused               = "Congratulations! Stay in touch with your caseworker."
)

// The portal only shows what a client may see about their own case: no
// answers, demographics or notes.

type PortalClient struct {
	ID            uuid.UUID          `json:"id"`
	FirstName     string             `json:"first_name"`
	PreferredName string             `json:"preferred_name,omitempty"`
	Status        store.ClientStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
}

type CaseworkerContact struct {
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"organization"`
}

type OrganizationContact struct {
	Name         string `json:"name"`
	ContactPhone string `json:"contact_phone,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

type PortalAssessment struct {
	TotalScore  int                 `json:"total_score"`
	AcuityTier  scoring.AcuityTier  `json:"acuity_tier"`
	HousingType scoring.HousingType `json:"recommended_housing_type"`
}

type ClientPortalProfile struct {
	Client       PortalClient         `json:"client"`
	Caseworker   *CaseworkerContact   `json:"caseworker"`
	Organization *OrganizationContact `json:"organization"`
	Assessment   *PortalAssessment    `json:"assessment"`
}

type Milestone struct {
	Step        string     `json:"step"`
	Completed   bool       `json:"completed"`
	Date        *time.Time `json:"date,omitempty"`
	Description string     `json:"description"`
	NextAction  string     `json:"-"`
}

type ClientProgress struct {
	CompletionPercentage   int                `json:"completion_percentage"`
	CurrentStep            string             `json:"current_step"`
	NextAction             string             `json:"next_action"`
	Milestones             []Milestone        `json:"milestones"`
	EstimatedTimeToHousing string             `json:"estimated_time_to_housing,omitempty"`
	Status                 store.ClientStatus `json:"status"`
}

type CaseworkerContactView struct {
	Assigned   bool               `json:"assigned"`
	Message    string             `json:"message,omitempty"`
	Caseworker *CaseworkerContact `json:"caseworker,omitempty"`
}

// Profile is the client's own view of their case.
func (b *Broker) Profile(ctx context.Context, clientID uuid.UUID) (*ClientPortalProfile, error) {
	c, err := b.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	out := &ClientPortalProfile{
		Client: PortalClient{
			ID:            c.ID,
			FirstName:     c.FirstName,
			PreferredName: c.PreferredName,
			Status:        c.Status,
			CreatedAt:     c.CreatedAt,
		},
	}

	if c.AssignedCaseworkerID != nil {
		cw, err := b.store.GetCaseworker(ctx, *c.AssignedCaseworkerID)
		if err != nil {
			return nil, fmt.Errorf("get caseworker: %w", err)
		}
		out.Caseworker = contactFor(cw)
	}

	org, err := b.store.GetOrganization(ctx, c.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if org != nil {
		out.Organization = &OrganizationContact{
			Name:         org.Name,
			ContactPhone: org.ContactPhone,
			ContactEmail: org.ContactEmail,
		}
	}

	if s := c.VulnerabilityScore; s != nil {
		out.Assessment = &PortalAssessment{
			TotalScore:  s.TotalScore,
			AcuityTier:  s.AcuityTier,
			HousingType: s.RecommendedHousingType,
		}
	}
	return out, nil
}

// Progress tracks the client through five milestones from intake to move-in.
func (b *Broker) Progress(ctx context.Context, clientID uuid.UUID) (*ClientProgress, error) {
	c, err := b.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	milestones := milestonesFor(c)

	out := &ClientProgress{
		Milestones:  milestones,
		CurrentStep: stepHoused,
		NextAction:  nextHoused,
		Status:      c.Status,
	}
	done := 0
	for _, m := range milestones {
		if m.Completed {
			done++
		}
	}
	out.CompletionPercentage = done * 100 / len(milestones)
	for _, m := range milestones {
		if !m.Completed {
			out.CurrentStep = m.Step
			out.NextAction = m.NextAction
			break
		}
	}
	if c.VulnerabilityScore != nil {
		out.EstimatedTimeToHousing = scoring.RecommendIntervention(*c.VulnerabilityScore).Timeline
	}
	return out, nil
}

func milestonesFor(c *store.Client) []Milestone {
	assessed := c.CurrentAssessmentID != nil && c.Status.Reached(store.ClientStatusAssessed)
	matched := c.Status.Reached(store.ClientStatusMatched) || c.MatchedHousingID != ""
	placed := c.Status.Reached(store.ClientStatusPlaced) || c.HousingPlacedAt != nil

	var assessedAt *time.Time
	if assessed {
		assessedAt = c.IntakeCompletedAt
	}

	return []Milestone{
		{
			Step:        "Intake Complete",
			Completed:   c.IntakeCompletedAt != nil,
			Date:        c.IntakeCompletedAt,
			Description: "Your information has been submitted",
			NextAction:  "Complete your intake assessment",
		},
		{
			Step:        "Caseworker Assigned",
			Completed:   c.AssignedCaseworkerID != nil,
			Description: "A caseworker is reviewing your case",
			NextAction:  nextSteps,
		},
		{
			Step:        "Assessment Complete",
			Completed:   assessed,
			Date:        assessedAt,
			Description: "Your needs have been evaluated",
			NextAction:  "Your caseworker is reviewing your assessment",
		},
		{
			Step:        "Housing Match Found",
			Completed:   matched,
			Description: "We found housing that fits your needs",
			NextAction:  "Searching for housing matches",
		},
		{
			Step:        "Move-In Process",
			Completed:   placed,
			Date:        c.HousingPlacedAt,
			Description: "Preparing for your move-in",
			NextAction:  "Preparing move-in paperwork",
		},
	}
}

// CaseworkerContact tells a client who is handling their case.
func (b *Broker) CaseworkerContact(ctx context.Context, clientID uuid.UUID) (*CaseworkerContactView, error) {
	c, err := b.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if c.AssignedCaseworkerID == nil {
		return &CaseworkerContactView{Message: msgAwaitingCaseworker}, nil
	}
	cw, err := b.store.GetCaseworker(ctx, *c.AssignedCaseworkerID)
	if err != nil {
		return nil, fmt.Errorf("get caseworker: %w", err)
	}
	if cw == nil {
		return &CaseworkerContactView{Message: msgCaseworkerUnavailable}, nil
	}
	return &CaseworkerContactView{Assigned: true, Caseworker: contactFor(cw)}, nil
}

func contactFor(cw *store.Caseworker) *CaseworkerContact {
	if cw == nil {
		return nil
	}
	return &CaseworkerContact{
		Name:           cw.Name,
		Phone:          cw.Phone,
		Email:          cw.Email,
		OrganizationID: cw.OrganizationID,
	}
}

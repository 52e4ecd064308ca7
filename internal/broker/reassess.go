package broker

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/hermes"
	"github.com/MikeSquared-Agency/Intake/internal/routing"
	"github.com/MikeSquared-Agency/Intake/internal/scoring"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

type ReassessResult struct {
	Client        *store.Client            `json:"client"`
	Assessment    *store.Assessment        `json:"assessment"`
	PreviousScore *int                     `json:"previous_score,omitempty"`
	Plan          scoring.InterventionPlan `json:"recommendations"`
	Factors       []scoring.FactorResult   `json:"factors"`
	Action        *store.ActionItem        `json:"action_item,omitempty"`
}

// AssessmentView pairs a stored assessment with the rules that produced it.
type AssessmentView struct {
	*store.Assessment
	Factors []scoring.FactorResult `json:"factors"`
}

// Reassess scores a fresh set of answers for an existing client. The new
// assessment becomes current; earlier ones are kept. Assigned clients get a
// follow-up item on their caseworker's queue.
func (b *Broker) Reassess(ctx context.Context, clientID uuid.UUID, raw scoring.RawAnswers) (*ReassessResult, error) {
	c, err := b.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	var previous *int
	if c.VulnerabilityScore != nil {
		p := c.VulnerabilityScore.TotalScore
		previous = &p
	}

	answers := scoring.NewIntakeAnswers(raw)
	score := b.scorer.Score(answers)
	plan := scoring.RecommendIntervention(score)

	assessment := &store.Assessment{
		ID:       uuid.New(),
		ClientID: c.ID,
		Answers:  answers,
		Score:    score,
		Plan:     plan,
	}

	var action *store.ActionItem
	if c.AssignedCaseworkerID != nil {
		action = routing.BuildFollowUpItem(c, *c.AssignedCaseworkerID, score, plan)
	}

	if err := b.store.RecordReassessment(ctx, &store.ReassessmentRecord{
		ClientID:   c.ID,
		Assessment: assessment,
		Action:     action,
	}); err != nil {
		return nil, fmt.Errorf("record reassessment: %w", err)
	}

	c.IntakeAnswers = &answers
	c.VulnerabilityScore = &score
	c.CurrentAssessmentID = &assessment.ID

	b.publish(hermes.SubjectClientReassessed(c.ID.String()), hermes.ClientReassessedEvent{
		ClientID:      c.ID.String(),
		AssessmentID:  assessment.ID.String(),
		PreviousScore: previous,
		TotalScore:    score.TotalScore,
		AcuityTier:    score.AcuityTier,
	})
	b.publishActionCreated(action)
	b.metrics.IncReassessment(string(score.AcuityTier))

	b.logger.Info("client reassessed", "client_id", c.ID, "score", score.TotalScore, "acuity", score.AcuityTier)

	return &ReassessResult{
		Client:        c,
		Assessment:    assessment,
		PreviousScore: previous,
		Plan:          plan,
		Factors:       scoring.Explain(answers),
		Action:        action,
	}, nil
}

// Assessments returns a client's assessment history, oldest first.
func (b *Broker) Assessments(ctx context.Context, clientID uuid.UUID) ([]AssessmentView, error) {
	if _, err := b.getClient(ctx, clientID); err != nil {
		return nil, err
	}
	list, err := b.store.ListAssessments(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	out := make([]AssessmentView, 0, len(list))
	for _, a := range list {
		out = append(out, AssessmentView{Assessment: a, Factors: scoring.Explain(a.Answers)})
	}
	return out, nil
}

package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/config"
	"github.com/MikeSquared-Agency/Intake/internal/hermes"
	"github.com/MikeSquared-Agency/Intake/internal/metrics"
	"github.com/MikeSquared-Agency/Intake/internal/routing"
	"github.com/MikeSquared-Agency/Intake/internal/scans"
	"github.com/MikeSquared-Agency/Intake/internal/scoring"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

const nextSteps = "Your caseworker will contact you within 24-72 hours."

type Broker struct {
	store   store.Store
	hermes  hermes.Client
	router  *routing.Router
	scorer  *scoring.Scorer
	scans   scans.Counter
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, h hermes.Client, counter scans.Counter, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Broker {
	if counter == nil {
		counter = scans.NewStoreCounter(s)
	}
	return &Broker{
		store:   s,
		hermes:  h,
		router:  routing.NewRouter(s, logger),
		scorer:  scoring.NewScorer(time.Now, logger),
		scans:   counter,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

func (b *Broker) Start(ctx context.Context) {
	if !b.cfg.Assignment.SweepEnabled {
		b.logger.Info("unassigned sweep disabled")
		return
	}
	b.wg.Add(1)
	go b.sweepLoop(ctx)
}

func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

// ClientProfile is the non-scored part of an intake form.
type ClientProfile struct {
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	MiddleName       string     `json:"middle_name,omitempty"`
	PreferredName    string     `json:"preferred_name,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	Email            string     `json:"email,omitempty"`
	PreferredContact string     `json:"preferred_contact,omitempty"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Gender           string     `json:"gender,omitempty"`
	Race             []string   `json:"race,omitempty"`
	Ethnicity        string     `json:"ethnicity,omitempty"`
	VeteranStatus    *bool      `json:"veteran_status,omitempty"`
	PrimaryLanguage  string     `json:"primary_language,omitempty"`
	NeedsInterpreter bool       `json:"needs_interpreter,omitempty"`
}

type IntakeSubmission struct {
	QRCode  string             `json:"qr_code"`
	Profile ClientProfile      `json:"profile"`
	Answers scoring.RawAnswers `json:"intake_data"`
}

type IntakeResult struct {
	Client     *store.Client            `json:"client"`
	Assessment *store.Assessment        `json:"assessment"`
	Plan       scoring.InterventionPlan `json:"recommendations"`
	Factors    []scoring.FactorResult   `json:"factors"`
	Caseworker *store.Caseworker        `json:"caseworker,omitempty"`
	Action     *store.ActionItem        `json:"action_item,omitempty"`
}

type IntakeStart struct {
	QRCode           string `json:"qr_code"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	Location         string `json:"location"`
	Zone             string `json:"zone"`
	IntakeURL        string `json:"intake_url"`
	ScanCount        int64  `json:"scan_count"`
}

type IntakeStatus struct {
	ClientID           uuid.UUID                   `json:"client_id"`
	Status             store.ClientStatus          `json:"status"`
	IntakeCompleted    bool                        `json:"intake_completed"`
	CaseworkerAssigned bool                        `json:"caseworker_assigned"`
	Score              *scoring.VulnerabilityScore `json:"vi_spdat_score,omitempty"`
	NextSteps          string                      `json:"next_steps"`
}

// StartIntake validates a scanned QR code and counts the scan.
func (b *Broker) StartIntake(ctx context.Context, code string) (*IntakeStart, error) {
	qr, err := b.activeQRCode(ctx, code)
	if err != nil {
		return nil, err
	}

	count, err := b.scans.Increment(ctx, code)
	if err != nil {
		b.logger.Warn("failed to count qr scan", "qr_code", code, "error", err)
	}
	b.metrics.IncQRScan()

	org, err := b.store.GetOrganization(ctx, qr.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	if org == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrganizationNotFound, qr.OrganizationID)
	}

	return &IntakeStart{
		QRCode:           code,
		OrganizationID:   qr.OrganizationID,
		OrganizationName: org.Name,
		Location:         qr.Location,
		Zone:             b.zoneFor(qr),
		IntakeURL:        "/intake/form/" + code,
		ScanCount:        count,
	}, nil
}

// Submit runs one intake end to end: score, recommend, route, persist.
// An uncovered zone is not an error; the client is stored without a
// caseworker and no action item is created.
func (b *Broker) Submit(ctx context.Context, sub IntakeSubmission) (*IntakeResult, error) {
	started := b.now()

	qr, err := b.activeQRCode(ctx, sub.QRCode)
	if err != nil {
		return nil, err
	}

	answers := scoring.NewIntakeAnswers(sub.Answers)
	score := b.scorer.Score(answers)
	plan := scoring.RecommendIntervention(score)
	zone := b.zoneFor(qr)

	cw, err := b.router.AssignCaseworker(ctx, qr.OrganizationID, zone)
	if err != nil {
		return nil, fmt.Errorf("assign caseworker: %w", err)
	}

	completedAt := score.CalculatedAt
	client := &store.Client{
		ID:                 uuid.New(),
		OrganizationID:     qr.OrganizationID,
		QRCode:             qr.Code,
		Zone:               zone,
		Status:             store.ClientStatusAssessed,
		IntakeAnswers:      &answers,
		VulnerabilityScore: &score,
		IntakeCompletedAt:  &completedAt,
	}
	applyProfile(client, sub.Profile)
	if cw != nil {
		id := cw.ID
		client.AssignedCaseworkerID = &id
	}

	assessment := &store.Assessment{
		ID:       uuid.New(),
		ClientID: client.ID,
		Answers:  answers,
		Score:    score,
		Plan:     plan,
	}

	var action *store.ActionItem
	if cw != nil {
		action = routing.BuildActionItem(client, cw.ID, score, plan)
	}

	if err := b.store.RecordIntake(ctx, &store.IntakeRecord{
		Client:     client,
		Assessment: assessment,
		Action:     action,
	}); err != nil {
		return nil, fmt.Errorf("record intake: %w", err)
	}

	b.publish(hermes.SubjectClientAssessed(client.ID.String()), hermes.ClientAssessedEvent{
		ClientID:       client.ID.String(),
		AssessmentID:   assessment.ID.String(),
		OrganizationID: client.OrganizationID,
		Zone:           zone,
		TotalScore:     score.TotalScore,
		AcuityTier:     score.AcuityTier,
		HousingType:    score.RecommendedHousingType,
		Timestamp:      score.CalculatedAt,
	})
	if cw != nil {
		b.publishAssigned(client, cw.ID, "intake")
		b.publishActionCreated(action)
	} else {
		b.metrics.IncUnassigned()
		b.publish(hermes.SubjectClientUnassigned(client.ID.String()), hermes.ClientUnassignedEvent{
			ClientID:       client.ID.String(),
			OrganizationID: client.OrganizationID,
			Zone:           zone,
			AcuityTier:     score.AcuityTier,
		})
	}
	b.metrics.ObserveSubmission(string(score.AcuityTier), score.TotalScore, b.now().Sub(started))

	b.logger.Info("intake completed",
		"client_id", client.ID,
		"score", score.TotalScore,
		"acuity", score.AcuityTier,
		"caseworker_id", caseworkerID(cw),
	)

	return &IntakeResult{
		Client:     client,
		Assessment: assessment,
		Plan:       plan,
		Factors:    scoring.Explain(answers),
		Caseworker: cw,
		Action:     action,
	}, nil
}

// Status reports where a submitted intake stands.
func (b *Broker) Status(ctx context.Context, clientID uuid.UUID) (*IntakeStatus, error) {
	c, err := b.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &IntakeStatus{
		ClientID:           c.ID,
		Status:             c.Status,
		IntakeCompleted:    c.IntakeCompletedAt != nil,
		CaseworkerAssigned: c.AssignedCaseworkerID != nil,
		Score:              c.VulnerabilityScore,
		NextSteps:          nextSteps,
	}, nil
}

// QRCode returns a code, active or not, with scan figures read from the
// scan counter, which may be ahead of the stored row when redis is in use.
func (b *Broker) QRCode(ctx context.Context, code string) (*store.QRCode, error) {
	qr, err := b.store.GetQRCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	if qr == nil {
		return nil, ErrQRCodeNotFound
	}
	out := *qr
	if n, err := b.scans.Count(ctx, code); err != nil {
		b.logger.Warn("failed to read qr scan count", "qr_code", code, "error", err)
	} else {
		out.ScanCount = n
	}
	if last, err := b.scans.LastScannedAt(ctx, code); err != nil {
		b.logger.Warn("failed to read qr last scan", "qr_code", code, "error", err)
	} else if last != nil {
		out.LastScannedAt = last
	}
	return &out, nil
}

// SetupSubscriptions feeds intake requests from the bus into Submit.
func (b *Broker) SetupSubscriptions() {
	if b.hermes == nil {
		return
	}

	_ = b.hermes.Subscribe(hermes.SubjectIntakeRequest, func(_ string, data []byte) {
		var req hermes.IntakeRequestEvent
		if err := json.Unmarshal(data, &req); err != nil {
			b.logger.Warn("invalid intake request event", "error", err)
			return
		}
		if req.QRCode == "" {
			b.logger.Warn("intake request without qr code", "source", req.Source)
			return
		}
		res, err := b.Submit(context.Background(), submissionFromEvent(req))
		if err != nil {
			b.logger.Error("failed to process intake from NATS request", "qr_code", req.QRCode, "error", err)
			return
		}
		b.logger.Info("intake created from NATS request", "client_id", res.Client.ID, "source", req.Source)
	})
}

func submissionFromEvent(req hermes.IntakeRequestEvent) IntakeSubmission {
	return IntakeSubmission{
		QRCode: req.QRCode,
		Profile: ClientProfile{
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			MiddleName:       req.MiddleName,
			PreferredName:    req.PreferredName,
			Phone:            req.Phone,
			Email:            req.Email,
			PreferredContact: req.PreferredContact,
			PrimaryLanguage:  req.PrimaryLanguage,
			NeedsInterpreter: req.NeedsInterpreter,
		},
		Answers: req.IntakeData,
	}
}

func (b *Broker) activeQRCode(ctx context.Context, code string) (*store.QRCode, error) {
	qr, err := b.store.GetQRCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	if qr == nil || !qr.Active {
		return nil, ErrInvalidQRCode
	}
	return qr, nil
}

func (b *Broker) getClient(ctx context.Context, id uuid.UUID) (*store.Client, error) {
	c, err := b.store.GetClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	if c == nil {
		return nil, ErrClientNotFound
	}
	return c, nil
}

func (b *Broker) zoneFor(qr *store.QRCode) string {
	if qr.Zone != "" {
		return qr.Zone
	}
	if b.cfg.Assignment.DefaultZone != "" {
		return b.cfg.Assignment.DefaultZone
	}
	return store.DefaultZone
}

func applyProfile(c *store.Client, p ClientProfile) {
	c.FirstName = p.FirstName
	c.LastName = p.LastName
	c.MiddleName = p.MiddleName
	c.PreferredName = p.PreferredName
	c.Phone = p.Phone
	c.Email = p.Email
	c.PreferredContact = p.PreferredContact
	if c.PreferredContact == "" {
		c.PreferredContact = "phone"
	}
	c.DateOfBirth = p.DateOfBirth
	c.Gender = p.Gender
	c.Race = p.Race
	c.Ethnicity = p.Ethnicity
	c.VeteranStatus = p.VeteranStatus
	c.PrimaryLanguage = p.PrimaryLanguage
	if c.PrimaryLanguage == "" {
		c.PrimaryLanguage = "english"
	}
	c.NeedsInterpreter = p.NeedsInterpreter
}

func (b *Broker) publish(subject string, v interface{}) {
	if b.hermes == nil {
		return
	}
	_ = b.hermes.Publish(subject, v)
}

func (b *Broker) publishAssigned(c *store.Client, caseworkerID, source string) {
	b.publish(hermes.SubjectClientAssigned(c.ID.String()), hermes.ClientAssignedEvent{
		ClientID:       c.ID.String(),
		CaseworkerID:   caseworkerID,
		OrganizationID: c.OrganizationID,
		Zone:           c.Zone,
		Source:         source,
	})
}

func (b *Broker) publishActionCreated(a *store.ActionItem) {
	if a == nil {
		return
	}
	b.metrics.IncActionCreated(string(a.ActionType))
	b.publish(hermes.SubjectActionCreated(a.CaseworkerID), hermes.ActionCreatedEvent{
		ActionID:     a.ID.String(),
		CaseworkerID: a.CaseworkerID,
		ClientID:     a.ClientID.String(),
		ActionType:   string(a.ActionType),
		Priority:     a.Priority,
	})
}

func caseworkerID(cw *store.Caseworker) string {
	if cw == nil {
		return ""
	}
	return cw.ID
}

// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/store"
)

var _ store.Store = (*Memory)(nil)

// Memory mirrors the ordering and nil-on-missing behavior of PostgresStore.
type Memory struct {
	mu          sync.Mutex
	orgs        map[string]*store.Organization
	caseworkers []*store.Caseworker
	qrCodes     map[string]*store.QRCode
	clients     []*store.Client
	assessments []*store.Assessment
	actions     []*store.ActionItem

	// Err, when set, is returned by every method.
	Err error

	now func() time.Time
}

func NewMemory() *Memory {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	return &Memory{
		orgs:    make(map[string]*store.Organization),
		qrCodes: make(map[string]*store.QRCode),
		now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

func (m *Memory) CreateOrganization(_ context.Context, org *store.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.orgs[org.ID]; ok {
		return errors.New("organization exists")
	}
	org.CreatedAt = m.now()
	m.orgs[org.ID] = org
	return nil
}

func (m *Memory) GetOrganization(_ context.Context, id string) (*store.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.orgs[id], nil
}

func (m *Memory) CreateCaseworker(_ context.Context, cw *store.Caseworker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, c := range m.caseworkers {
		if c.ID == cw.ID {
			return errors.New("caseworker exists")
		}
	}
	cw.CreatedAt = m.now()
	m.caseworkers = append(m.caseworkers, cw)
	return nil
}

func (m *Memory) GetCaseworker(_ context.Context, id string) (*store.Caseworker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.caseworkers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListCaseworkers(_ context.Context, f store.CaseworkerFilter) ([]*store.Caseworker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*store.Caseworker
	for _, c := range m.caseworkers {
		if f.OrganizationID != "" && c.OrganizationID != f.OrganizationID {
			continue
		}
		if f.Zone != "" && !c.CoversZone(f.Zone) {
			continue
		}
		if f.ActiveOnly && !c.Active {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) CreateQRCode(_ context.Context, qr *store.QRCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.qrCodes[qr.Code]; ok {
		return errors.New("qr code exists")
	}
	qr.CreatedAt = m.now()
	m.qrCodes[qr.Code] = qr
	return nil
}

func (m *Memory) GetQRCode(_ context.Context, code string) (*store.QRCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.qrCodes[code], nil
}

func (m *Memory) IncrementQRScan(_ context.Context, code string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	qr, ok := m.qrCodes[code]
	if !ok {
		return 0, nil
	}
	qr.ScanCount++
	qr.LastScannedAt = &at
	return qr.ScanCount, nil
}

func (m *Memory) GetClient(_ context.Context, id uuid.UUID) (*store.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.clients {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) filterClients(f store.ClientFilter) []*store.Client {
	var out []*store.Client
	for _, c := range m.clients {
		if f.OrganizationID != "" && c.OrganizationID != f.OrganizationID {
			continue
		}
		if f.CaseworkerID != "" && (c.AssignedCaseworkerID == nil || *c.AssignedCaseworkerID != f.CaseworkerID) {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.Unassigned && c.AssignedCaseworkerID != nil {
			continue
		}
		if f.After != nil && !cursorLess(*f.After, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *Memory) ListClients(_ context.Context, f store.ClientFilter) ([]*store.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	matched := m.filterClients(f)
	sort.SliceStable(matched, func(i, j int) bool {
		if f.Unassigned {
			return cursorLess(store.ClientCursor{CreatedAt: matched[i].CreatedAt, ID: matched[i].ID}, matched[j])
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]*store.Client, 0, len(matched))
	for _, c := range matched {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

// cursorLess orders by (created_at, id) the way postgres compares row values.
func cursorLess(cur store.ClientCursor, c *store.Client) bool {
	if !cur.CreatedAt.Equal(c.CreatedAt) {
		return cur.CreatedAt.Before(c.CreatedAt)
	}
	return bytes.Compare(cur.ID[:], c.ID[:]) < 0
}

func (m *Memory) CountClients(_ context.Context, f store.ClientFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return len(m.filterClients(f)), nil
}

func (m *Memory) UpdateClient(_ context.Context, id uuid.UUID, upd store.ClientUpdate) (*store.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.clients {
		if c.ID != id {
			continue
		}
		if upd.Status != nil {
			c.Status = *upd.Status
		}
		if upd.MatchedHousingID != nil {
			c.MatchedHousingID = *upd.MatchedHousingID
		}
		if upd.HousingPlacedAt != nil {
			at := *upd.HousingPlacedAt
			c.HousingPlacedAt = &at
		}
		if upd.Note != "" {
			c.Notes = append(append([]string{}, c.Notes...), upd.Note)
		}
		c.UpdatedAt = m.now()
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *Memory) ListAssessments(_ context.Context, clientID uuid.UUID) ([]*store.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*store.Assessment
	for _, a := range m.assessments {
		if a.ClientID == clientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) ListActionItems(_ context.Context, f store.ActionItemFilter) ([]*store.ActionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []*store.ActionItem
	for _, a := range m.actions {
		if f.CaseworkerID != "" && a.CaseworkerID != f.CaseworkerID {
			continue
		}
		if f.Completed != nil && a.Completed != *f.Completed {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) CompleteActionItem(_ context.Context, caseworkerID string, id uuid.UUID, notes string, at time.Time) (*store.ActionItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, false, m.Err
	}
	for _, a := range m.actions {
		if a.ID != id || a.CaseworkerID != caseworkerID {
			continue
		}
		first := !a.Completed
		a.Completed = true
		if a.CompletedAt == nil {
			a.CompletedAt = &at
		}
		if notes != "" {
			a.CompletionNotes = notes
		}
		cp := *a
		return &cp, first, nil
	}
	return nil, false, nil
}

func (m *Memory) RecordIntake(_ context.Context, rec *store.IntakeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if rec == nil || rec.Client == nil || rec.Assessment == nil {
		return errors.New("record intake: client and assessment required")
	}
	c, a := rec.Client, rec.Assessment
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.ClientID = c.ID
	c.CurrentAssessmentID = &a.ID
	now := m.now()
	c.CreatedAt, c.UpdatedAt, a.CreatedAt = now, now, now

	cp := *c
	m.clients = append(m.clients, &cp)
	m.assessments = append(m.assessments, a)
	if rec.Action != nil {
		rec.Action.ClientID = c.ID
		m.addAction(rec.Action)
	}
	return nil
}

func (m *Memory) RecordReassessment(_ context.Context, rec *store.ReassessmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	var c *store.Client
	for _, existing := range m.clients {
		if existing.ID == rec.ClientID {
			c = existing
		}
	}
	if c == nil {
		return errors.New("lock client: no rows in result set")
	}
	a := rec.Assessment
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.ClientID = c.ID
	a.CreatedAt = m.now()
	m.assessments = append(m.assessments, a)

	answers, score := a.Answers, a.Score
	c.IntakeAnswers = &answers
	c.VulnerabilityScore = &score
	c.CurrentAssessmentID = &a.ID
	c.UpdatedAt = a.CreatedAt

	if rec.Action != nil {
		rec.Action.ClientID = c.ID
		m.addAction(rec.Action)
	}
	return nil
}

func (m *Memory) AssignClient(_ context.Context, clientID uuid.UUID, caseworkerID string, action *store.ActionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, c := range m.clients {
		if c.ID != clientID {
			continue
		}
		if c.AssignedCaseworkerID != nil {
			return store.ErrAlreadyAssigned
		}
		id := caseworkerID
		c.AssignedCaseworkerID = &id
		if action != nil {
			action.ClientID = clientID
			action.CaseworkerID = caseworkerID
			m.addAction(action)
		}
		return nil
	}
	return store.ErrAlreadyAssigned
}

func (m *Memory) addAction(a *store.ActionItem) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = m.now()
	cp := *a
	m.actions = append(m.actions, &cp)
}

func (m *Memory) statusCounts(caseworkerID string) store.StatusCounts {
	counts := store.StatusCounts{}
	for _, st := range store.ClientStatuses {
		counts[st] = 0
	}
	for _, c := range m.clients {
		if caseworkerID != "" && (c.AssignedCaseworkerID == nil || *c.AssignedCaseworkerID != caseworkerID) {
			continue
		}
		counts[c.Status]++
	}
	return counts
}

func (m *Memory) GetCityMetrics(_ context.Context) (*store.CityMetrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	counts := m.statusCounts("")
	out := &store.CityMetrics{
		TotalClients:  counts.Total(),
		ByStatus:      counts,
		PlacementRate: store.PlacementRate(counts[store.ClientStatusPlaced], counts.Total()),
	}
	for _, c := range m.clients {
		if c.AssignedCaseworkerID == nil && c.Status != store.ClientStatusInactive {
			out.UnassignedClients++
		}
	}
	for _, cw := range m.caseworkers {
		if cw.Active {
			out.ActiveCaseworkers++
		}
	}
	for _, qr := range m.qrCodes {
		if qr.Active {
			out.ActiveQRCodes++
		}
	}
	return out, nil
}

func (m *Memory) GetCaseworkerStats(_ context.Context, caseworkerID string) (*store.CaseworkerStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	counts := m.statusCounts(caseworkerID)
	out := &store.CaseworkerStats{
		TotalClients:  counts.Total(),
		ByStatus:      counts,
		PlacementRate: store.PlacementRate(counts[store.ClientStatusPlaced], counts.Total()),
	}
	for _, a := range m.actions {
		if a.CaseworkerID != caseworkerID || a.Completed {
			continue
		}
		out.PendingActions++
		if a.Priority >= 4 {
			out.HighPriorityActions++
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

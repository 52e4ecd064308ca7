package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Intake/internal/scoring"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDirectory struct {
	caseworkers []*store.Caseworker
	err         error
	lastFilter  store.CaseworkerFilter
}

func (f *fakeDirectory) ListCaseworkers(_ context.Context, filter store.CaseworkerFilter) ([]*store.Caseworker, error) {
	f.lastFilter = filter
	return f.caseworkers, f.err
}

func demoRoster() []*store.Caseworker {
	return []*store.Caseworker{
		{ID: "cw_demo_1", OrganizationID: "org_demo", Zones: []string{"downtown", "north"}, Active: true},
		{ID: "cw_demo_2", OrganizationID: "org_demo", Zones: []string{"west", "east"}, Active: true},
		{ID: "cw_other", OrganizationID: "org_other", Zones: []string{"downtown"}, Active: true},
	}
}

func TestMatch(t *testing.T) {
	roster := demoRoster()
	tests := []struct {
		name string
		org  string
		zone string
		want string
	}{
		{"downtown", "org_demo", "downtown", "cw_demo_1"},
		{"north", "org_demo", "north", "cw_demo_1"},
		{"east", "org_demo", "east", "cw_demo_2"},
		{"no zone coverage", "org_demo", "south", ""},
		{"other org same zone", "org_other", "downtown", "cw_other"},
		{"unknown org", "org_missing", "downtown", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cw := Match(roster, tt.org, tt.zone)
			if tt.want == "" {
				assert.Nil(t, cw)
				return
			}
			require.NotNil(t, cw)
			assert.Equal(t, tt.want, cw.ID)
		})
	}
}

func TestMatchFirstInDirectoryOrder(t *testing.T) {
	roster := []*store.Caseworker{
		{ID: "first", OrganizationID: "org", Zones: []string{"z"}, Active: true},
		{ID: "second", OrganizationID: "org", Zones: []string{"z"}, Active: true},
	}
	assert.Equal(t, "first", Match(roster, "org", "z").ID)
}

func TestMatchSkipsInactive(t *testing.T) {
	roster := []*store.Caseworker{
		{ID: "inactive", OrganizationID: "org", Zones: []string{"z"}, Active: false},
		{ID: "active", OrganizationID: "org", Zones: []string{"z"}, Active: true},
	}
	assert.Equal(t, "active", Match(roster, "org", "z").ID)
}

func TestMatchEmptyZoneSet(t *testing.T) {
	roster := []*store.Caseworker{{ID: "cw", OrganizationID: "org", Active: true}}
	assert.Nil(t, Match(roster, "org", "default"))
}

func TestAssignCaseworker(t *testing.T) {
	dir := &fakeDirectory{caseworkers: demoRoster()}
	r := NewRouter(dir, discardLogger())

	cw, err := r.AssignCaseworker(context.Background(), "org_demo", "west")
	require.NoError(t, err)
	require.NotNil(t, cw)
	assert.Equal(t, "cw_demo_2", cw.ID)
	assert.Equal(t, store.CaseworkerFilter{OrganizationID: "org_demo", Zone: "west", ActiveOnly: true}, dir.lastFilter)
}

func TestAssignCaseworkerNoCoverage(t *testing.T) {
	r := NewRouter(&fakeDirectory{caseworkers: demoRoster()}, discardLogger())
	cw, err := r.AssignCaseworker(context.Background(), "org_demo", "harbor")
	assert.NoError(t, err)
	assert.Nil(t, cw)
}

func TestAssignCaseworkerDefaultZone(t *testing.T) {
	dir := &fakeDirectory{}
	r := NewRouter(dir, discardLogger())
	_, err := r.AssignCaseworker(context.Background(), "org_demo", "")
	require.NoError(t, err)
	assert.Equal(t, store.DefaultZone, dir.lastFilter.Zone)
}

func TestAssignCaseworkerDirectoryError(t *testing.T) {
	r := NewRouter(&fakeDirectory{err: errors.New("connection refused")}, discardLogger())
	cw, err := r.AssignCaseworker(context.Background(), "org_demo", "downtown")
	assert.Error(t, err)
	assert.Nil(t, cw)
}

func TestPriorityFor(t *testing.T) {
	assert.Equal(t, 5, PriorityFor(scoring.AcuityHigh))
	assert.Equal(t, 3, PriorityFor(scoring.AcuityMedium))
	assert.Equal(t, 3, PriorityFor(scoring.AcuityLow))
}

func TestBuildActionItem(t *testing.T) {
	client := &store.Client{ID: uuid.New(), FirstName: "Jane", LastName: "Doe"}
	score := scoring.VulnerabilityScore{TotalScore: 9, AcuityTier: scoring.AcuityHigh, RecommendedHousingType: scoring.HousingPermanentSupportive}
	plan := scoring.RecommendIntervention(score)

	item := BuildActionItem(client, "cw_demo_1", score, plan)
	assert.Equal(t, client.ID, item.ClientID)
	assert.Equal(t, "cw_demo_1", item.CaseworkerID)
	assert.Equal(t, "Jane Doe", item.ClientName)
	assert.Equal(t, store.ActionInitialContact, item.ActionType)
	assert.Equal(t, 5, item.Priority)
	assert.Equal(t, "New intake: high acuity, score 9/17", item.Description)
	assert.False(t, item.Completed)
	require.NotNil(t, item.Recommendations)
	assert.Equal(t, plan.Timeline, item.Recommendations.Timeline)
}

func TestBuildActionItemMediumPriority(t *testing.T) {
	client := &store.Client{ID: uuid.New(), FirstName: "A", LastName: "B"}
	score := scoring.CalculateScore(scoring.IntakeAnswers{
		ChronicHealth:         true,
		SubstanceUse:          true,
		HasIncome:             true,
		HasID:                 true,
		HasSocialSecurityCard: true,
		HasFamilySupport:      true,
	})
	require.Equal(t, scoring.AcuityMedium, score.AcuityTier)

	item := BuildActionItem(client, "cw", score, scoring.RecommendIntervention(score))
	assert.Equal(t, 3, item.Priority)
	assert.Equal(t, "New intake: medium acuity, score 4/17", item.Description)
}

func TestBuildFollowUpItem(t *testing.T) {
	client := &store.Client{ID: uuid.New(), FirstName: "Jane", LastName: "Doe"}
	score := scoring.VulnerabilityScore{TotalScore: 2, AcuityTier: scoring.AcuityLow}
	item := BuildFollowUpItem(client, "cw", score, scoring.RecommendIntervention(score))
	assert.Equal(t, store.ActionFollowUp, item.ActionType)
	assert.Equal(t, 3, item.Priority)
	assert.Equal(t, "Reassessment: low acuity, score 2/17", item.Description)
}

func TestSortQueue(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	items := []*store.ActionItem{
		{Description: "low-old", Priority: 3, CreatedAt: base},
		{Description: "high-new", Priority: 5, CreatedAt: base.Add(2 * time.Hour)},
		{Description: "low-new", Priority: 3, CreatedAt: base.Add(time.Hour)},
		{Description: "high-old", Priority: 5, CreatedAt: base.Add(30 * time.Minute)},
	}
	SortQueue(items)

	var got []string
	for _, it := range items {
		got = append(got, it.Description)
	}
	assert.Equal(t, []string{"high-old", "high-new", "low-old", "low-new"}, got)
}

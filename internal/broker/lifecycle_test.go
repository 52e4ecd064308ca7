package broker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Intake/internal/hermes"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

func statusPtr(s store.ClientStatus) *store.ClientStatus { return &s }
func strPtr(s string) *string                           { return &s }

func TestUpdateClientLifecycle(t *testing.T) {
	b, mem, h := setup(t)
	reg := withMetrics(b)
	ctx := context.Background()
	addCaseworker(t, mem, "cw_1", "org_1", true, "downtown")

	res, err := b.Submit(ctx, submission("QR_DT", highAnswers()))
	require.NoError(t, err)
	id := res.Client.ID

	c, err := b.UpdateClient(ctx, "cw_1", id, ClientUpdate{
		Status:           statusPtr(store.ClientStatusMatched),
		MatchedHousingID: strPtr("unit_42"),
		Note:             "matched to PSH unit",
	})
	require.NoError(t, err)
	assert.Equal(t, store.ClientStatusMatched, c.Status)
	assert.Equal(t, "unit_42", c.MatchedHousingID)
	assert.Equal(t, []string{"matched to PSH unit"}, c.Notes)
	assert.Nil(t, c.HousingPlacedAt)

	c, err = b.UpdateClient(ctx, "cw_1", id, ClientUpdate{Status: statusPtr(store.ClientStatusPlaced)})
	require.NoError(t, err)
	assert.Equal(t, store.ClientStatusPlaced, c.Status)
	require.NotNil(t, c.HousingPlacedAt)
	assert.Equal(t, "unit_42", c.MatchedHousingID)

	// A note alone leaves the status alone.
	c, err = b.UpdateClient(ctx, "cw_1", id, ClientUpdate{Note: "moved in"})
	require.NoError(t, err)
	assert.Equal(t, store.ClientStatusPlaced, c.Status)
	assert.Len(t, c.Notes, 2)

	assert.Equal(t, 3, h.count(hermes.SubjectClientUpdated(id.String())))
	assert.Equal(t, 2.0, metricValue(t, reg, "intake_client_status_changes_total"))

	metrics, err := b.CityMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Overview.ByStatus[store.ClientStatusPlaced])
	assert.InDelta(t, 100.0, metrics.Overview.PlacementRate, 0.001)
}

func TestUpdateClientKeepsExplicitMoveIn(t *testing.T) {
	b, mem, _ := setup(t)
	ctx := context.Background()
	addCaseworker(t, mem, "cw_1", "org_1", true, "downtown")

	res, err := b.Submit(ctx, submission("QR_DT", lowAnswers()))
	require.NoError(t, err)

	moveIn := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c, err := b.UpdateClient(ctx, "cw_1", res.Client.ID, ClientUpdate{
		Status:          statusPtr(store.ClientStatusPlaced),
		HousingPlacedAt: &moveIn,
	})
	require.NoError(t, err)
	require.NotNil(t, c.HousingPlacedAt)
	assert.True(t, c.HousingPlacedAt.Equal(moveIn))
}

func TestUpdateClientRejects(t *testing.T) {
	b, mem, _ := setup(t)
	ctx := context.Background()
	addCaseworker(t, mem, "cw_1", "org_1", true, "downtown")
	addCaseworker(t, mem, "cw_2", "org_1", true, "north")

	res, err := b.Submit(ctx, submission("QR_DT", lowAnswers()))
	require.NoError(t, err)
	id := res.Client.ID

	tests := []struct {
		name       string
		caseworker string
		client     uuid.UUID
		upd        ClientUpdate
		want       error
	}{
		{"empty", "cw_1", id, ClientUpdate{}, ErrInvalidUpdate},
		{"unknown status", "cw_1", id, ClientUpdate{Status: statusPtr("housed")}, ErrInvalidUpdate},
		{"back to intake", "cw_1", id, ClientUpdate{Status: statusPtr(store.ClientStatusIntake)}, ErrInvalidUpdate},
		{"other caseworker", "cw_2", id, ClientUpdate{Status: statusPtr(store.ClientStatusMatched)}, ErrNotAssigned},
		{"missing client", "cw_1", uuid.New(), ClientUpdate{Note: "x"}, ErrClientNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.UpdateClient(ctx, tt.caseworker, tt.client, tt.upd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stored, err := mem.GetClient(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.ClientStatusAssessed, stored.Status)
}

func TestQRCodeReadsScanCounter(t *testing.T) {
	b, _, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := b.StartIntake(ctx, "QR_DT")
		require.NoError(t, err)
	}

	qr, err := b.QRCode(ctx, "QR_DT")
	require.NoError(t, err)
	assert.Equal(t, int64(3), qr.ScanCount)
	assert.NotNil(t, qr.LastScannedAt)

	off, err := b.QRCode(ctx, "QR_OFF")
	require.NoError(t, err)
	assert.False(t, off.Active)
	assert.Equal(t, int64(0), off.ScanCount)

	_, err = b.QRCode(ctx, "QR_NOPE")
	assert.ErrorIs(t, err, ErrQRCodeNotFound)
}

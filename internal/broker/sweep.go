package broker

import (
	"context"
	"errors"
	"time"

	"github.com/MikeSquared-Agency/Intake/internal/hermes"
	"github.com/MikeSquared-Agency/Intake/internal/routing"
	"github.com/MikeSquared-Agency/Intake/internal/scoring"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

func (b *Broker) sweepLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.SweepUnassigned(ctx)
			b.PublishStats(ctx)
		}
	}
}

// SweepUnassigned retries routing for assessed clients that had no caseworker
// at intake time, oldest first. It pages through every unassigned client in
// batches so clients in still-uncovered zones cannot starve newer ones. It
// returns how many were assigned.
func (b *Broker) SweepUnassigned(ctx context.Context) int {
	status := store.ClientStatusAssessed
	batch := b.cfg.Assignment.SweepBatchSize
	if batch <= 0 {
		batch = 50
	}

	assigned := 0
	var after *store.ClientCursor
	for {
		clients, err := b.store.ListClients(ctx, store.ClientFilter{
			Status:     &status,
			Unassigned: true,
			After:      after,
			Limit:      batch,
		})
		if err != nil {
			b.logger.Error("failed to list unassigned clients", "error", err)
			return assigned
		}
		for _, c := range clients {
			if b.sweepClient(ctx, c) {
				assigned++
			}
		}
		if len(clients) < batch || ctx.Err() != nil {
			return assigned
		}
		last := clients[len(clients)-1]
		after = &store.ClientCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}

func (b *Broker) sweepClient(ctx context.Context, c *store.Client) bool {
	if c.VulnerabilityScore == nil {
		return false
	}
	cw, err := b.router.AssignCaseworker(ctx, c.OrganizationID, c.Zone)
	if err != nil {
		b.logger.Error("sweep routing failed", "client_id", c.ID, "error", err)
		return false
	}
	if cw == nil {
		return false
	}

	score := *c.VulnerabilityScore
	action := routing.BuildActionItem(c, cw.ID, score, scoring.RecommendIntervention(score))
	if err := b.store.AssignClient(ctx, c.ID, cw.ID, action); err != nil {
		if errors.Is(err, store.ErrAlreadyAssigned) {
			b.logger.Debug("client assigned concurrently", "client_id", c.ID)
			return false
		}
		b.logger.Error("failed to assign client", "client_id", c.ID, "error", err)
		return false
	}

	id := cw.ID
	c.AssignedCaseworkerID = &id
	b.publishAssigned(c, cw.ID, "sweep")
	b.publishActionCreated(action)
	b.metrics.IncSweepAssigned()

	b.logger.Info("unassigned client routed", "client_id", c.ID, "caseworker_id", cw.ID, "zone", c.Zone)
	return true
}

// PublishStats emits a city-wide snapshot on the bus.
func (b *Broker) PublishStats(ctx context.Context) {
	if b.hermes == nil {
		return
	}
	m, err := b.store.GetCityMetrics(ctx)
	if err != nil {
		b.logger.Warn("failed to load city metrics for stats", "error", err)
		return
	}
	b.publish(hermes.SubjectIntakeStats, hermes.StatsEvent{
		TotalClients:      m.TotalClients,
		Unassigned:        m.UnassignedClients,
		PlacementRate:     m.PlacementRate,
		ActiveCaseworkers: m.ActiveCaseworkers,
		Timestamp:         b.now().UTC(),
	})
}

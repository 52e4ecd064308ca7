package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/hermes"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

// ClientUpdate is a caseworker's edit to one of their clients.
type ClientUpdate struct {
	Status           *store.ClientStatus
	Note             string
	MatchedHousingID *string
	HousingPlacedAt  *time.Time
}

func (u ClientUpdate) empty() bool {
	return u.Status == nil && u.Note == "" && u.MatchedHousingID == nil && u.HousingPlacedAt == nil
}

// UpdateClient moves an assigned client through the lifecycle and records
// housing progress. A client cannot be sent back to intake. Placing a client
// without a move-in time stamps it now.
func (b *Broker) UpdateClient(ctx context.Context, caseworkerID string, clientID uuid.UUID, upd ClientUpdate) (*store.Client, error) {
	if upd.empty() {
		return nil, fmt.Errorf("%w: nothing to change", ErrInvalidUpdate)
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidUpdate, *upd.Status)
		}
		if *upd.Status == store.ClientStatusIntake {
			return nil, fmt.Errorf("%w: cannot return a client to intake", ErrInvalidUpdate)
		}
	}

	prev, err := b.Client(ctx, caseworkerID, clientID)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil && *upd.Status == store.ClientStatusPlaced &&
		upd.HousingPlacedAt == nil && prev.HousingPlacedAt == nil {
		now := b.now().UTC()
		upd.HousingPlacedAt = &now
	}

	c, err := b.store.UpdateClient(ctx, clientID, store.ClientUpdate{
		Status:           upd.Status,
		Note:             upd.Note,
		MatchedHousingID: upd.MatchedHousingID,
		HousingPlacedAt:  upd.HousingPlacedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	if c == nil {
		return nil, ErrClientNotFound
	}

	if c.Status != prev.Status {
		b.metrics.IncStatusChange(string(c.Status))
	}
	b.publish(hermes.SubjectClientUpdated(c.ID.String()), hermes.ClientUpdatedEvent{
		ClientID:         c.ID.String(),
		CaseworkerID:     caseworkerID,
		PreviousStatus:   string(prev.Status),
		Status:           string(c.Status),
		MatchedHousingID: c.MatchedHousingID,
		Timestamp:        b.now().UTC(),
	})

	b.logger.Info("client updated",
		"client_id", c.ID,
		"caseworker_id", caseworkerID,
		"from", prev.Status,
		"to", c.Status,
	)
	return c, nil
}

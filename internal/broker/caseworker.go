package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Intake/internal/hermes"
	"github.com/MikeSquared-Agency/Intake/internal/routing"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

const (
	defaultQueueLimit = 50
	maxQueueLimit     = 100
	defaultPageSize   = 20
	maxPageSize       = 100
)

type ClientPage struct {
	Clients  []*store.Client `json:"clients"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	HasMore  bool            `json:"has_more"`
}

type CaseworkerSummary struct {
	Caseworker *store.Caseworker      `json:"caseworker"`
	Stats      *store.CaseworkerStats `json:"stats"`
}

type CityReport struct {
	Overview  *store.CityMetrics `json:"overview"`
	Timestamp time.Time          `json:"timestamp"`
}

// Queue returns a caseworker's action items, most urgent first.
func (b *Broker) Queue(ctx context.Context, caseworkerID string, completed bool, limit int) ([]*store.ActionItem, error) {
	if _, err := b.getCaseworker(ctx, caseworkerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	if limit > maxQueueLimit {
		limit = maxQueueLimit
	}

	items, err := b.store.ListActionItems(ctx, store.ActionItemFilter{
		CaseworkerID: caseworkerID,
		Completed:    &completed,
		Limit:        limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	routing.SortQueue(items)
	return items, nil
}

// Clients pages through the clients assigned to a caseworker, newest first.
func (b *Broker) Clients(ctx context.Context, caseworkerID string, status *store.ClientStatus, page, pageSize int) (*ClientPage, error) {
	if _, err := b.getCaseworker(ctx, caseworkerID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	filter := store.ClientFilter{
		CaseworkerID: caseworkerID,
		Status:       status,
		Limit:        pageSize,
		Offset:       (page - 1) * pageSize,
	}
	clients, err := b.store.ListClients(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	total, err := b.store.CountClients(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	if clients == nil {
		clients = []*store.Client{}
	}

	return &ClientPage{
		Clients:  clients,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  page*pageSize < total,
	}, nil
}

// Client returns one client, provided it is assigned to the caseworker.
func (b *Broker) Client(ctx context.Context, caseworkerID string, clientID uuid.UUID) (*store.Client, error) {
	c, err := b.getClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if c.AssignedCaseworkerID == nil || *c.AssignedCaseworkerID != caseworkerID {
		return nil, ErrNotAssigned
	}
	return c, nil
}

// CompleteAction marks an item done. Completing twice keeps the first
// completion time; only the first call emits the event and metric.
func (b *Broker) CompleteAction(ctx context.Context, caseworkerID string, actionID uuid.UUID, notes string) (*store.ActionItem, error) {
	item, first, err := b.store.CompleteActionItem(ctx, caseworkerID, actionID, notes, b.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("complete action item: %w", err)
	}
	if item == nil {
		return nil, ErrActionNotFound
	}
	if !first {
		b.logger.Debug("action item already completed", "action_id", item.ID, "caseworker_id", caseworkerID)
		return item, nil
	}

	completedAt := b.now().UTC()
	if item.CompletedAt != nil {
		completedAt = *item.CompletedAt
	}
	b.publish(hermes.SubjectActionCompleted(caseworkerID), hermes.ActionCompletedEvent{
		ActionID:     item.ID.String(),
		CaseworkerID: caseworkerID,
		ClientID:     item.ClientID.String(),
		CompletedAt:  completedAt,
	})
	b.metrics.IncActionCompleted()

	b.logger.Info("action item completed", "action_id", item.ID, "caseworker_id", caseworkerID)
	return item, nil
}

func (b *Broker) Stats(ctx context.Context, caseworkerID string) (*CaseworkerSummary, error) {
	cw, err := b.getCaseworker(ctx, caseworkerID)
	if err != nil {
		return nil, err
	}
	stats, err := b.store.GetCaseworkerStats(ctx, caseworkerID)
	if err != nil {
		return nil, fmt.Errorf("caseworker stats: %w", err)
	}
	return &CaseworkerSummary{Caseworker: cw, Stats: stats}, nil
}

func (b *Broker) CityMetrics(ctx context.Context) (*CityReport, error) {
	m, err := b.store.GetCityMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("city metrics: %w", err)
	}
	return &CityReport{Overview: m, Timestamp: b.now().UTC()}, nil
}

func (b *Broker) getCaseworker(ctx context.Context, id string) (*store.Caseworker, error) {
	cw, err := b.store.GetCaseworker(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get caseworker: %w", err)
	}
	if cw == nil {
		return nil, ErrCaseworkerNotFound
	}
	return cw, nil
}

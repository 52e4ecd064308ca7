package routing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/Intake/internal/store"
)

// Directory is the read side of the caseworker roster.
type Directory interface {
	ListCaseworkers(ctx context.Context, filter store.CaseworkerFilter) ([]*store.Caseworker, error)
}

// Match returns the first caseworker in the given order who belongs to the
// organization, is active, and covers the zone. Nil means no coverage.
func Match(caseworkers []*store.Caseworker, organizationID, zone string) *store.Caseworker {
	for _, cw := range caseworkers {
		if cw == nil || !cw.Active {
			continue
		}
		if cw.OrganizationID != organizationID {
			continue
		}
		if cw.CoversZone(zone) {
			return cw
		}
	}
	return nil
}

type Router struct {
	dir    Directory
	logger *slog.Logger
}

func NewRouter(dir Directory, logger *slog.Logger) *Router {
	return &Router{dir: dir, logger: logger}
}

// AssignCaseworker looks up a caseworker for (organizationID, zone) at call
// time. A nil caseworker with a nil error is the normal "no coverage" result.
func (r *Router) AssignCaseworker(ctx context.Context, organizationID, zone string) (*store.Caseworker, error) {
	if zone == "" {
		zone = store.DefaultZone
	}
	candidates, err := r.dir.ListCaseworkers(ctx, store.CaseworkerFilter{
		OrganizationID: organizationID,
		Zone:           zone,
		ActiveOnly:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("list caseworkers: %w", err)
	}

	cw := Match(candidates, organizationID, zone)
	if cw == nil {
		r.logger.Warn("no caseworker for zone", "organization_id", organizationID, "zone", zone)
		return nil, nil
	}
	r.logger.Info("caseworker matched", "caseworker_id", cw.ID, "organization_id", organizationID, "zone", zone)
	return cw, nil
}

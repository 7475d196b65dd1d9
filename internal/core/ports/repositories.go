package ports

import (
	"context"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

// ClientRepository is a read-only view of the CRM's client store. Client CRUD
// belongs to the CRM itself; route planning only reads.
type ClientRepository interface {
	ListByRep(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error)
	CountByRep(ctx context.Context, repID string) (int, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Client, error)
	ListWithinRadius(ctx context.Context, repID string, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Client, error)
}

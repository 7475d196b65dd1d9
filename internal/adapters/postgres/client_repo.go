package postgres

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/pkg/geospatial"
)

const clientColumns = `id, rep_id, name, COALESCE(business_type, ''), COALESCE(address, ''),
	COALESCE(phone, ''), latitude, longitude, COALESCE(metadata, '{}'), created_at`

// ClientRepo implements ports.ClientRepository with pgx. It only reads; the
// CRM owns writes to the clients table.
type ClientRepo struct {
	db *DB
}

// NewClientRepo creates a new ClientRepo.
func NewClientRepo(db *DB) *ClientRepo {
	return &ClientRepo{db: db}
}

// ListByRep returns a page of the rep's clients, newest first.
func (r *ClientRepo) ListByRep(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE rep_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, repID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectClients(rows)
}

// CountByRep returns how many clients the rep owns.
func (r *ClientRepo) CountByRep(ctx context.Context, repID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM clients WHERE rep_id = $1`, repID).Scan(&n)
	return n, err
}

// GetByIDs returns the clients with the given ids, in arbitrary order.
func (r *ClientRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	return collectClients(rows)
}

// ListWithinRadius returns the rep's located clients within radiusMeters of
// center, nearest first. The query prefilters on a bounding box and the exact
// great-circle distance is checked here.
func (r *ClientRepo) ListWithinRadius(ctx context.Context, repID string, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Client, error) {
	box := geospatial.BoundingBox(center.Lat, center.Lon, radiusMeters)

	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE rep_id = $1
		  AND latitude BETWEEN $2 AND $3
		  AND longitude BETWEEN $4 AND $5
	`, repID, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if err != nil {
		return nil, err
	}
	clients, err := collectClients(rows)
	if err != nil {
		return nil, err
	}

	return withinRadius(clients, center, radiusMeters, limit), nil
}

func withinRadius(clients []domain.Client, center domain.GeoPoint, radiusMeters float64, limit int) []domain.Client {
	type hit struct {
		c    domain.Client
		dist float64
	}
	hits := make([]hit, 0, len(clients))
	for _, c := range clients {
		if !c.Plottable() {
			continue
		}
		if d := geospatial.Distance(center, *c.Location); d <= radiusMeters {
			hits = append(hits, hit{c: c, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Client, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return out
}

func collectClients(rows pgx.Rows) ([]domain.Client, error) {
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		var lat, lon *float64
		if err := rows.Scan(
			&c.ID, &c.RepID, &c.Name, &c.BusinessType, &c.Address,
			&c.Phone, &lat, &lon, &c.Metadata, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if lat != nil && lon != nil {
			c.Location = &domain.GeoPoint{Lat: *lat, Lon: *lon}
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

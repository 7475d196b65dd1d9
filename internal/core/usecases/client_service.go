package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/core/ports"
	"github.com/samirrijal/fieldroute/internal/pkg/metrics"
)

const (
	clientTTL     = 300
	clientPageTTL = 60
)

// Nearby search radius bounds, in meters.
const (
	DefaultNearbyRadius = 5000
	MaxNearbyRadius     = 100000
)

// ClientService reads client records from the CRM store for route planning.
type ClientService struct {
	clients ports.ClientRepository
	cache   ports.CacheService
}

// NewClientService creates a new ClientService.
func NewClientService(clients ports.ClientRepository, cache ports.CacheService) *ClientService {
	return &ClientService{clients: clients, cache: cache}
}

// ClientPage is one page of a rep's clients.
type ClientPage struct {
	Clients []domain.Client
	Total   int
}

// ListByRep returns a page of the rep's clients. Unplottable clients are dropped
// from the page but still counted in Total.
func (s *ClientService) ListByRep(ctx context.Context, repID string, limit, offset int) (*ClientPage, error) {
	if repID == "" {
		return nil, fmt.Errorf("%w: rep id is required", domain.ErrInvalidInput)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	cacheKey := fmt.Sprintf("clients:rep:%s:%d:%d", repID, limit, offset)
	var page ClientPage
	if s.cacheGet(ctx, "list_by_rep", cacheKey, &page) {
		return &page, nil
	}

	clients, err := s.clients.ListByRep(ctx, repID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	total, err := s.clients.CountByRep(ctx, repID)
	if err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}

	page = ClientPage{Clients: PlottableClients(clients), Total: total}
	s.cacheSet(ctx, cacheKey, page, clientPageTTL)
	return &page, nil
}

// GetByIDs returns the requested clients in the order of ids. Unknown ids are skipped.
func (s *ClientService) GetByIDs(ctx context.Context, ids []string) ([]domain.Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	found := make(map[string]domain.Client, len(ids))
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		var c domain.Client
		if s.cacheGet(ctx, "client_by_id", "clients:id:"+id, &c) {
			found[id] = c
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		clients, err := s.clients.GetByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("get clients: %w", err)
		}
		for _, c := range clients {
			found[c.ID] = c
			s.cacheSet(ctx, "clients:id:"+c.ID, c, clientTTL)
		}
	}

	out := make([]domain.Client, 0, len(ids))
	for _, id := range ids {
		if c, ok := found[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Nearby returns the rep's clients within radiusMeters of center. A zero
// radius uses DefaultNearbyRadius; anything above MaxNearbyRadius is rejected.
func (s *ClientService) Nearby(ctx context.Context, repID string, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Client, error) {
	if !center.Valid() {
		return nil, fmt.Errorf("%w: center has invalid coordinates", domain.ErrInvalidInput)
	}
	switch {
	case radiusMeters == 0:
		radiusMeters = DefaultNearbyRadius
	case radiusMeters < 0 || radiusMeters > MaxNearbyRadius || math.IsNaN(radiusMeters):
		return nil, fmt.Errorf("%w: radius must be between 1 and %d meters", domain.ErrInvalidInput, MaxNearbyRadius)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.clients.ListWithinRadius(ctx, repID, center, radiusMeters, limit)
}

func (s *ClientService) cacheGet(ctx context.Context, op, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// Drop it so the next write replaces it.
		slog.DebugContext(ctx, "dropping undecodable cache entry", "key", key, "error", err)
		_ = s.cache.Delete(ctx, key)
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (s *ClientService) cacheSet(ctx context.Context, key string, v any, ttlSeconds int) {
	if s.cache == nil {
		return
	}
	if data, err := json.Marshal(v); err == nil {
		_ = s.cache.Set(ctx, key, data, ttlSeconds)
	}
}

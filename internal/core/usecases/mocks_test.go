package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

var (
	bengaluru = domain.GeoPoint{Lat: 12.9716, Lon: 77.5946}
	mysuru    = domain.GeoPoint{Lat: 12.2958, Lon: 76.6394}
	chennai   = domain.GeoPoint{Lat: 13.0827, Lon: 80.2707}
)

func client(id string, loc *domain.GeoPoint) domain.Client {
	return domain.Client{ID: id, RepID: "rep-1", Name: id, Location: loc}
}

func at(p domain.GeoPoint) *domain.GeoPoint { return &p }

// --- Mock DirectionsProvider ---

type mockProvider struct {
	calls        int
	lastRequest  domain.DirectionsRequest
	directionsFn func(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error)
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Directions(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error) {
	m.calls++
	m.lastRequest = req
	if m.directionsFn != nil {
		return m.directionsFn(ctx, req)
	}
	return nil, domain.ErrProviderUnavailable
}

// --- Mock ClientRepository ---

type mockClientRepo struct {
	listByRepFn  func(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error)
	countByRepFn func(ctx context.Context, repID string) (int, error)
	getByIDsFn   func(ctx context.Context, ids []string) ([]domain.Client, error)
	withinFn     func(ctx context.Context, repID string, center domain.GeoPoint, radius float64, limit int) ([]domain.Client, error)
}

func (m *mockClientRepo) ListByRep(ctx context.Context, repID string, limit, offset int) ([]domain.Client, error) {
	if m.listByRepFn != nil {
		return m.listByRepFn(ctx, repID, limit, offset)
	}
	return nil, nil
}

func (m *mockClientRepo) CountByRep(ctx context.Context, repID string) (int, error) {
	if m.countByRepFn != nil {
		return m.countByRepFn(ctx, repID)
	}
	return 0, nil
}

func (m *mockClientRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Client, error) {
	if m.getByIDsFn != nil {
		return m.getByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockClientRepo) ListWithinRadius(ctx context.Context, repID string, center domain.GeoPoint, radius float64, limit int) ([]domain.Client, error) {
	if m.withinFn != nil {
		return m.withinFn(ctx, repID, center, radius, limit)
	}
	return nil, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu       sync.Mutex
	planned  []*domain.RoutePlanned
	degraded []*domain.DegradedNotice
	requests []*domain.PlanRequest
	err      error
}

func (m *mockPublisher) PublishRoutePlanned(ctx context.Context, event *domain.RoutePlanned) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planned = append(m.planned, event)
	return m.err
}

func (m *mockPublisher) PublishDegraded(ctx context.Context, notice *domain.DegradedNotice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = append(m.degraded, notice)
	return m.err
}

func (m *mockPublisher) PublishPlanRequest(ctx context.Context, req *domain.PlanRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.err
}

// --- Mock CacheService ---

type mockCache struct {
	data    map[string][]byte
	sets    int
	deletes int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.deletes++
	delete(m.data, key)
	return nil
}

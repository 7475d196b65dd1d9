package ports

import (
	"context"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

// DirectionsProvider computes a road path through ordered waypoints.
type DirectionsProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Directions returns domain.ErrProviderUnavailable when the provider cannot
	// serve requests at all (disabled, not configured). Any other error is a
	// failed request.
	Directions(ctx context.Context, req domain.DirectionsRequest) (*domain.ProviderRoute, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishRoutePlanned(ctx context.Context, event *domain.RoutePlanned) error
	PublishDegraded(ctx context.Context, notice *domain.DegradedNotice) error
	PublishPlanRequest(ctx context.Context, req *domain.PlanRequest) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribePlanRequests(ctx context.Context, handler func(ctx context.Context, req *domain.PlanRequest) error) error
	SubscribeRoutePlanned(ctx context.Context, handler func(ctx context.Context, event *domain.RoutePlanned) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

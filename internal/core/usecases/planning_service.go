package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/core/ports"
)

// MaxPlanClients caps how many of a rep's clients a single plan may visit.
const MaxPlanClients = 100

// PlanningService computes a rep's visiting route from the CRM store and
// announces the result.
type PlanningService struct {
	clients   *ClientService
	optimizer *RouteOptimizer
	publisher ports.EventPublisher
}

// NewPlanningService creates a new PlanningService. publisher may be nil.
func NewPlanningService(clients *ClientService, optimizer *RouteOptimizer, publisher ports.EventPublisher) *PlanningService {
	return &PlanningService{clients: clients, optimizer: optimizer, publisher: publisher}
}

// Plan loads the requested clients and optimizes their route. Route failures are
// reported in the returned event's outcome; the error is only set when the
// clients could not be loaded.
func (s *PlanningService) Plan(ctx context.Context, req domain.PlanRequest) (*domain.RoutePlanned, error) {
	if req.RepID == "" {
		return nil, fmt.Errorf("%w: rep id is required", domain.ErrInvalidInput)
	}

	clients, err := s.loadClients(ctx, req)
	if err != nil {
		return nil, err
	}

	route, err := s.optimizer.Optimize(ctx, clients, req.Start, req.Mode)
	if err != nil {
		slog.InfoContext(ctx, "route planning failed",
			"rep_id", req.RepID, "request_id", req.RequestID, "code", domain.ErrorCode(err), "error", err)
	}

	return &domain.RoutePlanned{
		RepID:     req.RepID,
		RequestID: req.RequestID,
		Outcome:   domain.Outcome(route, err),
		PlannedAt: time.Now().UTC(),
	}, nil
}

// Publish announces a planned route.
func (s *PlanningService) Publish(ctx context.Context, event *domain.RoutePlanned) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishRoutePlanned(ctx, event); err != nil {
		return fmt.Errorf("publish route planned: %w", err)
	}
	return nil
}

// PlanForRep plans and then publishes. Publishing is best-effort.
func (s *PlanningService) PlanForRep(ctx context.Context, req domain.PlanRequest) (*domain.RoutePlanned, error) {
	event, err := s.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish route planned", "rep_id", req.RepID, "error", err)
	}
	return event, nil
}

// RequestPlan queues req for the background planner and returns its request id.
func (s *PlanningService) RequestPlan(ctx context.Context, req domain.PlanRequest) (string, error) {
	if req.RepID == "" {
		return "", fmt.Errorf("%w: rep id is required", domain.ErrInvalidInput)
	}
	if !req.Mode.Valid() {
		return "", fmt.Errorf("%w: unknown travel mode %q", domain.ErrInvalidInput, req.Mode)
	}
	if s.publisher == nil {
		return "", fmt.Errorf("background planning is not available")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if err := s.publisher.PublishPlanRequest(ctx, &req); err != nil {
		return "", fmt.Errorf("publish plan request: %w", err)
	}
	return req.RequestID, nil
}

func (s *PlanningService) loadClients(ctx context.Context, req domain.PlanRequest) ([]domain.Client, error) {
	if len(req.ClientIDs) == 0 {
		page, err := s.clients.ListByRep(ctx, req.RepID, MaxPlanClients, 0)
		if err != nil {
			return nil, err
		}
		return page.Clients, nil
	}

	if len(req.ClientIDs) > MaxPlanClients {
		return nil, fmt.Errorf("%w: at most %d clients per plan", domain.ErrInvalidInput, MaxPlanClients)
	}
	clients, err := s.clients.GetByIDs(ctx, req.ClientIDs)
	if err != nil {
		return nil, err
	}

	// A rep may only route through their own clients.
	owned := clients[:0]
	for _, c := range clients {
		if c.RepID == req.RepID {
			owned = append(owned, c)
		}
	}
	return owned, nil
}

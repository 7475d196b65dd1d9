package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/core/usecases"
)

// RoutePlanActivities holds the activity implementations for RoutePlanWorkflow.
type RoutePlanActivities struct {
	Planning *usecases.PlanningService
}

// PlanRoute loads the rep's clients and optimizes the route. Route failures
// come back inside the event's outcome; only load failures are errors.
func (a *RoutePlanActivities) PlanRoute(ctx context.Context, req domain.PlanRequest) (*domain.RoutePlanned, error) {
	activity.GetLogger(ctx).Info("planning route", "rep_id", req.RepID, "request_id", req.RequestID, "clients", len(req.ClientIDs))

	event, err := a.Planning.Plan(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), domain.ErrorCode(err), err)
		}
		return nil, err
	}
	return event, nil
}

// PublishRoute announces a planned route on the event bus.
func (a *RoutePlanActivities) PublishRoute(ctx context.Context, event *domain.RoutePlanned) error {
	return a.Planning.Publish(ctx, event)
}

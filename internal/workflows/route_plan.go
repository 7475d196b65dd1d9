package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/fieldroute/internal/core/domain"
)

// Activity names as registered from RoutePlanActivities.
const (
	ActivityPlanRoute    = "PlanRoute"
	ActivityPublishRoute = "PublishRoute"
)

// RoutePlanWorkflow plans a rep's route and publishes the result.
//
// Planning runs once: a failed provider request is reported in the outcome
// and is not retried. Publishing is retried up to three times.
func RoutePlanWorkflow(ctx workflow.Context, req domain.PlanRequest) (*domain.RoutePlanned, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting route plan workflow", "repID", req.RepID, "requestID", req.RequestID)

	planCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	var event domain.RoutePlanned
	if err := workflow.ExecuteActivity(planCtx, ActivityPlanRoute, req).Get(ctx, &event); err != nil {
		logger.Error("route planning failed", "error", err)
		return nil, err
	}

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})
	if err := workflow.ExecuteActivity(publishCtx, ActivityPublishRoute, &event).Get(ctx, nil); err != nil {
		logger.Warn("publishing route failed", "error", err)
		return &event, err
	}

	logger.Info("Route plan published", "success", event.Outcome.Success, "code", event.Outcome.Code)
	return &event, nil
}

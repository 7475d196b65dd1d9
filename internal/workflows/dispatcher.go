package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/fieldroute/internal/core/domain"
	"github.com/samirrijal/fieldroute/internal/pkg/metrics"
)

// WorkflowStarter is the part of client.Client the dispatcher needs.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// PlanDispatcher starts one RoutePlanWorkflow per queued plan request.
type PlanDispatcher struct {
	starter   WorkflowStarter
	taskQueue string
}

// NewPlanDispatcher creates a dispatcher for taskQueue.
func NewPlanDispatcher(starter WorkflowStarter, taskQueue string) *PlanDispatcher {
	return &PlanDispatcher{starter: starter, taskQueue: taskQueue}
}

// WorkflowID is derived from the request id so redelivered requests map onto
// the same execution.
func WorkflowID(req *domain.PlanRequest) string {
	return "route-plan-" + req.RequestID
}

// Dispatch starts the workflow for req. Requests without a request or rep id
// are dropped; a returned error means the request should be redelivered.
func (d *PlanDispatcher) Dispatch(ctx context.Context, req *domain.PlanRequest) error {
	if req.RequestID == "" || req.RepID == "" {
		metrics.PlanRequestsHandled.WithLabelValues("rejected").Inc()
		slog.WarnContext(ctx, "dropping incomplete plan request", "request_id", req.RequestID, "rep_id", req.RepID)
		return nil
	}

	run, err := d.starter.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        WorkflowID(req),
		TaskQueue: d.taskQueue,
	}, RoutePlanWorkflow, *req)
	if err != nil {
		metrics.PlanRequestsHandled.WithLabelValues("error").Inc()
		return fmt.Errorf("start route plan workflow: %w", err)
	}

	metrics.PlanRequestsHandled.WithLabelValues("started").Inc()
	if run != nil {
		slog.InfoContext(ctx, "route plan workflow started",
			"workflow_id", run.GetID(), "run_id", run.GetRunID(), "rep_id", req.RepID)
	}
	return nil
}

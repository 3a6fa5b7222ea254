package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"auditeval/internal/logger"
	"auditeval/internal/metrics"
	"auditeval/internal/model"
)

// executeTasks fans the plan out over the registry. Invocations run
// concurrently under a limit; results land in dispatch order regardless of
// completion order, so downstream processing is deterministic. Strategy
// failures become failed TaskResults inside the registry; nothing here can
// abort the plan.
func (o *Orchestrator) executeTasks(ctx context.Context, ec *model.EvaluationContext, plan *model.ExecutionPlan) ([]model.TaskResult, []metrics.TaskMetrics) {
	results := make([]model.TaskResult, len(plan.Tasks))
	taskMetrics := make([]metrics.TaskMetrics, len(plan.Tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.TaskConcurrency)

	for i, t := range plan.Tasks {
		g.Go(func() error {
			tm := metrics.TaskMetrics{Task: string(t), Start: time.Now()}
			res := o.registry.Execute(gctx, t, ec)
			tm.End = time.Now()
			tm.DurationMs = tm.End.Sub(tm.Start).Milliseconds()
			tm.Success = res.Success
			if !res.Success {
				tm.Err = res.Reasoning
				logger.Printf(ctx, "[orchestrator] item %s: task %s failed: %s", ec.ID, t, res.Reasoning)
			}
			results[i] = res
			taskMetrics[i] = tm
			return nil
		})
	}
	_ = g.Wait()

	return results, taskMetrics
}

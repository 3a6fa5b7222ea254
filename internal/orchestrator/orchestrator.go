// Package orchestrator runs the self-reflective evaluation loop for one
// audit item: plan → review plan → execute tasks → aggregate → review
// judgment → output. Reviewer-stage faults are recovered locally; an item
// never fails because a reviewer call failed.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"auditeval/internal/apperr"
	"auditeval/internal/logger"
	"auditeval/internal/metrics"
	"auditeval/internal/model"
	"auditeval/internal/tasks"
)

type Options struct {
	MaxPlanRevisions     int
	MaxJudgmentRevisions int
	FastPlan             bool
	TaskConcurrency      int
	Model                string
}

func (o Options) withDefaults() Options {
	if o.TaskConcurrency < 1 {
		o.TaskConcurrency = 8
	}
	return o
}

type Orchestrator struct {
	inf      tasks.Inference
	registry *tasks.Registry
	opts     Options
}

func New(inf tasks.Inference, registry *tasks.Registry, opts Options) *Orchestrator {
	return &Orchestrator{
		inf:      inf,
		registry: registry,
		opts:     opts.withDefaults(),
	}
}

// Evaluate runs the full state machine for one item. It never panics or
// returns an error past this boundary: every failure path produces an
// ItemResult, worst case one carrying a typed error.
func (o *Orchestrator) Evaluate(ctx context.Context, item model.Item) (result model.ItemResult) {
	defer func() {
		if rec := recover(); rec != nil {
			ae := apperr.Newf(apperr.KindInternal, "panic during evaluation of item %s: %v", item.ID, rec)
			logger.Printf(ctx, "[orchestrator] %v", ae)
			result = failedItemResult(item.ID, ae)
		}
	}()

	if err := validateItem(item); err != nil {
		return failedItemResult(item.ID, apperr.Wrap(apperr.KindValidation, "invalid item", err))
	}

	ec := model.NewEvaluationContext(item)
	im := &metrics.ItemMetrics{ItemID: ec.ID, Start: time.Now()}
	logger.Printf(ctx, "[orchestrator] item %s: evaluation started", ec.ID)

	// CreatePlan → ReviewPlan → (RefinePlan → ReviewPlan)*
	plan := o.createPlan(ctx, ec)
	plan, planReview := o.planReviewLoop(ctx, ec, plan)
	im.PlanRevisions = plan.Revision

	// ExecuteTasks
	results, taskMetrics := o.executeTasks(ctx, ec, plan)
	im.Tasks = taskMetrics
	if err := ctx.Err(); err != nil {
		ae := apperr.Classify(err)
		logger.Printf(ctx, "[orchestrator] item %s: aborted: %v", ec.ID, ae)
		return failedItemResult(ec.ID, ae)
	}

	// AggregateJudgment → ReviewJudgment → (RefineJudgment → ReviewJudgment)*
	judgment := o.aggregateJudgment(ec, results)
	judgment, judgmentReview := o.judgmentReviewLoop(ctx, ec, judgment, results)
	im.JudgmentRevisions = judgment.Revision
	im.Finalize()

	logger.Printf(ctx, "[orchestrator] item %s: evaluation finished effective=%t confidence=%.2f",
		ec.ID, judgment.Effective, judgment.Confidence)

	// Output: terminal packaging, always succeeds given a judgment.
	return model.ItemResult{
		ID:                ec.ID,
		EvaluationResult:  judgment.Effective,
		JudgmentBasis:     judgment.Basis,
		DocumentReference: documentReference(judgment, ec),
		Confidence:        judgment.Confidence,
		Debug: &model.DebugInfo{
			ExecutionPlan:  plan,
			TaskResults:    results,
			PlanReview:     planReview,
			JudgmentReview: judgmentReview,
			Metrics:        im,
		},
	}
}

func validateItem(item model.Item) error {
	if item.ID == "" {
		return fmt.Errorf("item id is empty")
	}
	if item.ControlDescription == "" {
		return fmt.Errorf("item %s: control_description is empty", item.ID)
	}
	if item.TestProcedure == "" {
		return fmt.Errorf("item %s: test_procedure is empty", item.ID)
	}
	return nil
}

func failedItemResult(id string, ae *apperr.Error) model.ItemResult {
	return model.ItemResult{
		ID:               id,
		EvaluationResult: false,
		JudgmentBasis:    ae.Message,
		Confidence:       0,
		Error: &model.ErrorInfo{
			Kind:    string(ae.Kind),
			ErrorID: ae.ErrID,
			Message: ae.Message,
		},
	}
}

// documentReference names the evidence files the judgment leans on, falling
// back to the full evidence list when the judgment cites none.
func documentReference(j *model.Judgment, ec *model.EvaluationContext) string {
	refs := j.EvidenceRefs
	if len(refs) == 0 {
		for _, f := range ec.Evidence {
			refs = append(refs, f.Name)
		}
	}
	if len(refs) == 0 {
		return "no evidence provided"
	}
	return joinRefs(refs)
}

func joinRefs(refs []string) string {
	out := ""
	for i, r := range refs {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"auditeval/internal/llm_client"
	"auditeval/internal/model"
	"auditeval/internal/tasks"
)

const (
	planPromptMark           = "audit evaluation planner"
	planReviewPromptMark     = "reviewer of audit evaluation plans"
	judgmentReviewPromptMark = "reviewer of audit judgments"
	refineJudgmentPromptMark = "revising an audit judgment"
)

// scriptedInference routes each call by prompt content, so one fake can play
// planner, reviewer, and strategy backend in the same run.
type scriptedInference struct {
	mu      sync.Mutex
	calls   map[string]int
	respond func(prompt string) (string, error)
}

func newScripted(respond func(prompt string) (string, error)) *scriptedInference {
	return &scriptedInference{calls: make(map[string]int), respond: respond}
}

func (f *scriptedInference) record(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, mark := range []string{planPromptMark, planReviewPromptMark, judgmentReviewPromptMark, refineJudgmentPromptMark} {
		if strings.Contains(prompt, mark) {
			f.calls[mark]++
			return
		}
	}
	f.calls["strategy"]++
}

func (f *scriptedInference) count(mark string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[mark]
}

func (f *scriptedInference) Generate(_ context.Context, prompt, _ string) (string, error) {
	f.record(prompt)
	return f.respond(prompt)
}

func (f *scriptedInference) GenerateJSON(_ context.Context, prompt, _ string, _ any) (string, error) {
	f.record(prompt)
	return f.respond(prompt)
}

func (f *scriptedInference) GenerateVision(_ context.Context, prompt string, _ []llm_client.Image, _ string) (string, error) {
	f.record(prompt)
	return f.respond(prompt)
}

const satisfiedJSON = `{"satisfied": true, "reasoning": "requirement was met", "confidence": 0.8, "evidence_refs": ["policy.txt"]}`

// approveAll answers every reviewer prompt with approval and every strategy
// prompt with a satisfied verdict.
func approveAll(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, planPromptMark):
		return `{"tasks": ["semantic_search", "requirement_reasoning"], "rationale": "minimal coverage"}`, nil
	case strings.Contains(prompt, planReviewPromptMark), strings.Contains(prompt, judgmentReviewPromptMark):
		return `{"approved": true, "feedback": ""}`, nil
	default:
		return satisfiedJSON, nil
	}
}

type panicStrategy struct{ typ model.TaskType }

func (s *panicStrategy) Type() model.TaskType { return s.typ }
func (s *panicStrategy) Execute(context.Context, *model.EvaluationContext) (model.TaskResult, error) {
	panic("strategy blew up")
}

func testItem() model.Item {
	return model.Item{
		ID:                 "IC-42",
		ControlDescription: "Monthly reconciliations are reviewed and approved by the controller.",
		TestProcedure:      "Inspect the reconciliation for evidence of review and approval.",
		EvidenceFiles: []model.EvidenceFile{
			{Name: "policy.txt", MediaType: "text/plain", Content: []byte("Reconciliation reviewed by Carol Smith on 2024-03-31.")},
		},
	}
}

func newTestOrchestrator(inf tasks.Inference, opts Options) *Orchestrator {
	return New(inf, tasks.NewRegistry(inf), opts)
}

func TestEvaluateRejectsInvalidItems(t *testing.T) {
	o := newTestOrchestrator(newScripted(approveAll), Options{FastPlan: true})

	testCases := []struct {
		name string
		item model.Item
	}{
		{"Missing id", model.Item{ControlDescription: "c", TestProcedure: "p"}},
		{"Missing control description", model.Item{ID: "x", TestProcedure: "p"}},
		{"Missing test procedure", model.Item{ID: "x", ControlDescription: "c"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := o.Evaluate(context.Background(), tc.item)
			if res.Error == nil {
				t.Fatalf("expected a per-item error")
			}
			if res.Error.Kind != "validation" {
				t.Errorf("Kind = %q, want validation", res.Error.Kind)
			}
			if res.EvaluationResult {
				t.Errorf("invalid item must not evaluate effective")
			}
		})
	}
}

func TestEvaluateFastPlanHappyPath(t *testing.T) {
	inf := newScripted(approveAll)
	o := newTestOrchestrator(inf, Options{FastPlan: true, MaxPlanRevisions: 1, MaxJudgmentRevisions: 1})

	res := o.Evaluate(context.Background(), testItem())
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if !res.EvaluationResult {
		t.Fatalf("expected effective; basis: %s", res.JudgmentBasis)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Errorf("Confidence = %f", res.Confidence)
	}
	if res.Debug == nil || res.Debug.ExecutionPlan == nil {
		t.Fatalf("debug trace missing")
	}
	if got := len(res.Debug.ExecutionPlan.Tasks); got != len(model.AllTaskTypes()) {
		t.Errorf("fast plan selected %d tasks, want full set", got)
	}
	if len(res.Debug.TaskResults) != len(res.Debug.ExecutionPlan.Tasks) {
		t.Errorf("task results %d != planned tasks %d", len(res.Debug.TaskResults), len(res.Debug.ExecutionPlan.Tasks))
	}
	if inf.count(planPromptMark) != 0 {
		t.Errorf("fast mode still called the planner")
	}
	if res.DocumentReference == "" {
		t.Errorf("document reference is empty")
	}
}

func TestFailedStrategyDoesNotAbortTheItem(t *testing.T) {
	inf := newScripted(approveAll)
	registry := tasks.NewRegistry(inf)
	registry.Replace(&panicStrategy{typ: model.TaskComputedReasoning})
	o := New(inf, registry, Options{FastPlan: true})

	res := o.Evaluate(context.Background(), testItem())
	if res.Error != nil {
		t.Fatalf("a single strategy fault must not fail the item: %+v", res.Error)
	}
	var failed int
	for _, tr := range res.Debug.TaskResults {
		if !tr.Success {
			failed++
			if tr.Task != model.TaskComputedReasoning {
				t.Errorf("unexpected failed task %q", tr.Task)
			}
		}
	}
	if failed != 1 {
		t.Errorf("failed tasks = %d, want 1", failed)
	}
	if !res.EvaluationResult {
		t.Errorf("remaining strategies should still carry the verdict")
	}
}

func TestAllStrategiesFailingYieldsNegativeJudgment(t *testing.T) {
	inf := newScripted(func(string) (string, error) {
		return "", errors.New("backend down")
	})
	o := newTestOrchestrator(inf, Options{FastPlan: true})

	res := o.Evaluate(context.Background(), testItem())
	if res.Error != nil {
		t.Fatalf("strategy failures are not item failures: %+v", res.Error)
	}
	if res.EvaluationResult {
		t.Errorf("no usable results must not read as effective")
	}
	if res.Confidence != tieBreakConfidence {
		t.Errorf("Confidence = %f, want %f", res.Confidence, tieBreakConfidence)
	}
	if !strings.Contains(res.JudgmentBasis, "could not be demonstrated") {
		t.Errorf("basis = %q", res.JudgmentBasis)
	}
}

func TestPlanGenerationFailureFallsBackToDefault(t *testing.T) {
	inf := newScripted(func(prompt string) (string, error) {
		if strings.Contains(prompt, planPromptMark) {
			return "", errors.New("planner unavailable")
		}
		return approveAll(prompt)
	})
	o := newTestOrchestrator(inf, Options{MaxPlanRevisions: 1})

	res := o.Evaluate(context.Background(), testItem())
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if res.Debug.ExecutionPlan.Rationale != "default full-coverage plan" {
		t.Errorf("Rationale = %q, want the default plan", res.Debug.ExecutionPlan.Rationale)
	}
	if got := len(res.Debug.ExecutionPlan.Tasks); got != len(model.AllTaskTypes()) {
		t.Errorf("default plan has %d tasks", got)
	}
}

func TestPlanReviewLoopStopsAtCap(t *testing.T) {
	const maxRevisions = 2
	inf := newScripted(func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, planPromptMark):
			return `{"tasks": ["semantic_search"], "rationale": "first pass"}`, nil
		case strings.Contains(prompt, planReviewPromptMark):
			return `{"approved": false, "feedback": "add temporal coverage"}`, nil
		default:
			return approveAll(prompt)
		}
	})
	o := newTestOrchestrator(inf, Options{MaxPlanRevisions: maxRevisions})

	res := o.Evaluate(context.Background(), testItem())
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	// One review per revision 0..max, then the loop force-approves.
	if got := inf.count(planReviewPromptMark); got != maxRevisions+1 {
		t.Errorf("plan reviews = %d, want %d", got, maxRevisions+1)
	}
	if !strings.Contains(res.Debug.PlanReview, "force-approved") {
		t.Errorf("PlanReview = %q, want force-approval note", res.Debug.PlanReview)
	}
	if res.Debug.ExecutionPlan.Revision != maxRevisions {
		t.Errorf("plan Revision = %d, want %d", res.Debug.ExecutionPlan.Revision, maxRevisions)
	}
}

func TestJudgmentReviewLoopStopsAtCap(t *testing.T) {
	const maxRevisions = 1
	inf := newScripted(func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, judgmentReviewPromptMark):
			return `{"approved": false, "feedback": "basis too thin"}`, nil
		case strings.Contains(prompt, refineJudgmentPromptMark):
			return `{"effective": true, "basis": "Control is operating effectively; the reconciliation carries the required approval.", "confidence": 0.7}`, nil
		default:
			return approveAll(prompt)
		}
	})
	o := newTestOrchestrator(inf, Options{FastPlan: true, MaxJudgmentRevisions: maxRevisions})

	res := o.Evaluate(context.Background(), testItem())
	if res.Error != nil {
		t.Fatalf("unexpected error: %+v", res.Error)
	}
	if got := inf.count(judgmentReviewPromptMark); got != maxRevisions+1 {
		t.Errorf("judgment reviews = %d, want %d", got, maxRevisions+1)
	}
	if !strings.Contains(res.Debug.JudgmentReview, "force-approved") {
		t.Errorf("JudgmentReview = %q, want force-approval note", res.Debug.JudgmentReview)
	}
}

func TestReviewerFaultsAutoApprove(t *testing.T) {
	inf := newScripted(func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, planReviewPromptMark), strings.Contains(prompt, judgmentReviewPromptMark):
			return "", errors.New("reviewer backend down")
		default:
			return approveAll(prompt)
		}
	})
	o := newTestOrchestrator(inf, Options{FastPlan: true, MaxPlanRevisions: 1, MaxJudgmentRevisions: 1})

	res := o.Evaluate(context.Background(), testItem())
	if res.Error != nil {
		t.Fatalf("reviewer faults must be recovered locally: %+v", res.Error)
	}
	if !strings.Contains(res.Debug.PlanReview, "auto-approved") {
		t.Errorf("PlanReview = %q", res.Debug.PlanReview)
	}
	if !strings.Contains(res.Debug.JudgmentReview, "auto-approved") {
		t.Errorf("JudgmentReview = %q", res.Debug.JudgmentReview)
	}
}

func TestEvaluateCancelledContext(t *testing.T) {
	inf := newScripted(approveAll)
	o := newTestOrchestrator(inf, Options{FastPlan: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := o.Evaluate(ctx, testItem())
	if res.Error == nil {
		t.Fatalf("cancelled context must surface as a typed per-item error")
	}
	if res.EvaluationResult {
		t.Errorf("cancelled item reported effective")
	}
}

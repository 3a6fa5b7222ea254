package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auditeval/internal/extract"
	"auditeval/internal/logger"
	"auditeval/internal/model"
)

// defaultPlan selects every registered strategy in canonical order. Used in
// fast mode and whenever plan generation fails.
func defaultPlan() *model.ExecutionPlan {
	return &model.ExecutionPlan{
		Tasks:     model.AllTaskTypes(),
		Rationale: "default full-coverage plan",
	}
}

var planSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tasks":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"rationale": map[string]any{"type": "string"},
	},
	"required": []string{"tasks", "rationale"},
}

func taskCatalog() string {
	var sb strings.Builder
	sb.WriteString("AVAILABLE TASK STRATEGIES:\n")
	sb.WriteString("- `semantic_search`: locates evidence passages relevant to the procedure.\n")
	sb.WriteString("- `document_recognition`: reads scanned/image evidence (signatures, stamps, dates).\n")
	sb.WriteString("- `data_extraction`: pulls structured fields (dates, names, amounts, approvals).\n")
	sb.WriteString("- `computed_reasoning`: multi-step arithmetic over evidence values.\n")
	sb.WriteString("- `requirement_reasoning`: decomposes the control into requirements and checks each.\n")
	sb.WriteString("- `multi_document_synthesis`: cross-references facts across evidence files.\n")
	sb.WriteString("- `temporal_analysis`: verifies timing, frequency, and event ordering.\n")
	sb.WriteString("- `segregation_of_duties`: detects one person holding conflicting roles.\n")
	return sb.String()
}

func buildPlanPrompt(ec *model.EvaluationContext) string {
	var sb strings.Builder
	sb.WriteString("You are an expert audit evaluation planner. Select and order the task strategies needed to evaluate this audit item. Respond ONLY with JSON. No extra text.\n\n")
	sb.WriteString("OUTPUT JSON SCHEMA:\n")
	sb.WriteString("{\"tasks\": [\"<strategy identifier>\"], \"rationale\": \"<why these strategies, in this order>\"}\n\n")
	sb.WriteString(taskCatalog())
	sb.WriteString("\nRULES:\n")
	sb.WriteString("1) Use only the identifiers listed above, each at most once.\n")
	sb.WriteString("2) Pick the smallest set that covers the test procedure; do not select document_recognition when there is no image evidence.\n")
	sb.WriteString("3) Order strategies so that extraction precedes reasoning.\n\n")
	sb.WriteString(fmt.Sprintf("CONTROL DESCRIPTION:\n%s\n\n", ec.ControlDescription))
	sb.WriteString(fmt.Sprintf("TEST PROCEDURE:\n%s\n\n", ec.TestProcedure))
	sb.WriteString("EVIDENCE FILES:\n")
	if len(ec.Evidence) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, f := range ec.Evidence {
		kind := "text"
		if extract.IsImage(f.MediaType) {
			kind = "image"
		}
		sb.WriteString(fmt.Sprintf("- %s (%s, %s)\n", f.Name, f.MediaType, kind))
	}
	sb.WriteString("\nGenerate the plan now.\nAssistant: ")
	return sb.String()
}

type planResponse struct {
	Tasks     []string `json:"tasks"`
	Rationale string   `json:"rationale"`
}

// createPlan asks the model to select strategies. Fast mode and any failure
// fall back to the default plan; plan creation never fails an item.
func (o *Orchestrator) createPlan(ctx context.Context, ec *model.EvaluationContext) *model.ExecutionPlan {
	if o.opts.FastPlan {
		logger.Printf(ctx, "[orchestrator] item %s: fast mode, using default plan", ec.ID)
		return defaultPlan()
	}

	raw, err := o.inf.GenerateJSON(ctx, buildPlanPrompt(ec), o.opts.Model, planSchema)
	if err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: plan generation failed, using default plan: %v", ec.ID, err)
		return defaultPlan()
	}
	plan, err := o.parsePlan(raw)
	if err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: generated plan invalid, using default plan: %v", ec.ID, err)
		return defaultPlan()
	}
	return plan
}

// parsePlan validates strategy identifiers against the registry here, at
// plan time, so dispatch never sees an unknown task.
func (o *Orchestrator) parsePlan(raw string) (*model.ExecutionPlan, error) {
	var resp planResponse
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &resp); err != nil {
		return nil, fmt.Errorf("parse plan JSON: %v\nRaw Response: %s", err, raw)
	}
	plan := &model.ExecutionPlan{Rationale: resp.Rationale}
	seen := make(map[model.TaskType]bool)
	for _, s := range resp.Tasks {
		t, err := model.ParseTaskType(s)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		plan.Tasks = append(plan.Tasks, t)
	}
	if err := o.registry.ValidatePlan(plan); err != nil {
		return nil, err
	}
	return plan, nil
}

var reviewSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"approved": map[string]any{"type": "boolean"},
		"feedback": map[string]any{"type": "string"},
		"scores":   map[string]any{"type": "object"},
	},
	"required": []string{"approved", "feedback"},
}

func buildPlanReviewPrompt(ec *model.EvaluationContext, plan *model.ExecutionPlan) string {
	var sb strings.Builder
	sb.WriteString("You are a critical reviewer of audit evaluation plans. Score the plan and decide whether it needs revision. Respond ONLY with JSON. No extra text.\n\n")
	sb.WriteString("OUTPUT JSON SCHEMA:\n")
	sb.WriteString("{\"approved\": <bool>, \"feedback\": \"<what to change, empty if approved>\", \"scores\": {\"coverage\": <0..1>, \"efficiency\": <0..1>}}\n\n")
	sb.WriteString("coverage: does the plan test everything the procedure requires? efficiency: does it avoid strategies that cannot contribute? Approve unless a concrete gap or waste exists.\n\n")
	sb.WriteString(fmt.Sprintf("CONTROL DESCRIPTION:\n%s\n\nTEST PROCEDURE:\n%s\n\n", ec.ControlDescription, ec.TestProcedure))
	planJSON, _ := json.Marshal(plan)
	sb.WriteString(fmt.Sprintf("PLAN UNDER REVIEW:\n%s\n\nAssistant: ", planJSON))
	return sb.String()
}

// planReviewLoop runs ReviewPlan and bounded RefinePlan cycles. The revision
// cap is enforced by this loop counter, never by the reviewer. Reviewer
// faults auto-approve.
func (o *Orchestrator) planReviewLoop(ctx context.Context, ec *model.EvaluationContext, plan *model.ExecutionPlan) (*model.ExecutionPlan, string) {
	if o.opts.MaxPlanRevisions <= 0 {
		return plan, "plan review skipped (revisions disabled)"
	}

	var summary strings.Builder
	for revision := 0; ; revision++ {
		verdict := o.reviewPlan(ctx, ec, plan)
		fmt.Fprintf(&summary, "revision %d: approved=%t %s; ", revision, verdict.Approved, verdict.Feedback)
		if verdict.Approved {
			break
		}
		if revision >= o.opts.MaxPlanRevisions {
			logger.Printf(ctx, "[orchestrator] item %s: plan revision cap reached, force-approving", ec.ID)
			summary.WriteString("force-approved at revision cap")
			break
		}
		plan = o.refinePlan(ctx, ec, plan, verdict)
	}
	return plan, strings.TrimSuffix(strings.TrimSpace(summary.String()), ";")
}

func (o *Orchestrator) reviewPlan(ctx context.Context, ec *model.EvaluationContext, plan *model.ExecutionPlan) model.ReviewVerdict {
	raw, err := o.inf.GenerateJSON(ctx, buildPlanReviewPrompt(ec, plan), o.opts.Model, reviewSchema)
	if err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: plan review failed, auto-approving: %v", ec.ID, err)
		return model.ReviewVerdict{Approved: true, Feedback: "auto-approved: reviewer unavailable"}
	}
	var verdict model.ReviewVerdict
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &verdict); err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: plan review unparseable, auto-approving: %v", ec.ID, err)
		return model.ReviewVerdict{Approved: true, Feedback: "auto-approved: reviewer response unparseable"}
	}
	return verdict
}

// refinePlan produces a replacement plan from reviewer feedback. A failed
// refinement keeps the current plan so the loop can still terminate.
func (o *Orchestrator) refinePlan(ctx context.Context, ec *model.EvaluationContext, plan *model.ExecutionPlan, verdict model.ReviewVerdict) *model.ExecutionPlan {
	var sb strings.Builder
	sb.WriteString("You are an expert audit evaluation planner revising a rejected plan. Respond ONLY with JSON matching {\"tasks\": [\"<strategy identifier>\"], \"rationale\": \"<string>\"}.\n\n")
	sb.WriteString(taskCatalog())
	planJSON, _ := json.Marshal(plan)
	sb.WriteString(fmt.Sprintf("\nPREVIOUS PLAN:\n%s\n\nREVIEWER FEEDBACK:\n%s\n\n", planJSON, verdict.Feedback))
	sb.WriteString(fmt.Sprintf("CONTROL DESCRIPTION:\n%s\n\nTEST PROCEDURE:\n%s\n\n", ec.ControlDescription, ec.TestProcedure))
	sb.WriteString("Generate the revised plan now.\nAssistant: ")

	raw, err := o.inf.GenerateJSON(ctx, sb.String(), o.opts.Model, planSchema)
	if err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: plan refinement failed, keeping current plan: %v", ec.ID, err)
		return bumpRevision(plan)
	}
	revised, err := o.parsePlan(raw)
	if err != nil {
		logger.Printf(ctx, "[orchestrator] item %s: refined plan invalid, keeping current plan: %v", ec.ID, err)
		return bumpRevision(plan)
	}
	revised.Revision = plan.Revision + 1
	return revised
}

func bumpRevision(plan *model.ExecutionPlan) *model.ExecutionPlan {
	next := &model.ExecutionPlan{
		Tasks:     plan.Tasks,
		Rationale: plan.Rationale,
		Revision:  plan.Revision + 1,
	}
	return next
}

func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

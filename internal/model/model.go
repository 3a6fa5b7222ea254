package model

import (
	"auditeval/internal/metrics"
	"auditeval/internal/utils"
)

// EvidenceFile is one evidentiary artifact attached to an audit item.
// Content arrives base64-encoded on the wire.
type EvidenceFile struct {
	Name      string `json:"filename"`
	MediaType string `json:"media_type"`
	Content   []byte `json:"content,omitempty"`
}

// Item is the wire form of one audit item: a control/test-procedure pair
// plus its evidence.
type Item struct {
	ID                 string         `json:"id"`
	ControlDescription string         `json:"control_description"`
	TestProcedure      string         `json:"test_procedure"`
	EvidenceFiles      []EvidenceFile `json:"evidence_files"`
}

// EvaluationContext is the immutable per-item input to one orchestrator run.
// It is created once and never mutated; strategies read it, nothing writes it.
type EvaluationContext struct {
	ID                 string
	ControlDescription string
	TestProcedure      string
	Evidence           []EvidenceFile
}

func NewEvaluationContext(item Item) *EvaluationContext {
	ev := make([]EvidenceFile, len(item.EvidenceFiles))
	copy(ev, item.EvidenceFiles)
	return &EvaluationContext{
		ID:                 item.ID,
		ControlDescription: item.ControlDescription,
		TestProcedure:      item.TestProcedure,
		Evidence:           ev,
	}
}

// ExecutionPlan is an ordered selection of task strategies. Revisions replace
// the plan wholesale; an approved plan is never mutated.
type ExecutionPlan struct {
	Tasks     []TaskType `json:"tasks"`
	Rationale string     `json:"rationale"`
	Revision  int        `json:"revision"`
}

// ReviewVerdict is the reviewer's decision on a plan or judgment.
type ReviewVerdict struct {
	Approved bool               `json:"approved"`
	Feedback string             `json:"feedback"`
	Scores   map[string]float64 `json:"scores"`
}

// TaskResult is the outcome of one strategy invocation. A failed strategy
// reports Success=false with the cause in Reasoning; it never aborts the run.
type TaskResult struct {
	Task         TaskType       `json:"task"`
	Success      bool           `json:"success"`
	Payload      map[string]any `json:"payload,omitempty"`
	Reasoning    string         `json:"reasoning"`
	Confidence   float64        `json:"confidence"`
	EvidenceRefs []string       `json:"evidence_refs,omitempty"`
}

// Satisfied reports the strategy's stance on whether the control held up,
// when its payload carries one. Aggregation weights these stances by
// confidence.
func (t TaskResult) Satisfied() (value, ok bool) {
	b, err := utils.GetBoolPayload(t.Payload, "satisfied")
	if err != nil {
		return false, false
	}
	return b, true
}

// Judgment is the aggregated verdict for one audit item.
type Judgment struct {
	Effective    bool     `json:"effective"`
	Basis        string   `json:"basis"`
	Confidence   float64  `json:"confidence"`
	EvidenceRefs []string `json:"evidence_refs,omitempty"`
	Revision     int      `json:"revision"`
}

// DebugInfo carries the full execution trace returned alongside a result.
type DebugInfo struct {
	ExecutionPlan  *ExecutionPlan       `json:"execution_plan"`
	TaskResults    []TaskResult         `json:"task_results"`
	PlanReview     string               `json:"plan_review,omitempty"`
	JudgmentReview string               `json:"judgment_review,omitempty"`
	Metrics        *metrics.ItemMetrics `json:"metrics,omitempty"`
}

// ItemResult is the wire form of one evaluated item.
type ItemResult struct {
	ID                string     `json:"id"`
	EvaluationResult  bool       `json:"evaluation_result"`
	JudgmentBasis     string     `json:"judgment_basis"`
	DocumentReference string     `json:"document_reference"`
	Confidence        float64    `json:"confidence"`
	Error             *ErrorInfo `json:"error,omitempty"`
	Debug             *DebugInfo `json:"debug,omitempty"`
}

// ErrorInfo is the per-item error surface; batch evaluation never fails
// wholesale because one item did.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	ErrorID string `json:"error_id"`
	Message string `json:"message"`
}

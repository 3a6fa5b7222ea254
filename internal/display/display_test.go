package display

import (
	"strings"
	"testing"

	"auditeval/internal/model"
)

func TestFormatPlan(t *testing.T) {
	plan := &model.ExecutionPlan{
		Tasks:     []model.TaskType{model.TaskSemanticSearch, model.TaskTemporalAnalysis},
		Rationale: "procedure asks for dated approvals",
		Revision:  1,
	}

	resultString := FormatPlan(plan)

	if !strings.Contains(resultString, "Execution plan") {
		t.Errorf("The plan output is missing the main header.")
	}
	if !strings.Contains(resultString, "1. semantic_search") {
		t.Errorf("The plan output is missing the first task.")
	}
	if !strings.Contains(resultString, "2. temporal_analysis") {
		t.Errorf("The plan output is missing the second task.")
	}
	if !strings.Contains(resultString, "procedure asks for dated approvals") {
		t.Errorf("The plan output is missing the rationale.")
	}
	if !strings.Contains(resultString, "Revisions: 1") {
		t.Errorf("The plan output is missing the revision count.")
	}
}

func TestFormatPlan_Nil(t *testing.T) {
	if got := FormatPlan(nil); !strings.Contains(got, "No plan") {
		t.Errorf("FormatPlan(nil) = %q", got)
	}
}

func TestFormatPlan_WithLongRationale(t *testing.T) {
	longRationale := strings.Repeat("a", 200)
	plan := &model.ExecutionPlan{
		Tasks:     []model.TaskType{model.TaskSemanticSearch},
		Rationale: longRationale,
	}

	resultString := FormatPlan(plan)

	if !strings.Contains(resultString, "...") {
		t.Errorf("Expected a long rationale to be truncated with '...', but it wasn't.")
	}
	if strings.Contains(resultString, longRationale) {
		t.Errorf("Expected a long rationale to be truncated, but the full string was found.")
	}
}

func TestFormatItemResult(t *testing.T) {
	res := model.ItemResult{
		ID:                "IC-7",
		EvaluationResult:  true,
		JudgmentBasis:     "Approvals present for all samples.",
		DocumentReference: "recon.pdf, signoff.txt",
		Confidence:        0.91,
	}

	out := FormatItemResult(res)

	if !strings.Contains(out, "IC-7") || !strings.Contains(out, "EFFECTIVE") {
		t.Errorf("verdict line malformed: %q", out)
	}
	if !strings.Contains(out, "Approvals present") {
		t.Errorf("basis missing: %q", out)
	}
	if !strings.Contains(out, "recon.pdf, signoff.txt") {
		t.Errorf("evidence missing: %q", out)
	}
}

func TestFormatItemResult_Error(t *testing.T) {
	res := model.ItemResult{
		ID: "IC-8",
		Error: &model.ErrorInfo{
			Kind:    "timeout",
			ErrorID: "e-1",
			Message: "The operation did not complete in time.",
		},
	}

	out := FormatItemResult(res)

	if !strings.Contains(out, "NOT EFFECTIVE") {
		t.Errorf("failed item should read as not effective: %q", out)
	}
	if !strings.Contains(out, "timeout") || !strings.Contains(out, "e-1") {
		t.Errorf("error detail missing: %q", out)
	}
	if strings.Contains(out, "Basis:") {
		t.Errorf("errored item should not print a basis: %q", out)
	}
}

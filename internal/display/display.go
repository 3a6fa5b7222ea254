package display

import (
	"fmt"
	"strings"

	"auditeval/internal/model"
)

const maxValueLength = 100

func FormatPlan(plan *model.ExecutionPlan) string {
	if plan == nil {
		return "No plan available."
	}
	var sb strings.Builder
	sb.WriteString("Execution plan:\n")
	sb.WriteString("--------------------------------------------------\n")
	for i, t := range plan.Tasks {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, t))
	}
	if plan.Rationale != "" {
		sb.WriteString(fmt.Sprintf("  Rationale: %s\n", formatValueForDisplay(plan.Rationale)))
	}
	if plan.Revision > 0 {
		sb.WriteString(fmt.Sprintf("  Revisions: %d\n", plan.Revision))
	}
	sb.WriteString("--------------------------------------------------")
	return sb.String()
}

func FormatItemResult(res model.ItemResult) string {
	var sb strings.Builder
	verdict := "NOT EFFECTIVE"
	if res.EvaluationResult {
		verdict = "EFFECTIVE"
	}
	sb.WriteString(fmt.Sprintf("Item %s: %s (confidence %.2f)\n", res.ID, verdict, res.Confidence))
	if res.Error != nil {
		sb.WriteString(fmt.Sprintf("  Error [%s] %s (id %s)\n", res.Error.Kind, res.Error.Message, res.Error.ErrorID))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("  Basis: %s\n", formatValueForDisplay(res.JudgmentBasis)))
	if res.DocumentReference != "" {
		sb.WriteString(fmt.Sprintf("  Evidence: %s\n", res.DocumentReference))
	}
	return sb.String()
}

func formatValueForDisplay(value any) string {
	s := fmt.Sprintf("%v", value)
	s = strings.ReplaceAll(s, "\n", "\\n")

	if len(s) > maxValueLength {
		return s[:maxValueLength] + "..."
	}
	return s
}

package display

import (
	"fmt"
	"strings"

	"auditeval/internal/metrics"
)

func FormatItemMetrics(im *metrics.ItemMetrics) string {
	if im == nil {
		return "No metrics available."
	}
	var sb strings.Builder
	sb.WriteString("Evaluation metrics:\n")
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (plan revisions=%d, judgment revisions=%d)\n",
		im.DurationMs, im.PlanRevisions, im.JudgmentRevisions))
	for _, t := range im.Tasks {
		status := "ok"
		if !t.Success {
			status = "err"
		}
		sb.WriteString(fmt.Sprintf("    %-26s %5d ms  [%s]\n", t.Task, t.DurationMs, status))
	}
	return sb.String()
}

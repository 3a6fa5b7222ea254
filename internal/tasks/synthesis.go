package tasks

import (
	"context"
	"fmt"

	"auditeval/internal/model"
)

// multiDocSynthesis cross-references the evidence files against each other:
// the same date, amount, or approver appearing in two documents must agree.
type multiDocSynthesis struct {
	inf Inference
}

func (s *multiDocSynthesis) Type() model.TaskType { return model.TaskMultiDocSynthesis }

func (s *multiDocSynthesis) Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error) {
	sb := basePrompt("You are a multi-document synthesis specialist.", ec)
	sb.WriteString(fmt.Sprintf("TASK: The evidence set contains %d file(s). Cross-reference facts that appear in more than one file (dates, amounts, names, reference numbers) and flag any disagreement. ", len(ec.Evidence)))
	sb.WriteString("In details, return {\"cross_references\": [{\"fact\": \"<what>\", \"files\": [\"<filename>\"], \"consistent\": <bool>}]}. ")
	sb.WriteString("satisfied is true only when the combined evidence tells one consistent story that meets the procedure's requirement.\n")
	return runJSONStrategy(ctx, s.inf, s.Type(), sb.String(), nil)
}

package tasks

import (
	"context"

	"auditeval/internal/model"
)

// dataExtraction pulls the structured fields the test procedure cares about
// (dates, names, amounts, approval states) out of the evidence.
type dataExtraction struct {
	inf Inference
}

func (s *dataExtraction) Type() model.TaskType { return model.TaskDataExtraction }

func (s *dataExtraction) Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error) {
	sb := basePrompt("You are a structured data extraction specialist.", ec)
	sb.WriteString("TASK: Extract every field the test procedure depends on: dates, person names, roles, monetary amounts, approval states, reference numbers. ")
	sb.WriteString("In details, return {\"fields\": [{\"name\": \"<field>\", \"value\": \"<value>\", \"file\": \"<filename>\"}]}. Use empty values for fields the evidence does not contain; never invent. ")
	sb.WriteString("satisfied is true only when the extracted fields show the procedure's requirement was met.\n")
	return runJSONStrategy(ctx, s.inf, s.Type(), sb.String(), nil)
}

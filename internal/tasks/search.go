package tasks

import (
	"context"

	"auditeval/internal/model"
)

// semanticSearch locates the evidence passages that speak to the test
// procedure and judges whether they cover it.
type semanticSearch struct {
	inf Inference
}

func (s *semanticSearch) Type() model.TaskType { return model.TaskSemanticSearch }

func (s *semanticSearch) Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error) {
	sb := basePrompt("You are an audit evidence search specialist.", ec)
	sb.WriteString("TASK: Locate the specific passages in the evidence that are relevant to the test procedure. ")
	sb.WriteString("In details, return {\"matches\": [{\"file\": \"<filename>\", \"excerpt\": \"<short quote>\", \"relevance\": \"<why it matters>\"}]}. ")
	sb.WriteString("satisfied is true only when the located passages demonstrate the procedure's requirement was met.\n")
	return runJSONStrategy(ctx, s.inf, s.Type(), sb.String(), nil)
}

package tasks

import (
	"context"
	"regexp"

	"auditeval/internal/extract"
	"auditeval/internal/model"
)

var numberPattern = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?%?`)

// computedReasoning handles procedures that require arithmetic over the
// evidence (totals, thresholds, counts). The numbers found in the text are
// fed to the model explicitly so it verifies against them instead of
// re-reading prose.
type computedReasoning struct {
	inf Inference
}

func (s *computedReasoning) Type() model.TaskType { return model.TaskComputedReasoning }

func (s *computedReasoning) Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error) {
	var numbers []string
	for _, f := range ec.Evidence {
		if extract.IsImage(f.MediaType) {
			continue
		}
		text, err := extract.Text(f)
		if err != nil {
			continue
		}
		found := numberPattern.FindAllString(text, 32)
		numbers = append(numbers, found...)
	}

	sb := basePrompt("You are a computational audit reasoning specialist.", ec)
	sb.WriteString("TASK: Work through any calculation the test procedure requires step by step: totals, threshold comparisons, sample counts, percentage checks. ")
	sb.WriteString("In details, return {\"steps\": [\"<step>\"], \"result\": \"<computed outcome>\"}. ")
	sb.WriteString("satisfied is true only when the computed result meets the procedure's requirement.\n")
	extra := map[string]any{}
	if len(numbers) > 0 {
		extra["numeric_values_found"] = numbers
	}
	return runJSONStrategy(ctx, s.inf, s.Type(), sb.String(), extra)
}

// requirementReasoning decomposes the control description into individual
// requirements and checks each one against the evidence.
type requirementReasoning struct {
	inf Inference
}

func (s *requirementReasoning) Type() model.TaskType { return model.TaskRequirementReasoning }

func (s *requirementReasoning) Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error) {
	sb := basePrompt("You are a control requirement analyst.", ec)
	sb.WriteString("TASK: Break the control description into its individual requirements (who must act, what must happen, how often, what record must exist). Check each requirement against the evidence. ")
	sb.WriteString("In details, return {\"requirements\": [{\"requirement\": \"<text>\", \"met\": <bool>, \"support\": \"<evidence or reason>\"}]}. ")
	sb.WriteString("satisfied is true only when every mandatory requirement is met.\n")
	return runJSONStrategy(ctx, s.inf, s.Type(), sb.String(), nil)
}

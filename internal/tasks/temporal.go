package tasks

import (
	"context"
	"regexp"

	"auditeval/internal/extract"
	"auditeval/internal/model"
)

// Common date shapes seen in audit evidence: 2024-03-31, 31/03/2024,
// March 31, 2024, Q1 2024.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`),
	regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{4}\b`),
	regexp.MustCompile(`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\.?\s+\d{1,2},?\s+\d{4}\b`),
	regexp.MustCompile(`\bQ[1-4]\s*[-/]?\s*\d{4}\b`),
}

// ExtractDates returns every date-like token found in the text, in document
// order. Exported for the strategy tests.
func ExtractDates(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range datePatterns {
		for _, m := range p.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// temporalAnalysis checks frequency and sequencing requirements (quarterly
// reviews happened each quarter, approval predates payment). Dates found
// deterministically are handed to the model alongside the evidence.
type temporalAnalysis struct {
	inf Inference
}

func (s *temporalAnalysis) Type() model.TaskType { return model.TaskTemporalAnalysis }

func (s *temporalAnalysis) Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error) {
	datesByFile := map[string]any{}
	for _, f := range ec.Evidence {
		if extract.IsImage(f.MediaType) {
			continue
		}
		text, err := extract.Text(f)
		if err != nil {
			continue
		}
		if dates := ExtractDates(text); len(dates) > 0 {
			datesByFile[f.Name] = dates
		}
	}

	sb := basePrompt("You are a temporal pattern analyst for audit evidence.", ec)
	sb.WriteString("TASK: Verify the timing the test procedure requires: dates fall in the tested period, required frequency is met (e.g. one review per quarter), and events occur in the required order. ")
	sb.WriteString("In details, return {\"timeline\": [{\"event\": \"<what>\", \"date\": \"<when>\", \"file\": \"<filename>\"}], \"gaps\": [\"<missing period or ordering violation>\"]}. ")
	sb.WriteString("satisfied is true only when the timing requirement is demonstrably met.\n")
	extra := map[string]any{}
	if len(datesByFile) > 0 {
		extra["dates_found"] = datesByFile
	}
	return runJSONStrategy(ctx, s.inf, s.Type(), sb.String(), extra)
}

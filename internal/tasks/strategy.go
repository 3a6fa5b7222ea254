package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auditeval/internal/extract"
	"auditeval/internal/model"
)

// strategyResponse is the strict JSON shape every text strategy asks the
// model for.
type strategyResponse struct {
	Satisfied    bool           `json:"satisfied"`
	Reasoning    string         `json:"reasoning"`
	Confidence   float64        `json:"confidence"`
	EvidenceRefs []string       `json:"evidence_refs"`
	Details      map[string]any `json:"details"`
}

var strategyResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"satisfied":     map[string]any{"type": "boolean"},
		"reasoning":     map[string]any{"type": "string"},
		"confidence":    map[string]any{"type": "number"},
		"evidence_refs": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"details":       map[string]any{"type": "object"},
	},
	"required": []string{"satisfied", "reasoning", "confidence"},
}

func basePrompt(role string, ec *model.EvaluationContext) *strings.Builder {
	var sb strings.Builder
	sb.WriteString(role)
	sb.WriteString("\nRespond ONLY with JSON matching this schema: {\"satisfied\": <bool>, \"reasoning\": \"<string>\", \"confidence\": <0..1>, \"evidence_refs\": [\"<filename>\"], \"details\": {}}\n")
	sb.WriteString("satisfied means the evidence supports the control operating as described. Cite only filenames that actually exist in the evidence. If the evidence is insufficient, say so in reasoning and lower confidence; never invent facts.\n\n")
	sb.WriteString(fmt.Sprintf("CONTROL DESCRIPTION:\n%s\n\n", ec.ControlDescription))
	sb.WriteString(fmt.Sprintf("TEST PROCEDURE:\n%s\n\n", ec.TestProcedure))
	sb.WriteString("EVIDENCE:\n")
	sb.WriteString(extract.Combined(ec.Evidence))
	sb.WriteString("\n")
	return &sb
}

func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// runJSONStrategy performs the shared prompt→JSON→TaskResult round trip.
// extraDetails is merged into the payload after the model's own details so
// deterministic findings survive.
func runJSONStrategy(ctx context.Context, inf Inference, t model.TaskType, prompt string, extraDetails map[string]any) (model.TaskResult, error) {
	raw, err := inf.GenerateJSON(ctx, prompt, "", strategyResponseSchema)
	if err != nil {
		return model.TaskResult{}, fmt.Errorf("inference: %w", err)
	}
	var resp strategyResponse
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &resp); err != nil {
		return model.TaskResult{}, fmt.Errorf("parse strategy response: %v\nRaw Response: %s", err, raw)
	}

	payload := map[string]any{"satisfied": resp.Satisfied}
	for k, v := range resp.Details {
		payload[k] = v
	}
	for k, v := range extraDetails {
		payload[k] = v
	}
	return model.TaskResult{
		Task:         t,
		Success:      true,
		Payload:      payload,
		Reasoning:    resp.Reasoning,
		Confidence:   resp.Confidence,
		EvidenceRefs: resp.EvidenceRefs,
	}, nil
}

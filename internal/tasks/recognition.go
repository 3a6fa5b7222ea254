package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"auditeval/internal/extract"
	"auditeval/internal/llm_client"
	"auditeval/internal/model"
)

// documentRecognition reads image evidence (scans, screenshots, stamped
// approvals) through the vision path. Textual evidence falls back to
// document-type classification.
type documentRecognition struct {
	inf Inference
}

func (s *documentRecognition) Type() model.TaskType { return model.TaskDocumentRecognition }

func (s *documentRecognition) Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error) {
	images := extract.Images(ec.Evidence)
	if len(images) == 0 {
		sb := basePrompt("You are a document recognition specialist for audit evidence.", ec)
		sb.WriteString("TASK: No image artifacts are present. Classify each textual evidence file (meeting minutes, approval form, report, ledger extract, other) and state whether the document types match what the test procedure expects to inspect. ")
		sb.WriteString("In details, return {\"documents\": [{\"file\": \"<filename>\", \"kind\": \"<classification>\"}]}.\n")
		return runJSONStrategy(ctx, s.inf, s.Type(), sb.String(), nil)
	}

	var sb strings.Builder
	sb.WriteString("You are a document recognition specialist for audit evidence. The attached images are scanned evidence files, in order: ")
	names := make([]string, len(images))
	payloadImages := make([]llm_client.Image, len(images))
	for i, img := range images {
		names[i] = img.Name
		payloadImages[i] = llm_client.Image{MIMEType: img.MediaType, Data: img.Content}
	}
	sb.WriteString(strings.Join(names, ", "))
	sb.WriteString(".\n")
	sb.WriteString(fmt.Sprintf("CONTROL DESCRIPTION:\n%s\n\nTEST PROCEDURE:\n%s\n\n", ec.ControlDescription, ec.TestProcedure))
	sb.WriteString("TASK: Read each image. Identify signatures, stamps, dates, approvals, and any content the test procedure asks to inspect. ")
	sb.WriteString("Respond ONLY with JSON: {\"satisfied\": <bool>, \"reasoning\": \"<string>\", \"confidence\": <0..1>, \"evidence_refs\": [\"<filename>\"], \"details\": {\"readings\": [{\"file\": \"<filename>\", \"content\": \"<what the image shows>\"}]}}\n")

	raw, err := s.inf.GenerateVision(ctx, sb.String(), payloadImages, "")
	if err != nil {
		return model.TaskResult{}, fmt.Errorf("vision inference: %w", err)
	}
	var resp strategyResponse
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &resp); err != nil {
		return model.TaskResult{}, fmt.Errorf("parse vision response: %v\nRaw Response: %s", err, raw)
	}
	payload := map[string]any{"satisfied": resp.Satisfied}
	for k, v := range resp.Details {
		payload[k] = v
	}
	return model.TaskResult{
		Task:         s.Type(),
		Success:      true,
		Payload:      payload,
		Reasoning:    resp.Reasoning,
		Confidence:   resp.Confidence,
		EvidenceRefs: resp.EvidenceRefs,
	}, nil
}

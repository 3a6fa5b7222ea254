package tasks

import (
	"context"

	"auditeval/internal/llm_client"
)

// Inference is the generic text+vision capability the strategies and the
// orchestrator consume. Tests substitute a scripted fake.
type Inference interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
	GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error)
	GenerateVision(ctx context.Context, prompt string, images []llm_client.Image, model string) (string, error)
}

// ProviderInference routes to the active llm_client backend.
type ProviderInference struct{}

func (ProviderInference) Generate(ctx context.Context, prompt, model string) (string, error) {
	return llm_client.Generate(ctx, prompt, model)
}

func (ProviderInference) GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	return llm_client.GenerateJSON(ctx, prompt, model, schema)
}

func (ProviderInference) GenerateVision(ctx context.Context, prompt string, images []llm_client.Image, model string) (string, error) {
	return llm_client.GenerateVision(ctx, prompt, images, model)
}

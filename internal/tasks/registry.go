// Package tasks holds the fixed registry of evaluation strategies. Each
// strategy is stateless; the registry converts any escaped fault into a
// failed TaskResult so a single strategy can never abort a plan.
package tasks

import (
	"context"
	"fmt"

	"auditeval/internal/model"
)

// Strategy is the capability contract one task variant implements. A
// strategy must not mutate the shared EvaluationContext.
type Strategy interface {
	Type() model.TaskType
	Execute(ctx context.Context, ec *model.EvaluationContext) (model.TaskResult, error)
}

type Registry struct {
	strategies map[model.TaskType]Strategy
}

// NewRegistry wires the full strategy set against one inference capability.
func NewRegistry(inf Inference) *Registry {
	r := &Registry{strategies: make(map[model.TaskType]Strategy)}
	r.register(&semanticSearch{inf: inf})
	r.register(&documentRecognition{inf: inf})
	r.register(&dataExtraction{inf: inf})
	r.register(&computedReasoning{inf: inf})
	r.register(&requirementReasoning{inf: inf})
	r.register(&multiDocSynthesis{inf: inf})
	r.register(&temporalAnalysis{inf: inf})
	r.register(&segregationOfDuties{inf: inf})
	return r
}

func (r *Registry) register(s Strategy) {
	r.strategies[s.Type()] = s
}

// Replace swaps one strategy; used by tests and by callers that need a
// custom variant.
func (r *Registry) Replace(s Strategy) {
	r.strategies[s.Type()] = s
}

// Has reports whether a task type is registered. Plan validation rejects
// unknown identifiers here, before dispatch.
func (r *Registry) Has(t model.TaskType) bool {
	_, ok := r.strategies[t]
	return ok
}

// ValidatePlan rejects plans naming unregistered strategies.
func (r *Registry) ValidatePlan(plan *model.ExecutionPlan) error {
	if plan == nil || len(plan.Tasks) == 0 {
		return fmt.Errorf("plan selects no tasks")
	}
	for _, t := range plan.Tasks {
		if !r.Has(t) {
			return fmt.Errorf("plan references unregistered task %q", t)
		}
	}
	return nil
}

// Execute runs one strategy and normalizes every failure mode (returned
// error, panic, malformed result) into a TaskResult.
func (r *Registry) Execute(ctx context.Context, t model.TaskType, ec *model.EvaluationContext) (result model.TaskResult) {
	defer func() {
		if rec := recover(); rec != nil {
			result = failedResult(t, fmt.Sprintf("panic in strategy: %v", rec))
		}
	}()

	s, ok := r.strategies[t]
	if !ok {
		return failedResult(t, fmt.Sprintf("task %q is not registered", t))
	}

	res, err := s.Execute(ctx, ec)
	if err != nil {
		return failedResult(t, fmt.Sprintf("strategy failed: %v", err))
	}
	res.Task = t
	res.Confidence = clamp01(res.Confidence)
	return res
}

func failedResult(t model.TaskType, reason string) model.TaskResult {
	return model.TaskResult{
		Task:       t,
		Success:    false,
		Reasoning:  reason,
		Confidence: 0,
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

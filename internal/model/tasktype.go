package model

import "fmt"

// TaskType identifies one of the fixed evaluation strategies. Plans are
// validated against this set before dispatch; unknown identifiers are
// rejected at plan-validation time.
type TaskType string

const (
	TaskSemanticSearch       TaskType = "semantic_search"
	TaskDocumentRecognition  TaskType = "document_recognition"
	TaskDataExtraction       TaskType = "data_extraction"
	TaskComputedReasoning    TaskType = "computed_reasoning"
	TaskRequirementReasoning TaskType = "requirement_reasoning"
	TaskMultiDocSynthesis    TaskType = "multi_document_synthesis"
	TaskTemporalAnalysis     TaskType = "temporal_analysis"
	TaskSegregationOfDuties  TaskType = "segregation_of_duties"
)

// AllTaskTypes returns the full strategy set in canonical dispatch order.
func AllTaskTypes() []TaskType {
	return []TaskType{
		TaskSemanticSearch,
		TaskDocumentRecognition,
		TaskDataExtraction,
		TaskComputedReasoning,
		TaskRequirementReasoning,
		TaskMultiDocSynthesis,
		TaskTemporalAnalysis,
		TaskSegregationOfDuties,
	}
}

var validTaskTypes = func() map[TaskType]bool {
	m := make(map[TaskType]bool)
	for _, t := range AllTaskTypes() {
		m[t] = true
	}
	return m
}()

func ParseTaskType(s string) (TaskType, error) {
	t := TaskType(s)
	if !validTaskTypes[t] {
		return "", fmt.Errorf("unknown task type %q", s)
	}
	return t, nil
}

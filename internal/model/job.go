package model

import (
	"fmt"
	"time"

	"auditeval/internal/apperr"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

var terminalJobStatuses = map[JobStatus]bool{
	JobCompleted: true,
	JobFailed:    true,
}

// Job status is monotonic: pending → running → {completed, failed}.
var validJobTransitions = map[JobStatus]map[JobStatus]bool{
	JobPending: {
		JobRunning: true,
		JobFailed:  true,
	},
	JobRunning: {
		JobCompleted: true,
		JobFailed:    true,
	},
}

func IsJobTerminal(s JobStatus) bool {
	return terminalJobStatuses[s]
}

func ValidateJobTransition(from, to JobStatus) error {
	if IsJobTerminal(from) {
		return fmt.Errorf("cannot transition from terminal status %q", from)
	}
	allowed, ok := validJobTransitions[from]
	if !ok {
		return fmt.Errorf("unknown job status %q", from)
	}
	if !allowed[to] {
		return fmt.Errorf("invalid job transition: %q → %q", from, to)
	}
	return nil
}

// Job is one asynchronously tracked evaluation batch. The worker mutates it
// in place through the job store; pollers only read.
type Job struct {
	ID            string        `json:"job_id"`
	Status        JobStatus     `json:"status"`
	Progress      int           `json:"progress"`
	CorrelationID string        `json:"correlation_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Items         []Item        `json:"-"`
	Results       []ItemResult  `json:"results,omitempty"`
	Err           *apperr.Error `json:"error,omitempty"`
}

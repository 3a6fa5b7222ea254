package metrics

import "time"

type TaskMetrics struct {
	Task       string    `json:"task"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Err        string    `json:"err,omitempty"`
}

type ItemMetrics struct {
	ItemID            string        `json:"item_id"`
	Start             time.Time     `json:"start"`
	End               time.Time     `json:"end"`
	DurationMs        int64         `json:"duration_ms"`
	PlanRevisions     int           `json:"plan_revisions"`
	JudgmentRevisions int           `json:"judgment_revisions"`
	Tasks             []TaskMetrics `json:"tasks,omitempty"`
}

// Compute derived fields once an item finishes.
func (m *ItemMetrics) Finalize() {
	m.End = time.Now()
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
}

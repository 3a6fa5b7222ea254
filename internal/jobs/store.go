// Package jobs wraps the orchestrator with an asynchronous submit/poll/fetch
// lifecycle backed by a pluggable job store.
package jobs

import (
	"sync"
	"time"

	"auditeval/internal/apperr"
	"auditeval/internal/model"
)

// Store is the job persistence contract. Writes are keyed by job id;
// the in-memory implementation is the default, anything key/value-shaped
// can stand in.
type Store interface {
	Create(job *model.Job) error
	Get(id string) (*model.Job, error)
	Update(id string, fn func(*model.Job)) error
}

// MemoryStore keeps jobs in a mutex-guarded map. Get returns a copy so
// pollers never observe a partial worker write.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.Job)}
}

func (s *MemoryStore) Create(job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return apperr.Newf(apperr.KindInternal, "job %s already exists", job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "job %s not found", id)
	}
	cp := *job
	cp.Results = append([]model.ItemResult(nil), job.Results...)
	return &cp, nil
}

func (s *MemoryStore) Update(id string, fn func(*model.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "job %s not found", id)
	}
	fn(job)
	job.UpdatedAt = time.Now()
	return nil
}

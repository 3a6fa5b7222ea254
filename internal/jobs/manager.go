package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"auditeval/internal/apperr"
	"auditeval/internal/correlation"
	"auditeval/internal/logger"
	"auditeval/internal/model"
)

const queueCapacity = 100 // pending jobs before submissions are refused

// Evaluator is the single capability the manager needs from the
// orchestrator.
type Evaluator interface {
	Evaluate(ctx context.Context, item model.Item) model.ItemResult
}

type Manager struct {
	store           Store
	eval            Evaluator
	queue           chan string
	itemConcurrency int
	itemTimeout     time.Duration
}

func NewManager(store Store, eval Evaluator, itemConcurrency int, itemTimeout time.Duration) *Manager {
	if itemConcurrency < 1 {
		itemConcurrency = 1
	}
	return &Manager{
		store:           store,
		eval:            eval,
		queue:           make(chan string, queueCapacity),
		itemConcurrency: itemConcurrency,
		itemTimeout:     itemTimeout,
	}
}

// Start launches the dispatcher. It drains the queue until ctx is done;
// queued jobs left behind at shutdown stay pending in the store.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case jobID := <-m.queue:
				m.runJob(ctx, jobID)
			}
		}
	}()
}

// Submit stores a new pending job and enqueues it. Returns immediately; a
// full queue refuses the submission rather than blocking the caller.
func (m *Manager) Submit(ctx context.Context, items []model.Item) (string, error) {
	if len(items) == 0 {
		return "", apperr.New(apperr.KindValidation, "submission contains no items")
	}
	now := time.Now()
	job := &model.Job{
		ID:            uuid.New().String(),
		Status:        model.JobPending,
		Progress:      0,
		CorrelationID: correlation.FromContext(ctx),
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         items,
	}
	if err := m.store.Create(job); err != nil {
		return "", err
	}
	select {
	case m.queue <- job.ID:
	default:
		return "", apperr.New(apperr.KindRateLimited, "job queue is full")
	}
	logger.Printf(ctx, "[jobs] job %s submitted with %d item(s)", job.ID, len(items))
	return job.ID, nil
}

// Status returns the job's current lifecycle view. Unknown ids produce a
// not-found typed error.
func (m *Manager) Status(jobID string) (*model.Job, error) {
	return m.store.Get(jobID)
}

// Results returns the job including any results. Callers polling before
// completion get the current status back, never a blocking wait.
func (m *Manager) Results(jobID string) (*model.Job, error) {
	return m.store.Get(jobID)
}

// EstimatedTime guesses wall time for a submission from the per-item timeout
// and the admission gate width.
func (m *Manager) EstimatedTime(itemCount int) time.Duration {
	waves := (itemCount + m.itemConcurrency - 1) / m.itemConcurrency
	return time.Duration(waves) * m.itemTimeout
}

func (m *Manager) runJob(ctx context.Context, jobID string) {
	job, err := m.store.Get(jobID)
	if err != nil {
		logger.Printf(ctx, "[jobs] job %s vanished before start: %v", jobID, err)
		return
	}

	// Re-attach the submitter's correlation id: the id must survive the hop
	// onto the worker goroutine.
	jobCtx := ctx
	if job.CorrelationID != "" {
		jobCtx = correlation.WithID(ctx, job.CorrelationID)
	}

	if err := m.transition(jobCtx, jobID, model.JobRunning); err != nil {
		logger.Printf(jobCtx, "[jobs] job %s: %v", jobID, err)
		return
	}
	logger.Printf(jobCtx, "[jobs] job %s running (%d items, gate %d)", jobID, len(job.Items), m.itemConcurrency)

	results := make([]model.ItemResult, len(job.Items))
	var done int

	g, gctx := errgroup.WithContext(jobCtx)
	g.SetLimit(m.itemConcurrency)
	for i, item := range job.Items {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, m.itemTimeout)
			defer cancel()
			results[i] = m.eval.Evaluate(itemCtx, item)

			_ = m.store.Update(jobID, func(j *model.Job) {
				done++
				j.Progress = done * 100 / len(j.Items)
			})
			return nil
		})
	}
	_ = g.Wait()

	if err := jobCtx.Err(); err != nil {
		ae := apperr.Classify(err)
		_ = m.store.Update(jobID, func(j *model.Job) {
			j.Status = model.JobFailed
			j.Err = ae
		})
		logger.Printf(jobCtx, "[jobs] job %s failed: %v", jobID, ae)
		return
	}

	_ = m.store.Update(jobID, func(j *model.Job) {
		j.Status = model.JobCompleted
		j.Progress = 100
		j.Results = results
	})
	logger.Printf(jobCtx, "[jobs] job %s completed", jobID)
}

func (m *Manager) transition(ctx context.Context, jobID string, to model.JobStatus) error {
	var terr error
	err := m.store.Update(jobID, func(j *model.Job) {
		if terr = model.ValidateJobTransition(j.Status, to); terr == nil {
			j.Status = to
		}
	})
	if err != nil {
		return err
	}
	return terr
}

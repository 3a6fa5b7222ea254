package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/sync/errgroup"

	"auditeval/internal/apperr"
	"auditeval/internal/correlation"
	"auditeval/internal/model"
)

func decodeItems(r *http.Request) ([]model.Item, error) {
	var items []model.Item
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "request body is not a JSON item list", err)
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.KindValidation, "request contains no items")
	}
	return items, nil
}

// handleEvaluate is the synchronous path: evaluate every item under the same
// admission gate the job worker uses, respond in request order. Item
// failures surface per item; the batch itself only fails on malformed input.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	items, err := decodeItems(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results := make([]model.ItemResult, len(items))
	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(s.cfg.Engine.ItemConcurrency)
	for i, item := range items {
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, s.cfg.ItemTimeout())
			defer cancel()
			results[i] = s.eval.Evaluate(itemCtx, item)
			return nil
		})
	}
	_ = g.Wait()

	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	items, err := decodeItems(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jobID, err := s.jobs.Submit(r.Context(), items)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":         jobID,
		"status":         model.JobPending,
		"estimated_time": s.jobs.EstimatedTime(len(items)).String(),
	})
}

func statusMessage(job *model.Job) string {
	switch job.Status {
	case model.JobPending:
		return "queued, waiting for a worker"
	case model.JobRunning:
		return "evaluating items"
	case model.JobCompleted:
		return "evaluation complete"
	case model.JobFailed:
		if job.Err != nil {
			return job.Err.Message
		}
		return "evaluation failed"
	default:
		return ""
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Status(r.PathValue("job_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"job_id":   job.ID,
		"status":   job.Status,
		"progress": job.Progress,
		"message":  statusMessage(job),
	})
}

// handleResults returns current status when the job has not completed yet;
// it never blocks waiting for completion.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Results(r.PathValue("job_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	}
	if job.Status == model.JobCompleted {
		payload["results"] = job.Results
	} else {
		payload["message"] = statusMessage(job)
	}
	if job.Err != nil {
		payload["error"] = job.Err.Render(s.cfg.Development(), correlation.FromContext(r.Context()))
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConfig exposes the effective engine configuration. Secrets never
// enter Config, so nothing here needs redaction.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"environment":            s.cfg.Environment,
		"llm_backend":            s.cfg.LLM.Backend,
		"max_plan_revisions":     s.cfg.Engine.MaxPlanRevisions,
		"max_judgment_revisions": s.cfg.Engine.MaxJudgmentRevisions,
		"fast_plan":              s.cfg.Engine.FastPlan,
		"item_timeout_sec":       s.cfg.Engine.ItemTimeoutSec,
		"item_concurrency":       s.cfg.Engine.ItemConcurrency,
		"task_concurrency":       s.cfg.Engine.TaskConcurrency,
	})
}

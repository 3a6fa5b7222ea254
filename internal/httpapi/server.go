// Package httpapi exposes the evaluation engine over HTTP: a synchronous
// batch endpoint and the asynchronous submit/status/results lifecycle.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"auditeval/internal/apperr"
	"auditeval/internal/config"
	"auditeval/internal/correlation"
	"auditeval/internal/jobs"
	"auditeval/internal/logger"
)

type Server struct {
	cfg  *config.Config
	eval jobs.Evaluator
	jobs *jobs.Manager
}

func NewServer(cfg *config.Config, eval jobs.Evaluator, manager *jobs.Manager) *Server {
	return &Server{cfg: cfg, eval: eval, jobs: manager}
}

// Handler returns the routed handler, exposed for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /evaluate/submit", s.handleSubmit)
	mux.HandleFunc("GET /evaluate/status/{job_id}", s.handleStatus)
	mux.HandleFunc("GET /evaluate/results/{job_id}", s.handleResults)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /config", s.handleConfig)
	return s.withCorrelation(mux)
}

// Serve runs the HTTP server until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()
	return server.ListenAndServe()
}

// withCorrelation resolves the correlation id once at the entry boundary,
// echoes it on the response, and scopes it to this request's context. The
// context dies with the request, so nothing leaks into the next one.
func (s *Server) withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := correlation.FromRequest(r)
		w.Header().Set(correlation.Header, cid)
		ctx := correlation.WithID(r.Context(), cid)
		logger.Printf(ctx, "[http] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders any failure through the classifier with
// environment-appropriate disclosure.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperr.Classify(err)
	cid := correlation.FromContext(r.Context())
	logger.Printf(r.Context(), "[http] request failed: %v", ae)
	s.writeJSON(w, ae.HTTPStatus(), ae.Render(s.cfg.Development(), cid))
}

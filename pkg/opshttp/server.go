// Package opshttp implements the Ops HTTP Surface (SPEC_FULL.md §2
// component 18): a read-only operator convenience alongside the CLI —
// `/healthz`, `/metrics`, and `/status/{run}`. It never writes, matching
// spec.md's Non-goals for this surface.
package opshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scoutline/ralph/pkg/domain"
	"github.com/scoutline/ralph/pkg/metrics"
)

// StatusReader is the Scheduler's read boundary for `/status/{run}`.
// scheduler.Scheduler.RunSummary satisfies this by duck typing — this
// package never imports pkg/scheduler.
type StatusReader interface {
	RunSummary(ctx context.Context, entityID domain.EntityID) (domain.RunSummary, bool, error)
}

// Server builds the chi router for the Ops HTTP Surface.
type Server struct {
	Status         StatusReader
	Metrics        *metrics.Registry
	AllowedOrigins []string
}

// Handler assembles the router: CORS, /healthz, /metrics, /status/{run}.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler)

	r.Get("/healthz", s.handleHealthz)
	if s.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))
	}
	r.Get("/status/{run}", s.handleStatus)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// runSummaryResponse is the JSON shape `/status/{run}` renders,
// independent of domain.RunSummary's Go field names.
type runSummaryResponse struct {
	EntityID     string    `json:"entity_id"`
	EntityName   string    `json:"entity_name"`
	Outcome      string    `json:"outcome,omitempty"`
	Skipped      bool      `json:"skipped"`
	Iterations   int       `json:"iterations"`
	SignalsFound int       `json:"signals_found"`
	CostUSD      float64   `json:"cost_usd"`
	DurationMS   int64     `json:"duration_ms"`
	Reason       string    `json:"reason,omitempty"`
	Error        string    `json:"error,omitempty"`
	RanAt        time.Time `json:"ran_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	run := chi.URLParam(r, "run")
	if run == "" || s.Status == nil {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	summary, found, err := s.Status.RunSummary(r.Context(), domain.EntityID(run))
	if err != nil {
		http.Error(w, `{"error":"failed to read run status"}`, http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, `{"error":"no run recorded for this entity"}`, http.StatusNotFound)
		return
	}

	resp := runSummaryResponse{
		EntityID: string(summary.EntityID), EntityName: summary.EntityName,
		Outcome: string(summary.Outcome), Skipped: summary.Skipped,
		Iterations: summary.Iterations, SignalsFound: summary.SignalsFound,
		CostUSD: summary.CostUSD, DurationMS: summary.Duration.Milliseconds(),
		Reason: summary.Reason, Error: summary.Err, RanAt: summary.RanAt,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Package metrics implements the Logging & Observability component's
// Prometheus surface (SPEC_FULL.md §2 component 14): one counter or
// histogram per suspension point named across spec.md §5, registered
// against a private registry so /metrics never leaks the Go process's
// default collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry holds every metric the Exploration Loop and Scheduler
// record against, plus the prometheus.Registry the Ops HTTP surface's
// /metrics handler serves.
type Registry struct {
	Registry *prometheus.Registry

	SearchCalls     *prometheus.CounterVec
	FetchCalls      *prometheus.CounterVec
	LLMCascadeCalls *prometheus.CounterVec
	VerifierChecks  *prometheus.CounterVec
	StoreWrites     *prometheus.CounterVec
	RunOutcomes     *prometheus.CounterVec
	IterationsTotal prometheus.Counter
	EntityCostUSD   prometheus.Histogram
}

// New builds a Registry with every metric registered and ready to
// observe.
func New() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		Registry: reg,
		SearchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ralph", Subsystem: "search", Name: "calls_total",
			Help: "Search Client calls by outcome status.",
		}, []string{"status"}),
		FetchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ralph", Subsystem: "search", Name: "fetch_calls_total",
			Help: "Search Client fetch_markdown calls by outcome status.",
		}, []string{"status"}),
		LLMCascadeCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ralph", Subsystem: "llm", Name: "cascade_calls_total",
			Help: "LLM cascade calls by the model that satisfied the call, or \"exhausted\".",
		}, []string{"tier"}),
		VerifierChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ralph", Subsystem: "verifier", Name: "checks_total",
			Help: "Evidence Verifier checks by content-match result.",
		}, []string{"result"}),
		StoreWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ralph", Subsystem: "signalstore", Name: "writes_total",
			Help: "Signal Store Gateway writes by result.",
		}, []string{"result"}),
		RunOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ralph", Subsystem: "exploration", Name: "run_outcomes_total",
			Help: "Entity exploration runs by terminal outcome.",
		}, []string{"outcome"}),
		IterationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ralph", Subsystem: "exploration", Name: "iterations_total",
			Help: "Total hop iterations executed across every entity run.",
		}),
		EntityCostUSD: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ralph", Subsystem: "exploration", Name: "entity_cost_usd",
			Help:    "Accumulated cost per entity run, in USD.",
			Buckets: []float64{0.05, 0.10, 0.25, 0.50, 1.00, 1.50, 2.00},
		}),
	}

	reg.MustRegister(
		r.SearchCalls, r.FetchCalls, r.LLMCascadeCalls, r.VerifierChecks,
		r.StoreWrites, r.RunOutcomes, r.IterationsTotal, r.EntityCostUSD,
	)
	return r
}

// RecordSearch records one Search Client search() call by status.
func (r *Registry) RecordSearch(status string) {
	r.SearchCalls.WithLabelValues(status).Inc()
}

// RecordFetch records one Search Client fetch_markdown() call by status.
func (r *Registry) RecordFetch(status string) {
	r.FetchCalls.WithLabelValues(status).Inc()
}

// RecordLLMCall records one LLM cascade call under the "tier" label,
// which holds the name of the model that satisfied it, or "exhausted"
// when every tier failed.
func (r *Registry) RecordLLMCall(tier string) {
	r.LLMCascadeCalls.WithLabelValues(tier).Inc()
}

// RecordVerifierCheck records one Evidence Verifier content-match
// result ("match" or "mismatch").
func (r *Registry) RecordVerifierCheck(result string) {
	r.VerifierChecks.WithLabelValues(result).Inc()
}

// RecordStoreWrite records one Signal Store Gateway write outcome
// ("ok" or "failed").
func (r *Registry) RecordStoreWrite(result string) {
	r.StoreWrites.WithLabelValues(result).Inc()
}

// RecordRun records one finished entity run's terminal outcome,
// iteration count, and accumulated cost.
func (r *Registry) RecordRun(outcome string, iterations int, costUSD float64) {
	r.RunOutcomes.WithLabelValues(outcome).Inc()
	r.IterationsTotal.Add(float64(iterations))
	r.EntityCostUSD.Observe(costUSD)
}

package domain

import "time"

// RunSummary is the Scheduler's structured per-entity run summary
// (spec.md §7), shared between the CLI, the Ops HTTP surface, and the
// RunSummaryNotifier boundary so all three render the same record.
type RunSummary struct {
	EntityID     EntityID
	EntityName   string
	Outcome      RunOutcome
	Skipped      bool
	Iterations   int
	SignalsFound int
	CostUSD      float64
	Duration     time.Duration
	Reason       string
	Err          string
	RanAt        time.Time
}

package main

import (
	"testing"

	"github.com/scoutline/ralph/pkg/domain"
)

func TestRunExitCode(t *testing.T) {
	cases := []struct {
		name    string
		summary domain.RunSummary
		want    int
	}{
		{"completed", domain.RunSummary{Outcome: domain.OutcomeCompleted}, 0},
		{"saturated", domain.RunSummary{Outcome: domain.OutcomeSaturated}, 0},
		{"cancelled", domain.RunSummary{Outcome: domain.OutcomeCancelled}, 0},
		{"skipped overrides outcome", domain.RunSummary{Skipped: true, Outcome: domain.OutcomeFailed}, 0},
		{"cost cap", domain.RunSummary{Outcome: domain.OutcomeCostCap}, 3},
		{"iteration cap", domain.RunSummary{Outcome: domain.OutcomeIterationCap}, 4},
		{"failed", domain.RunSummary{Outcome: domain.OutcomeFailed}, 5},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := runExitCode(c.summary); got != c.want {
				t.Fatalf("runExitCode(%+v) = %d, want %d", c.summary, got, c.want)
			}
		})
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scoutline/ralph/pkg/domain"
)

// runExitCode maps a completed run's terminal outcome to the process
// exit codes spec.md §6 documents. Outcomes reaching this point are
// not Go errors (the run always returns a domain.RunSummary), so
// internal/errors.ExitCode does not apply here.
func runExitCode(summary domain.RunSummary) int {
	if summary.Skipped {
		return 0
	}
	switch summary.Outcome {
	case domain.OutcomeCompleted, domain.OutcomeSaturated, domain.OutcomeCancelled:
		return 0
	case domain.OutcomeCostCap:
		return 3
	case domain.OutcomeIterationCap:
		return 4
	case domain.OutcomeFailed:
		return 5
	default:
		return 1
	}
}

func newRunCommand(cctx *commandContext) *cobra.Command {
	var entityID string
	var entityName string
	var batchPath string
	var resume bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run signal discovery for one entity, or a --batch of entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchPath != "" {
				return runBatch(cmd, cctx, batchPath, resume)
			}
			if entityID == "" {
				return fmt.Errorf("--entity or --batch is required")
			}
			entity := domain.Entity{ID: domain.EntityID(entityID), Name: entityName}
			summary := cctx.scheduler.RunOne(cmd.Context(), entity, resume)

			printRunSummary(cmd, summary)
			exitCode := runExitCode(summary)
			if exitCode != 0 {
				return &exitCodeError{code: exitCode, message: fmt.Sprintf("run finished with outcome %s", summary.Outcome)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityID, "entity", "", "Entity ID to run")
	cmd.Flags().StringVar(&entityName, "entity-name", "", "Entity display name, for search query construction")
	cmd.Flags().StringVar(&batchPath, "batch", "", "Run every entity listed in this YAML batch file instead of a single --entity")
	cmd.Flags().BoolVar(&resume, "resume", false, "Resume from a prior checkpoint instead of skipping an already-completed run today")

	return cmd
}

func runBatch(cmd *cobra.Command, cctx *commandContext, batchPath string, resume bool) error {
	entities, err := loadBatch(batchPath)
	if err != nil {
		return err
	}
	summaries, err := cctx.scheduler.RunBatch(cmd.Context(), entities, resume)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}

	worst := 0
	for _, summary := range summaries {
		printRunSummary(cmd, summary)
		if code := runExitCode(summary); code > worst {
			worst = code
		}
	}
	if worst != 0 {
		return &exitCodeError{code: worst, message: "one or more entities in the batch did not complete cleanly"}
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, summary domain.RunSummary) {
	if summary.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\tSKIPPED (already ran today)\n", summary.EntityID)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\titerations=%d\tsignals=%d\tcost=$%.4f\n",
		summary.EntityID, summary.Outcome, summary.Iterations, summary.SignalsFound, summary.CostUSD)
	if summary.Reason != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "reason: %s\n", summary.Reason)
	}
	if summary.Err != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", summary.Err)
	}
}

// exitCodeError carries a specific process exit code through cobra's
// error-returning RunE without losing it to the blanket exit(1) a
// generic error would get in main's error path.
type exitCodeError struct {
	code    int
	message string
}

func (e *exitCodeError) Error() string { return e.message }
func (e *exitCodeError) ExitCode() int  { return e.code }

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scoutline/ralph/pkg/domain"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	var entityID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last recorded run summary for an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if entityID == "" {
				return fmt.Errorf("--entity is required")
			}
			summary, found, err := cctx.scheduler.RunSummary(cmd.Context(), domain.EntityID(entityID))
			if err != nil {
				return fmt.Errorf("failed to read run status: %w", err)
			}
			if !found {
				return fmt.Errorf("no run recorded for entity %s", entityID)
			}
			printRunSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&entityID, "entity", "", "Entity ID to look up")
	return cmd
}

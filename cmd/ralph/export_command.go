package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scoutline/ralph/internal/openapidoc"
	"github.com/scoutline/ralph/pkg/domain"
)

func newExportCommand(cctx *commandContext) *cobra.Command {
	var entityID string
	var limit int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an entity's validated signals as the outbound OpenAPI-validated record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if entityID == "" {
				return fmt.Errorf("--entity is required")
			}
			if cctx.scheduler.Loop.Store == nil {
				return fmt.Errorf("no signal store configured")
			}

			signals, err := cctx.scheduler.Loop.Store.RecentSignals(cmd.Context(), domain.EntityID(entityID), limit)
			if err != nil {
				return fmt.Errorf("failed to read signals: %w", err)
			}

			doc, err := openapidoc.Load()
			if err != nil {
				return fmt.Errorf("failed to load outbound record schema: %w", err)
			}

			out := make([]openapidoc.SignalDTO, 0, len(signals))
			for _, s := range signals {
				dto := openapidoc.FromDomain(s)
				raw, err := json.Marshal(dto)
				if err != nil {
					return fmt.Errorf("failed to marshal signal %s: %w", s.SignalID, err)
				}
				if err := doc.ValidateJSON(raw); err != nil {
					return fmt.Errorf("signal %s failed outbound schema validation: %w", s.SignalID, err)
				}
				out = append(out, dto)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&entityID, "entity", "", "Entity ID to export signals for")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of recent signals to export")

	return cmd
}

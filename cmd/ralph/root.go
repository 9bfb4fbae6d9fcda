package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	cctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "ralph",
		Short:         "Ralph procurement-signal discovery",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cctx.build(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(cctx))
	rootCmd.AddCommand(newStatusCommand(cctx))
	rootCmd.AddCommand(newExportCommand(cctx))
	rootCmd.AddCommand(newServeCommand(cctx))

	return rootCmd
}

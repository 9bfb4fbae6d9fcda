package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

func newServeCommand(cctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only Ops HTTP Surface (/healthz, /metrics, /status/{run})",
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := cctx.opsHandler(cmd.Context())
			if err != nil {
				return err
			}
			listenAddr := addr
			if listenAddr == "" {
				listenAddr = cctx.cfg.Ops.Addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ops http surface listening on %s\n", listenAddr)
			return http.ListenAndServe(listenAddr, handler)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overriding the configured ops.addr")
	return cmd
}

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Aggregate the 311 service request extract into per-area metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runDatasets(ctx, "requests")
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd)
}

package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var developmentCmd = &cobra.Command{
	Use:   "development",
	Short: "Aggregate the development application extract into per-area metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runDatasets(ctx, "development")
	},
}

func init() {
	rootCmd.AddCommand(developmentCmd)
}

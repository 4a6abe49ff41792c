package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var crimeCmd = &cobra.Command{
	Use:   "crime",
	Short: "Aggregate the police incident extract into per-area crime metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runDatasets(ctx, "crime")
	},
}

func init() {
	rootCmd.AddCommand(crimeCmd)
}

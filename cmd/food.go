package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var foodCmd = &cobra.Command{
	Use:   "food",
	Short: "Join and aggregate the food inspection extracts into per-area metrics",
	Long: `Joins the business, inspection, and violation extracts, categorizes
each establishment, and writes per-area establishment counts, category
mixes, and inspection-weighted violation averages.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runDatasets(ctx, "food")
	},
}

func init() {
	rootCmd.AddCommand(foodCmd)
}

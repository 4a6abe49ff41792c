package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openneighbourhoods/civic-cli/internal/ingest"
	"github.com/openneighbourhoods/civic-cli/internal/scoring"
)

var runConcurrency int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Aggregate every dataset, then compute composite scores",
	Long: `Processes all four datasets concurrently and finishes with the scoring
stage. Scoring ranks each metric across every area, so it only runs once
the last dataset artifact has been written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		reg := ingest.NewRegistry()
		for _, section := range reg.AllNames() {
			if err := cfg.Validate(section); err != nil {
				return err
			}
		}
		if err := cfg.Validate("scoring"); err != nil {
			return err
		}
		if err := scoring.ValidateConfig(cfg.Scoring); err != nil {
			return err
		}

		areas, err := loadBoundaries()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		eng := ingest.NewEngine(st, reg, newIngestEnv(areas))
		results, runErr := eng.RunParallel(ctx, nil, runConcurrency)
		for _, res := range results {
			printRunSummary(res)
		}
		if runErr != nil {
			return runErr
		}

		return scoreAndPrint(areas)
	},
}

func init() {
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 4, "max datasets processed in parallel")
	rootCmd.AddCommand(runCmd)
}

package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/openneighbourhoods/civic-cli/internal/ons"
	"github.com/openneighbourhoods/civic-cli/internal/scoring"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute composite neighbourhood scores from the dataset artifacts",
	Long: `Reads whichever dataset artifacts a prior run wrote, percentile-scores
every metric across areas, composes weighted category and overall scores,
and writes the ranked scores artifact.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		return scoreAndPrint(areas)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}

// scoreAndPrint computes, writes, and summarizes composite scores. The
// run command shares it so scoring always lands after the last dataset.
func scoreAndPrint(areas *ons.Store) error {
	raw, err := scoring.LoadRawMetrics(cfg.Data.OutputDir, areas)
	if err != nil {
		return err
	}

	scores := scoring.Score(areas, raw, cfg.Scoring)
	path, err := scoring.WriteScores(cfg.Data.OutputDir, cfg.Scoring.OutputFile, scores)
	if err != nil {
		return err
	}
	zap.L().Info("scores written",
		zap.String("path", path),
		zap.Int("areas", len(scores)),
	)

	fmt.Printf("\n--- Scores ---\n")
	printScoreTable(os.Stdout, scores, cfg.Scoring.SummaryCount)
	printScoreDistribution(scores)
	fmt.Printf("\nWritten to %s\n", path)
	return nil
}

// printScoreTable renders the ranked areas, top and bottom n when the
// list is long enough to elide the middle.
func printScoreTable(out io.Writer, scores []scoring.AreaScore, n int) {
	if n <= 0 {
		n = 5
	}
	if len(scores) <= 2*n {
		formatScoreRows(out, scores)
		return
	}
	formatScoreRows(out, scores[:n])
	_, _ = fmt.Fprintln(out, "  ...")
	formatScoreRows(out, scores[len(scores)-n:])
}

func formatScoreRows(out io.Writer, scores []scoring.AreaScore) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tAREA\tOVERALL\tSAFETY\tUPKEEP\tGROWTH\tFOOD")
	for _, s := range scores {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Rank,
			s.Name,
			formatScore(s.OverallScore),
			formatCategory(s, scoring.CategorySafety),
			formatCategory(s, scoring.CategoryUpkeep),
			formatCategory(s, scoring.CategoryGrowth),
			formatCategory(s, scoring.CategoryFood),
		)
	}
	_ = w.Flush()
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatCategory(s scoring.AreaScore, category string) string {
	v, ok := s.CategoryScores[category]
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

// printScoreDistribution summarizes the overall-score distribution across
// the scored areas.
func printScoreDistribution(scores []scoring.AreaScore) {
	values := make([]float64, 0, len(scores))
	for _, s := range scores {
		if s.OverallScore != nil {
			values = append(values, *s.OverallScore)
		}
	}
	if len(values) == 0 {
		fmt.Printf("\nNo areas had enough data to score.\n")
		return
	}
	sort.Float64s(values)

	fmt.Printf("\n--- Distribution ---\n")
	fmt.Printf("Scored areas: %d of %d\n", len(values), len(scores))
	fmt.Printf("Mean:         %.2f\n", stat.Mean(values, nil))
	fmt.Printf("Median:       %.2f\n", stat.Quantile(0.5, stat.Empirical, values, nil))
	fmt.Printf("Quartiles:    %.2f / %.2f\n",
		stat.Quantile(0.25, stat.Empirical, values, nil),
		stat.Quantile(0.75, stat.Empirical, values, nil))
	if len(values) > 1 {
		fmt.Printf("Std dev:      %.2f\n", stat.StdDev(values, nil))
	}
}

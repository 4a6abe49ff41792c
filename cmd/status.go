package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/openneighbourhoods/civic-cli/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the dataset run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		dataset, _ := cmd.Flags().GetString("dataset")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Dataset: dataset,
			Status:  store.Status(status),
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "status: list runs")
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		formatRunList(os.Stdout, runs)
		return nil
	},
}

func init() {
	statusCmd.Flags().String("dataset", "", "filter by dataset name")
	statusCmd.Flags().String("status", "", "filter by status (running, completed, failed, skipped)")
	statusCmd.Flags().Int("limit", 20, "max runs to display")
	rootCmd.AddCommand(statusCmd)
}

// formatRunList renders the run log as a table, most recent first.
func formatRunList(out io.Writer, runs []store.RunRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tDATASET\tSTATUS\tSTARTED\tDURATION\tPROCESSED\tUNASSIGNED\tNOTE")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t-------\t--------\t---------\t----------\t----")

	for _, r := range runs {
		duration := ""
		if r.CompletedAt != nil {
			duration = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		processed, unassigned := "", ""
		if r.Stats != nil {
			processed = fmt.Sprintf("%d", r.Stats.Processed)
			unassigned = fmt.Sprintf("%d", r.Stats.Unassigned)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Dataset,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			duration,
			processed,
			unassigned,
			truncateNote(r.Error),
		)
	}
	_ = w.Flush()
}

// truncateID keeps the first 8 characters of a run id for display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncateNote keeps error messages from blowing up the table.
func truncateNote(note string) string {
	if len(note) > 48 {
		return note[:45] + "..."
	}
	return note
}

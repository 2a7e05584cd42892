package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/report"
)

var listRuns int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored matches",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().IntVar(&listRuns, "runs", 0, "list the N most recent ingest runs instead of matches")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	if listRuns > 0 {
		runs, err := db.ListRuns(ctx, listRuns)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stdout, "No ingest runs recorded yet.")
			return nil
		}
		report.PrintRuns(os.Stdout, runs)
		return nil
	}

	matches, err := db.ListMatches(ctx)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'cricmetrics ingest <path>' to add some.")
		return nil
	}
	report.PrintMatchList(os.Stdout, matches)
	fmt.Fprintf(os.Stdout, "\n(%d matches)\n", len(matches))
	return nil
}

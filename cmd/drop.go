package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/config"
)

var (
	dropForce bool
	dropMatch string
)

// dropCmd deletes the metrics database file, or a single match.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the metrics database or one stored match",
	Long: `Permanently delete the SQLite metrics database. All stored match data will be lost.
Re-ingest your documents afterwards to rebuild.

With --match, only the named match and its innings rows are deleted. Teams,
players and venues are kept.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().StringVar(&dropMatch, "match", "", "delete only the match with this id prefix")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if dropMatch != "" {
		return dropOneMatch(cmd)
	}
	if cfg.DB.Driver != config.DriverSQLite {
		return fmt.Errorf("drop removes the SQLite file; db.driver is %q", cfg.DB.Driver)
	}
	dbPath := cfg.DB.Path
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(dbPath); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(dbPath + suffix)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}

func dropOneMatch(cmd *cobra.Command) error {
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	m, err := db.GetMatchByPrefix(ctx, dropMatch)
	if err != nil {
		return fmt.Errorf("query match: %w", err)
	}
	if m == nil {
		return fmt.Errorf("no match found with id prefix %q", dropMatch)
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete match %s (%s v %s, %s)\n",
			m.MatchID[:12], m.Team1, m.Team2, m.StartDate)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if _, err := db.DeleteMatch(ctx, m.MatchID); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted match %s\n", m.MatchID)
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/report"
	"github.com/pable/go-cricket-metrics/internal/storage"
)

var playerRecent int

// playerCmd prints career summaries for one or more players.
var playerCmd = &cobra.Command{
	Use:   "player <registry-id|name> [...]",
	Short: "Career batting, bowling and fielding summary for one or more players",
	Long: `Players are looked up by registry id, then exact name, then name
substring. The batting summary includes the mean and standard deviation of
the player's innings scores.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlayer,
}

func init() {
	playerCmd.Flags().IntVar(&playerRecent, "recent", 10, "number of recent innings to list (0 = all)")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, q := range args {
		if err := printPlayer(cmd.Context(), os.Stdout, db, q, playerRecent); err != nil {
			return err
		}
	}
	return nil
}

func printPlayer(ctx context.Context, w io.Writer, db *storage.DB, query string, recent int) error {
	p, err := db.FindPlayer(ctx, query)
	if err != nil {
		return fmt.Errorf("find player: %w", err)
	}
	if p == nil {
		fmt.Fprintf(os.Stderr, "No player matches %q\n", query)
		return nil
	}
	lines, err := db.PlayerInnings(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("query innings for %s: %w", p.Name, err)
	}
	if len(lines) == 0 {
		fmt.Fprintf(os.Stderr, "No innings stored for %s\n", p.Name)
		return nil
	}

	report.PrintPlayerCareer(w, report.Career(*p, lines), report.InningsScores(lines))
	fmt.Fprintln(w)
	report.PrintPlayerInnings(w, lines, recent)
	return nil
}

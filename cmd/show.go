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

var showPlayer string

var showCmd = &cobra.Command{
	Use:   "show <match-id-prefix>",
	Short: "Show the scorecard of a stored match",
	Long: `Print the batting and bowling cards, extras, fall of wickets and
partnerships of every innings of a stored match.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showPlayer, "player", "", "highlight a player (registry id or name)")
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()
	return showMatch(cmd.Context(), os.Stdout, db, args[0], showPlayer)
}

func showMatch(ctx context.Context, w io.Writer, db *storage.DB, prefix, player string) error {
	m, err := db.GetMatchByPrefix(ctx, prefix)
	if err != nil {
		return fmt.Errorf("query match: %w", err)
	}
	if m == nil {
		return fmt.Errorf("no match found with id prefix %q", prefix)
	}

	var focus int64
	if player != "" {
		p, err := db.FindPlayer(ctx, player)
		if err != nil {
			return fmt.Errorf("find player: %w", err)
		}
		if p != nil {
			focus = p.ID
		}
	}

	cards, err := db.InningsCards(ctx, m.MatchID)
	if err != nil {
		return fmt.Errorf("get innings: %w", err)
	}
	report.PrintMatchSummary(w, *m)
	for _, c := range cards {
		report.PrintInningsCard(w, c, focus)
	}
	return nil
}

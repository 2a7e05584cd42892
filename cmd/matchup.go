package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/report"
)

var matchupCmd = &cobra.Command{
	Use:   "matchup <batter> <bowler>",
	Short: "Head-to-head record of a batter against a bowler",
	Long:  "Players are looked up by registry id, exact name, or name substring.",
	Args:  cobra.ExactArgs(2),
	RunE:  runMatchup,
}

func runMatchup(cmd *cobra.Command, args []string) error {
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	batter, err := db.FindPlayer(ctx, args[0])
	if err != nil {
		return fmt.Errorf("find batter: %w", err)
	}
	if batter == nil {
		return fmt.Errorf("no player matches %q", args[0])
	}
	bowler, err := db.FindPlayer(ctx, args[1])
	if err != nil {
		return fmt.Errorf("find bowler: %w", err)
	}
	if bowler == nil {
		return fmt.Errorf("no player matches %q", args[1])
	}

	m, err := db.Matchup(ctx, batter.ID, bowler.ID)
	if err != nil {
		return fmt.Errorf("matchup: %w", err)
	}
	if m.Innings == 0 {
		fmt.Fprintf(os.Stdout, "%s has not faced %s in any stored match.\n", batter.Name, bowler.Name)
		return nil
	}
	report.PrintMatchup(os.Stdout, batter.Name, bowler.Name, m)
	return nil
}

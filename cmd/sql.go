package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the metrics database",
	Long: `Run an arbitrary SQL query against the metrics database and print results as a table.

Schema overview:
  teams(id, name, gender)   players(id, registry_id, name, gender)
  stadiums(id, name, city)  tournaments(id, name, gender, format, season)
  matches(id, team1_id, team2_id, stadium_id, tournament_id, start_date, format,
    gender, season, balls_per_over, overs, toss_winner_id, winner_id, result,
    method, by_runs, by_wickets, by_innings, ...)
  innings(match_id, number, batting_team_id, bowling_team_id, runs, wickets,
    legal_deliveries, run_rate, fall_of_wickets, target_runs, ...)
  deliveries(match_id, innings_number, seq, over_number, ball, batter_id,
    bowler_id, non_striker_id, batter_runs, extras_runs, total_runs, legal, ...)
  player_innings_stats(match_id, innings_number, player_id, team_id, runs,
    balls_faced, strike_rate, legal_balls, runs_conceded, wickets, economy, ...)
  player_over_stats, player_vs_player_stats, partnerships, fielding_events,
  match_documents, ingest_runs

Note: match ids are SHA-256 hex strings. Use a prefix with LIKE: WHERE match_id LIKE '3fa1%'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(cmd.Context(), query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}

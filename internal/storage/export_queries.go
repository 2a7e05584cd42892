package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pable/go-cricket-metrics/internal/model"
)

// TeamMatch is one stored match of a team, used by the team exporter.
type TeamMatch struct {
	MatchID   string
	StartDate string // "YYYY-MM-DD"
	Format    string
	Opponent  string
	Won       bool
	Decided   bool // false for ties, draws and no results
}

// PlayerTotals holds summed stats for one player across several matches.
type PlayerTotals struct {
	PlayerID   int64
	RegistryID string
	Name       string
	Matches    int
	Innings    int // innings batted
	Dismissals int
	model.Batting
	model.Bowling
	model.Fielding
}

// OverTotals is a team's batting output in one over number across several matches.
type OverTotals struct {
	Over       int
	Innings    int
	Runs       int
	BallsFaced int
	Wickets    int
}

// FindTeam returns the team with the given name (case-insensitive), or nil.
func (db *DB) FindTeam(ctx context.Context, name string) (*model.Team, error) {
	var t model.Team
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, name, gender FROM teams WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1", name).
		Scan(&t.ID, &t.Name, &t.Gender)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TeamMatches returns the team's matches starting on or after since, newest
// first. An empty formats list matches every format.
func (db *DB) TeamMatches(ctx context.Context, teamID int64, since string, formats []string) ([]TeamMatch, error) {
	args := []any{teamID, teamID, teamID, teamID, since}
	filter := ""
	if len(formats) > 0 {
		filter = fmt.Sprintf(" AND m.format IN (%s)", placeholders(len(formats)))
		for _, f := range formats {
			args = append(args, f)
		}
	}
	query := fmt.Sprintf(`
		SELECT m.id, m.start_date, m.format, o.name, m.winner_id IS NOT NULL, COALESCE(m.winner_id, 0) = ?
		FROM matches m
		JOIN teams o ON o.id = CASE WHEN m.team1_id = ? THEN m.team2_id ELSE m.team1_id END
		WHERE (m.team1_id = ? OR m.team2_id = ?)
		  AND m.start_date >= ?%s
		ORDER BY m.start_date DESC, m.id`, filter)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TeamMatch
	for rows.Next() {
		var (
			m            TeamMatch
			decided, won int
		)
		if err := rows.Scan(&m.MatchID, &m.StartDate, &m.Format, &m.Opponent, &decided, &won); err != nil {
			return nil, err
		}
		m.Decided, m.Won = decided != 0, won != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// TeamPlayerTotals sums the innings rows of every player who appeared for
// the team in the given matches, ordered by runs then wickets.
func (db *DB) TeamPlayerTotals(ctx context.Context, teamID int64, matchIDs []string) ([]PlayerTotals, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(matchIDs)+1)
	args = append(args, teamID)
	for _, id := range matchIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.registry_id, p.name,
		       COUNT(DISTINCT s.match_id), SUM(s.batted), SUM(s.is_out),
		       SUM(s.runs), SUM(s.balls_faced), SUM(s.fours), SUM(s.sixes), SUM(s.dots),
		       SUM(s.legal_balls), SUM(s.runs_conceded), SUM(s.wickets), SUM(s.maidens), SUM(s.bowl_dots),
		       SUM(s.wides), SUM(s.noballs),
		       SUM(s.catches), SUM(s.run_outs), SUM(s.stumpings)
		FROM player_innings_stats s
		JOIN players p ON p.id = s.player_id
		WHERE s.team_id = ?
		  AND s.match_id IN (%s)
		GROUP BY p.id
		ORDER BY SUM(s.runs) DESC, SUM(s.wickets) DESC, p.name`,
		placeholders(len(matchIDs)))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PlayerTotals
	for rows.Next() {
		var t PlayerTotals
		if err := rows.Scan(&t.PlayerID, &t.RegistryID, &t.Name,
			&t.Matches, &t.Innings, &t.Dismissals,
			&t.Batting.Runs, &t.BallsFaced, &t.Fours, &t.Sixes, &t.Batting.Dots,
			&t.LegalBalls, &t.RunsConceded, &t.Wickets, &t.Maidens, &t.Bowling.Dots,
			&t.Wides, &t.NoBalls,
			&t.Catches, &t.RunOuts, &t.Stumpings); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TeamOverTotals sums the team's batters' runs per over number across the given
// matches, from the per-over player rows.
func (db *DB) TeamOverTotals(ctx context.Context, teamID int64, matchIDs []string) ([]OverTotals, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(matchIDs)+1)
	args = append(args, teamID)
	for _, id := range matchIDs {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT over_number,
		       COUNT(DISTINCT match_id || ':' || innings_number),
		       SUM(runs), SUM(balls_faced), SUM(is_out)
		FROM player_over_stats
		WHERE team_id = ?
		  AND match_id IN (%s)
		  AND (balls_faced > 0 OR runs > 0 OR is_out > 0)
		GROUP BY over_number
		ORDER BY over_number`,
		placeholders(len(matchIDs)))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OverTotals
	for rows.Next() {
		var o OverTotals
		if err := rows.Scan(&o.Over, &o.Innings, &o.Runs, &o.BallsFaced, &o.Wickets); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// placeholders returns a comma-separated string of n "?" for SQL IN clauses,
// e.g. placeholders(3) → "?,?,?".
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

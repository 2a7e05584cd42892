package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"github.com/pable/go-cricket-metrics/internal/dimension"
	"github.com/pable/go-cricket-metrics/internal/model"
)

// Resolve returns the id of the dimension row with the given natural key,
// inserting it with attrs when absent. An existing row is never updated, so
// the first writer's attributes win.
func (db *DB) Resolve(ctx context.Context, kind dimension.Kind, key string, attrs dimension.Attributes) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("resolve %s: %w", kind, dimension.ErrEmptyKey)
	}
	var (
		insert string
		args   []any
	)
	switch kind {
	case dimension.Team:
		insert = `INSERT INTO teams(name, gender) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`
		args = []any{key, attrs.Gender}
	case dimension.Player:
		name := attrs.Name
		if name == "" {
			name = key
		}
		insert = `INSERT INTO players(registry_id, name, gender) VALUES (?, ?, ?) ON CONFLICT(registry_id) DO NOTHING`
		args = []any{key, name, attrs.Gender}
	case dimension.Stadium:
		insert = `INSERT INTO stadiums(name, city) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`
		args = []any{key, attrs.City}
	case dimension.Tournament:
		insert = `INSERT INTO tournaments(name, gender, format, season) VALUES (?, ?, ?, ?) ON CONFLICT(name) DO NOTHING`
		args = []any{key, attrs.Gender, attrs.Format, attrs.Season}
	default:
		return 0, fmt.Errorf("resolve: unknown dimension %s", kind)
	}

	if _, err := db.conn.ExecContext(ctx, insert, args...); err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", kind, key, err)
	}
	var id int64
	q := fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", kind.Table(), kind.KeyColumn())
	if err := db.conn.QueryRowContext(ctx, q, key).Scan(&id); err != nil {
		return 0, fmt.Errorf("select %s %q: %w", kind, key, err)
	}
	return id, nil
}

// MatchExists returns true if a match with the given id is already stored.
func (db *DB) MatchExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(1) FROM matches WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MatchIDs returns every stored match id.
func (db *DB) MatchIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT id FROM matches ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SaveRun records one batch ingestion.
func (db *DB) SaveRun(ctx context.Context, run *model.IngestRun) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO ingest_runs(id, started_at, finished_at, sources, documents, ingested, skipped, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano), run.FinishedAt.Format(time.RFC3339Nano),
		run.Sources, run.Documents, run.Ingested, run.Skipped, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert ingest_run %s: %w", run.ID, err)
	}
	return nil
}

// SaveMatch writes the whole match graph in one transaction: the match,
// its archived document, and every innings with all of its rows.
func (db *DB) SaveMatch(ctx context.Context, g *model.MatchGraph) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM matches WHERE id = ?", g.Match.ID).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrMatchExists, g.Match.ID)
	}

	if err := insertMatch(ctx, tx, g); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO match_documents(match_id, size, body) VALUES (?, ?, ?)",
		g.Match.ID, len(g.Document), snappy.Encode(nil, g.Document)); err != nil {
		return fmt.Errorf("insert match_document: %w", err)
	}
	for i := range g.Innings {
		if err := insertInnings(ctx, tx, &g.Innings[i]); err != nil {
			return fmt.Errorf("innings %d: %w", g.Innings[i].Innings.Number, err)
		}
	}
	return tx.Commit()
}

func insertMatch(ctx context.Context, tx *sql.Tx, g *model.MatchGraph) error {
	m := &g.Match
	_, err := tx.ExecContext(ctx, `
		INSERT INTO matches(
			id, team1_id, team2_id, stadium_id, tournament_id,
			start_date, dates, format, format_number, gender, season, team_type,
			balls_per_over, overs, event,
			toss_winner_id, toss_decision, toss_uncontested,
			winner_id, result, method, by_runs, by_wickets, by_innings, eliminator_id, bowl_out_winner_id,
			officials, squads, player_of_match, supersubs, missing, bowl_out,
			source, ingested_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Team1ID, m.Team2ID, nullID(m.StadiumID), nullID(m.TournamentID),
		m.StartDate(), jsonText(m.Dates), m.Format, m.FormatNumber, m.Gender, m.Season, m.TeamType,
		m.BallsPerOver, m.Overs, jsonText(m.Event),
		nullID(m.Toss.WinnerID), m.Toss.Decision, boolInt(m.Toss.Uncontested),
		nullID(m.Outcome.WinnerID), m.Outcome.Result, m.Outcome.Method,
		m.Outcome.ByRuns, m.Outcome.ByWickets, m.Outcome.ByInnings,
		nullID(m.Outcome.EliminatorID), nullID(m.Outcome.BowlOutID),
		rawText(m.Officials), jsonText(m.Players), jsonText(m.PlayerOfMatch), jsonText(m.Supersubs),
		rawText(m.Missing), rawText(m.BowlOut),
		g.Source, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert match %s: %w", m.ID, err)
	}
	return nil
}

func insertInnings(ctx context.Context, tx *sql.Tx, r *model.InningsResult) error {
	inn := &r.Innings
	var targetRuns, targetOvers any
	if inn.Target != nil {
		targetRuns = inn.Target.Runs
		if inn.Target.Overs > 0 {
			targetOvers = inn.Target.Overs
		}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO innings(
			match_id, number, batting_team_id, bowling_team_id,
			runs, wickets, legal_deliveries, overs,
			wides, noballs, byes, legbyes, penalty, run_rate,
			fall_of_wickets, target_runs, target_overs,
			declared, forfeited, super_over, powerplays, miscounted_overs
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		inn.MatchID, inn.Number, inn.BattingTeamID, inn.BowlingTeamID,
		inn.Runs, inn.Wickets, inn.LegalDeliveries, inn.Overs.String(),
		inn.Extras.Wides, inn.Extras.NoBalls, inn.Extras.Byes, inn.Extras.LegByes, inn.Extras.Penalty,
		rate(inn.RunRate()),
		fallOfWickets(inn.FallOfWickets), targetRuns, targetOvers,
		boolInt(inn.Declared), boolInt(inn.Forfeited), boolInt(inn.SuperOver), jsonText(inn.Powerplays),
		jsonText(inn.MiscountedOvers),
	)
	if err != nil {
		return fmt.Errorf("insert innings: %w", err)
	}

	for _, step := range []func(context.Context, *sql.Tx, *model.InningsResult) error{
		insertDeliveries,
		insertPlayerInningsStats,
		insertPlayerOverStats,
		insertMatchups,
		insertPartnerships,
		insertFieldingEvents,
	} {
		if err := step(ctx, tx, r); err != nil {
			return err
		}
	}
	return nil
}

func insertDeliveries(ctx context.Context, tx *sql.Tx, r *model.InningsResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deliveries(
			match_id, innings_number, seq, over_number, ball, legal_index,
			batter_id, bowler_id, non_striker_id,
			batter_runs, extras_runs, total_runs,
			wides, noballs, byes, legbyes, penalty,
			legal, boundary, extras_boundary,
			wickets, replacements, review, powerplay
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range r.Deliveries {
		_, err = stmt.ExecContext(ctx,
			r.Innings.MatchID, r.Innings.Number, d.Seq, d.Over, d.Ball, d.LegalIndex,
			d.BatterID, d.BowlerID, d.NonStrikerID,
			d.BatterRuns, d.ExtrasRuns, d.TotalRuns,
			d.Extras.Wides, d.Extras.NoBalls, d.Extras.Byes, d.Extras.LegByes, d.Extras.Penalty,
			boolInt(d.Legal), d.Boundary, d.ExtrasBoundary,
			rawText(d.Wickets), rawText(d.Replacements), rawText(d.Review), d.PowerplayType,
		)
		if err != nil {
			return fmt.Errorf("insert delivery %d: %w", d.Seq, err)
		}
	}
	return nil
}

func insertPlayerInningsStats(ctx context.Context, tx *sql.Tx, r *model.InningsResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_innings_stats(
			match_id, innings_number, player_id, team_id,
			batted, batting_pos, not_out, dismissal_kind, dismissed_by_id,
			runs, balls_faced, fours, sixes, dots, is_out, strike_rate,
			bowled, legal_balls, runs_conceded, wickets, maidens, bowl_dots,
			wides, noballs, fours_conceded, sixes_conceded, economy,
			catches, run_outs, stumpings
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range r.Players {
		_, err = stmt.ExecContext(ctx,
			r.Innings.MatchID, r.Innings.Number, s.PlayerID, s.TeamID,
			boolInt(s.Batted), s.BattingPos, boolInt(s.NotOut), s.DismissalKind, nullID(s.DismissedByID),
			s.Batting.Runs, s.BallsFaced, s.Fours, s.Sixes, s.Batting.Dots, boolInt(s.Out), rate(s.StrikeRate()),
			boolInt(s.Bowled), s.LegalBalls, s.RunsConceded, s.Wickets, s.Maidens, s.Bowling.Dots,
			s.Wides, s.NoBalls, s.FoursConceded, s.SixesConceded, rate(s.Economy()),
			s.Catches, s.RunOuts, s.Stumpings,
		)
		if err != nil {
			return fmt.Errorf("insert player_innings_stats for %d: %w", s.PlayerID, err)
		}
	}
	return nil
}

func insertPlayerOverStats(ctx context.Context, tx *sql.Tx, r *model.InningsResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_over_stats(
			match_id, innings_number, over_number, player_id, team_id,
			runs, balls_faced, fours, sixes, dots, is_out,
			legal_balls, runs_conceded, wickets, maidens, bowl_dots,
			wides, noballs, fours_conceded, sixes_conceded,
			catches, run_outs, stumpings
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range r.Overs {
		_, err = stmt.ExecContext(ctx,
			r.Innings.MatchID, r.Innings.Number, s.Over, s.PlayerID, s.TeamID,
			s.Batting.Runs, s.BallsFaced, s.Fours, s.Sixes, s.Batting.Dots, boolInt(s.Out),
			s.LegalBalls, s.RunsConceded, s.Wickets, s.Maidens, s.Bowling.Dots,
			s.Wides, s.NoBalls, s.FoursConceded, s.SixesConceded,
			s.Catches, s.RunOuts, s.Stumpings,
		)
		if err != nil {
			return fmt.Errorf("insert player_over_stats over %d player %d: %w", s.Over, s.PlayerID, err)
		}
	}
	return nil
}

func insertMatchups(ctx context.Context, tx *sql.Tx, r *model.InningsResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO player_vs_player_stats(
			match_id, innings_number, batter_id, bowler_id,
			runs, balls_faced, fours, sixes, dots, is_out,
			legal_balls, runs_conceded, wickets, bowl_dots, wides, noballs
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range r.Matchups {
		_, err = stmt.ExecContext(ctx,
			r.Innings.MatchID, r.Innings.Number, s.BatterID, s.BowlerID,
			s.Batting.Runs, s.BallsFaced, s.Fours, s.Sixes, s.Batting.Dots, boolInt(s.Out),
			s.LegalBalls, s.RunsConceded, s.Wickets, s.Bowling.Dots, s.Wides, s.NoBalls,
		)
		if err != nil {
			return fmt.Errorf("insert player_vs_player_stats %d v %d: %w", s.BatterID, s.BowlerID, err)
		}
	}
	return nil
}

func insertPartnerships(ctx context.Context, tx *sql.Tx, r *model.InningsResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO partnerships(
			match_id, innings_number, number, player1_id, player2_id,
			player1_runs, player2_runs, batter_runs, extras, runs, balls,
			fours, sixes, dismissal, start_wickets, strike_rate
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range r.Partnerships {
		p := &r.Partnerships[i]
		_, err = stmt.ExecContext(ctx,
			r.Innings.MatchID, r.Innings.Number, p.Number, p.Player1ID, p.Player2ID,
			p.Player1Runs, p.Player2Runs, p.BatterRuns, p.Extras, p.Runs(), p.Balls,
			p.Fours, p.Sixes, boolInt(p.Dismissal), p.StartWickets, rate(p.StrikeRate()),
		)
		if err != nil {
			return fmt.Errorf("insert partnership %d: %w", p.Number, err)
		}
	}
	return nil
}

func insertFieldingEvents(ctx context.Context, tx *sql.Tx, r *model.InningsResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fielding_events(
			match_id, innings_number, seq, fielder_id, dismissed_id, bowler_id,
			over_number, ball, kind, substitute
		) VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, f := range r.Fielding {
		_, err = stmt.ExecContext(ctx,
			r.Innings.MatchID, r.Innings.Number, i+1, f.FielderID, f.DismissedID, nullID(f.BowlerID),
			f.Over, f.Ball, f.Kind, boolInt(f.Substitute),
		)
		if err != nil {
			return fmt.Errorf("insert fielding_event %d: %w", i+1, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullID maps the zero id to NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// rate stores an undefined rate as NULL.
func rate(r model.Rate) any {
	f, ok := r.Float64()
	if !ok {
		return nil
	}
	return f
}

func rawText(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// jsonText encodes v for a TEXT column; nil and empty values become NULL.
func jsonText(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	switch string(b) {
	case "null", "[]", "{}":
		return nil
	}
	return string(b)
}

// fallOfWickets always encodes a list, empty included.
func fallOfWickets(f []model.FallOfWicket) string {
	if f == nil {
		f = []model.FallOfWicket{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "[]"
	}
	return string(b)
}

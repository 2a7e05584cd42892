package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/jackc/pgx/v5"

	"github.com/pable/go-cricket-metrics/internal/dimension"
	"github.com/pable/go-cricket-metrics/internal/model"
)

// Resolve returns the id for a natural key, inserting the row when absent.
// Concurrent inserts of one key settle on a single row; the losers read it back.
func (s *Store) Resolve(ctx context.Context, kind dimension.Kind, key string, attrs dimension.Attributes) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("resolve %s: %w", kind, dimension.ErrEmptyKey)
	}
	var (
		insert string
		args   []any
	)
	switch kind {
	case dimension.Team:
		insert = `INSERT INTO teams(name, gender) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING RETURNING id`
		args = []any{key, attrs.Gender}
	case dimension.Player:
		name := attrs.Name
		if name == "" {
			name = key
		}
		insert = `INSERT INTO players(registry_id, name, gender) VALUES ($1, $2, $3) ON CONFLICT (registry_id) DO NOTHING RETURNING id`
		args = []any{key, name, attrs.Gender}
	case dimension.Stadium:
		insert = `INSERT INTO stadiums(name, city) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING RETURNING id`
		args = []any{key, attrs.City}
	case dimension.Tournament:
		insert = `INSERT INTO tournaments(name, gender, format, season) VALUES ($1, $2, $3, $4) ON CONFLICT (name) DO NOTHING RETURNING id`
		args = []any{key, attrs.Gender, attrs.Format, attrs.Season}
	default:
		return 0, fmt.Errorf("resolve: unknown dimension %s", kind)
	}

	var id int64
	err := s.pool.QueryRow(ctx, insert, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("insert %s %q: %w", kind, key, err)
	}
	q := fmt.Sprintf("SELECT id FROM %s WHERE %s = $1", kind.Table(), kind.KeyColumn())
	if err := s.pool.QueryRow(ctx, q, key).Scan(&id); err != nil {
		return 0, fmt.Errorf("select %s %q: %w", kind, key, err)
	}
	return id, nil
}

// MatchExists reports whether the match id is stored.
func (s *Store) MatchExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

// MatchIDs returns every stored match id.
func (s *Store) MatchIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT id FROM matches ORDER BY id")
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// SaveRun records one batch ingestion.
func (s *Store) SaveRun(ctx context.Context, run *model.IngestRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingest_runs(id, started_at, finished_at, sources, documents, ingested, skipped, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.StartedAt, run.FinishedAt, run.Sources,
		run.Documents, run.Ingested, run.Skipped, run.Failed)
	if err != nil {
		return fmt.Errorf("insert ingest_run %s: %w", run.ID, err)
	}
	return nil
}

// SaveMatch writes the match graph in one transaction. The match row goes
// first; if another writer already stored the id, nothing else is written.
func (s *Store) SaveMatch(ctx context.Context, g *model.MatchGraph) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	m := &g.Match
	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO matches(
			id, team1_id, team2_id, stadium_id, tournament_id,
			start_date, dates, format, format_number, gender, season, team_type,
			balls_per_over, overs, event,
			toss_winner_id, toss_decision, toss_uncontested,
			winner_id, result, method, by_runs, by_wickets, by_innings, eliminator_id, bowl_out_winner_id,
			officials, squads, player_of_match, supersubs, missing, bowl_out,
			source, ingested_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
		          $21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34)
		ON CONFLICT (id) DO NOTHING
		RETURNING id`,
		m.ID, m.Team1ID, m.Team2ID, nullID(m.StadiumID), nullID(m.TournamentID),
		m.StartDate(), jsonb(m.Dates), m.Format, m.FormatNumber, m.Gender, m.Season, m.TeamType,
		m.BallsPerOver, m.Overs, jsonb(m.Event),
		nullID(m.Toss.WinnerID), m.Toss.Decision, m.Toss.Uncontested,
		nullID(m.Outcome.WinnerID), m.Outcome.Result, m.Outcome.Method,
		m.Outcome.ByRuns, m.Outcome.ByWickets, m.Outcome.ByInnings,
		nullID(m.Outcome.EliminatorID), nullID(m.Outcome.BowlOutID),
		raw(m.Officials), jsonb(m.Players), jsonb(m.PlayerOfMatch), jsonb(m.Supersubs),
		raw(m.Missing), raw(m.BowlOut),
		g.Source, time.Now().UTC(),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrMatchExists, m.ID)
	}
	if err != nil {
		return fmt.Errorf("insert match %s: %w", m.ID, err)
	}

	b := &pgx.Batch{}
	b.Queue("INSERT INTO match_documents(match_id, size, body) VALUES ($1, $2, $3)",
		m.ID, len(g.Document), snappy.Encode(nil, g.Document))
	for i := range g.Innings {
		queueInnings(b, &g.Innings[i])
	}

	br := tx.SendBatch(ctx, b)
	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch statement %d: %w", i+1, err)
		}
	}
	if err := br.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func queueInnings(b *pgx.Batch, r *model.InningsResult) {
	inn := &r.Innings
	var targetRuns, targetOvers any
	if inn.Target != nil {
		targetRuns = inn.Target.Runs
		if inn.Target.Overs > 0 {
			targetOvers = inn.Target.Overs
		}
	}
	fow := inn.FallOfWickets
	if fow == nil {
		fow = []model.FallOfWicket{}
	}
	b.Queue(`
		INSERT INTO innings(
			match_id, number, batting_team_id, bowling_team_id,
			runs, wickets, legal_deliveries, overs,
			wides, noballs, byes, legbyes, penalty, run_rate,
			fall_of_wickets, target_runs, target_overs,
			declared, forfeited, super_over, powerplays, miscounted_overs
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		inn.MatchID, inn.Number, inn.BattingTeamID, inn.BowlingTeamID,
		inn.Runs, inn.Wickets, inn.LegalDeliveries, inn.Overs.String(),
		inn.Extras.Wides, inn.Extras.NoBalls, inn.Extras.Byes, inn.Extras.LegByes, inn.Extras.Penalty,
		rate(inn.RunRate()),
		jsonb(fow), targetRuns, targetOvers,
		inn.Declared, inn.Forfeited, inn.SuperOver, jsonb(inn.Powerplays),
		jsonb(inn.MiscountedOvers),
	)

	for _, d := range r.Deliveries {
		b.Queue(`
			INSERT INTO deliveries(
				match_id, innings_number, seq, over_number, ball, legal_index,
				batter_id, bowler_id, non_striker_id,
				batter_runs, extras_runs, total_runs,
				wides, noballs, byes, legbyes, penalty,
				legal, boundary, extras_boundary,
				wickets, replacements, review, powerplay
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
			inn.MatchID, inn.Number, d.Seq, d.Over, d.Ball, d.LegalIndex,
			d.BatterID, d.BowlerID, d.NonStrikerID,
			d.BatterRuns, d.ExtrasRuns, d.TotalRuns,
			d.Extras.Wides, d.Extras.NoBalls, d.Extras.Byes, d.Extras.LegByes, d.Extras.Penalty,
			d.Legal, d.Boundary, d.ExtrasBoundary,
			raw(d.Wickets), raw(d.Replacements), raw(d.Review), d.PowerplayType,
		)
	}

	for _, p := range r.Players {
		b.Queue(`
			INSERT INTO player_innings_stats(
				match_id, innings_number, player_id, team_id,
				batted, batting_pos, not_out, dismissal_kind, dismissed_by_id,
				runs, balls_faced, fours, sixes, dots, is_out, strike_rate,
				bowled, legal_balls, runs_conceded, wickets, maidens, bowl_dots,
				wides, noballs, fours_conceded, sixes_conceded, economy,
				catches, run_outs, stumpings
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			          $21,$22,$23,$24,$25,$26,$27,$28,$29,$30)`,
			inn.MatchID, inn.Number, p.PlayerID, p.TeamID,
			p.Batted, p.BattingPos, p.NotOut, p.DismissalKind, nullID(p.DismissedByID),
			p.Batting.Runs, p.BallsFaced, p.Fours, p.Sixes, p.Batting.Dots, p.Out, rate(p.StrikeRate()),
			p.Bowled, p.LegalBalls, p.RunsConceded, p.Wickets, p.Maidens, p.Bowling.Dots,
			p.Wides, p.NoBalls, p.FoursConceded, p.SixesConceded, rate(p.Economy()),
			p.Catches, p.RunOuts, p.Stumpings,
		)
	}

	for _, o := range r.Overs {
		b.Queue(`
			INSERT INTO player_over_stats(
				match_id, innings_number, over_number, player_id, team_id,
				runs, balls_faced, fours, sixes, dots, is_out,
				legal_balls, runs_conceded, wickets, maidens, bowl_dots,
				wides, noballs, fours_conceded, sixes_conceded,
				catches, run_outs, stumpings
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
			inn.MatchID, inn.Number, o.Over, o.PlayerID, o.TeamID,
			o.Batting.Runs, o.BallsFaced, o.Fours, o.Sixes, o.Batting.Dots, o.Out,
			o.LegalBalls, o.RunsConceded, o.Wickets, o.Maidens, o.Bowling.Dots,
			o.Wides, o.NoBalls, o.FoursConceded, o.SixesConceded,
			o.Catches, o.RunOuts, o.Stumpings,
		)
	}

	for _, v := range r.Matchups {
		b.Queue(`
			INSERT INTO player_vs_player_stats(
				match_id, innings_number, batter_id, bowler_id,
				runs, balls_faced, fours, sixes, dots, is_out,
				legal_balls, runs_conceded, wickets, bowl_dots, wides, noballs
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			inn.MatchID, inn.Number, v.BatterID, v.BowlerID,
			v.Batting.Runs, v.BallsFaced, v.Fours, v.Sixes, v.Batting.Dots, v.Out,
			v.LegalBalls, v.RunsConceded, v.Wickets, v.Bowling.Dots, v.Wides, v.NoBalls,
		)
	}

	for i := range r.Partnerships {
		p := &r.Partnerships[i]
		b.Queue(`
			INSERT INTO partnerships(
				match_id, innings_number, number, player1_id, player2_id,
				player1_runs, player2_runs, batter_runs, extras, runs, balls,
				fours, sixes, dismissal, start_wickets, strike_rate
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			inn.MatchID, inn.Number, p.Number, p.Player1ID, p.Player2ID,
			p.Player1Runs, p.Player2Runs, p.BatterRuns, p.Extras, p.Runs(), p.Balls,
			p.Fours, p.Sixes, p.Dismissal, p.StartWickets, rate(p.StrikeRate()),
		)
	}

	for i, f := range r.Fielding {
		b.Queue(`
			INSERT INTO fielding_events(
				match_id, innings_number, seq, fielder_id, dismissed_id, bowler_id,
				over_number, ball, kind, substitute
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			inn.MatchID, inn.Number, i+1, f.FielderID, f.DismissedID, nullID(f.BowlerID),
			f.Over, f.Ball, f.Kind, f.Substitute,
		)
	}
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func rate(r model.Rate) any {
	if f, ok := r.Float64(); ok {
		return f
	}
	return nil
}

// raw passes document JSON through to a jsonb column; empty becomes NULL.
func raw(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}

// jsonb encodes v for a jsonb column; nil and empty values become NULL.
func jsonb(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	switch string(b) {
	case "null", "{}":
		return nil
	case "[]":
		if _, ok := v.([]model.FallOfWicket); !ok {
			return nil
		}
	}
	return string(b)
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/snappy"

	"github.com/pable/go-cricket-metrics/internal/model"
)

const matchSummarySelect = `
	SELECT m.id, m.start_date, m.format, t1.name, t2.name,
	       COALESCE(s.name, ''), COALESCE(tr.name, ''),
	       COALESCE(w.name, ''), m.result, m.method, m.by_runs, m.by_wickets, m.by_innings
	FROM matches m
	JOIN teams t1 ON t1.id = m.team1_id
	JOIN teams t2 ON t2.id = m.team2_id
	LEFT JOIN stadiums s ON s.id = m.stadium_id
	LEFT JOIN tournaments tr ON tr.id = m.tournament_id
	LEFT JOIN teams w ON w.id = m.winner_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatchSummary(r rowScanner) (model.MatchSummary, error) {
	var (
		s                            model.MatchSummary
		winner, result, method       string
		byRuns, byWickets, byInnings int
	)
	err := r.Scan(&s.MatchID, &s.StartDate, &s.Format, &s.Team1, &s.Team2, &s.Venue, &s.Tournament,
		&winner, &result, &method, &byRuns, &byWickets, &byInnings)
	if err != nil {
		return s, err
	}
	s.Result = ResultText(winner, result, method, byRuns, byWickets, byInnings)
	return s, nil
}

// ResultText renders a match outcome the way a scorecard headline does,
// e.g. "India won by 7 wickets" or "tie".
func ResultText(winner, result, method string, byRuns, byWickets, byInnings int) string {
	var b strings.Builder
	switch {
	case winner == "" && result != "":
		b.WriteString(result)
	case winner == "":
		return ""
	default:
		b.WriteString(winner + " won")
		margin := ""
		switch {
		case byWickets > 0:
			margin = plural(byWickets, "wicket")
		case byRuns > 0:
			margin = plural(byRuns, "run")
		}
		switch {
		case byInnings > 0 && margin != "":
			b.WriteString(" by an innings and " + margin)
		case byInnings > 0:
			b.WriteString(" by an innings")
		case margin != "":
			b.WriteString(" by " + margin)
		}
	}
	if method != "" {
		b.WriteString(" (" + method + ")")
	}
	return b.String()
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// ListMatches returns all stored matches, newest first.
func (db *DB) ListMatches(ctx context.Context) ([]model.MatchSummary, error) {
	rows, err := db.conn.QueryContext(ctx, matchSummarySelect+" ORDER BY m.start_date DESC, m.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		s, err := scanMatchSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMatchByPrefix finds the first match whose id starts with the given prefix.
func (db *DB) GetMatchByPrefix(ctx context.Context, prefix string) (*model.MatchSummary, error) {
	s, err := scanMatchSummary(db.conn.QueryRowContext(ctx,
		matchSummarySelect+" WHERE m.id LIKE ? ORDER BY m.id LIMIT 1", prefix+"%"))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// InningsCards returns every innings of a match with its scorecard rows and
// partnerships, in innings order.
func (db *DB) InningsCards(ctx context.Context, matchID string) ([]model.InningsCard, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT i.number, i.batting_team_id, i.bowling_team_id, bt.name, bw.name,
		       i.runs, i.wickets, i.legal_deliveries, m.balls_per_over,
		       i.wides, i.noballs, i.byes, i.legbyes, i.penalty,
		       i.fall_of_wickets, i.target_runs, i.target_overs,
		       i.declared, i.forfeited, i.super_over, i.miscounted_overs
		FROM innings i
		JOIN matches m ON m.id = i.match_id
		JOIN teams bt ON bt.id = i.batting_team_id
		JOIN teams bw ON bw.id = i.bowling_team_id
		WHERE i.match_id = ?
		ORDER BY i.number`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []model.InningsCard
	for rows.Next() {
		var (
			c                             model.InningsCard
			bpo                           int
			fow                           string
			targetRuns                    sql.NullInt64
			targetOvers                   sql.NullFloat64
			declared, forfeited, superOvr int
			miscounted                    sql.NullString
		)
		inn := &c.Innings
		if err := rows.Scan(&inn.Number, &inn.BattingTeamID, &inn.BowlingTeamID, &c.BattingTeam, &c.BowlingTeam,
			&inn.Runs, &inn.Wickets, &inn.LegalDeliveries, &bpo,
			&inn.Extras.Wides, &inn.Extras.NoBalls, &inn.Extras.Byes, &inn.Extras.LegByes, &inn.Extras.Penalty,
			&fow, &targetRuns, &targetOvers,
			&declared, &forfeited, &superOvr, &miscounted); err != nil {
			return nil, err
		}
		inn.MatchID = matchID
		inn.Overs = model.OversFromBalls(inn.LegalDeliveries, bpo)
		inn.Declared, inn.Forfeited, inn.SuperOver = declared != 0, forfeited != 0, superOvr != 0
		if miscounted.Valid {
			inn.MiscountedOvers = json.RawMessage(miscounted.String)
		}
		if targetRuns.Valid {
			inn.Target = &model.Target{Runs: int(targetRuns.Int64), Overs: targetOvers.Float64}
		}
		if err := json.Unmarshal([]byte(fow), &inn.FallOfWickets); err != nil {
			return nil, fmt.Errorf("innings %d fall of wickets: %w", inn.Number, err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range cards {
		n := cards[i].Innings.Number
		if cards[i].Rows, err = db.scorecardRows(ctx, matchID, n); err != nil {
			return nil, fmt.Errorf("innings %d rows: %w", n, err)
		}
		if cards[i].Partnerships, err = db.partnershipLines(ctx, matchID, n); err != nil {
			return nil, fmt.Errorf("innings %d partnerships: %w", n, err)
		}
	}
	return cards, nil
}

func (db *DB) scorecardRows(ctx context.Context, matchID string, innings int) ([]model.ScorecardRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.id, p.name, s.batted, s.batting_pos, s.not_out, s.dismissal_kind,
		       s.runs, s.balls_faced, s.fours, s.sixes, s.dots, s.is_out,
		       s.bowled, s.legal_balls, s.runs_conceded, s.wickets, s.maidens, s.bowl_dots,
		       s.wides, s.noballs, s.fours_conceded, s.sixes_conceded,
		       s.catches, s.run_outs, s.stumpings
		FROM player_innings_stats s
		JOIN players p ON p.id = s.player_id
		WHERE s.match_id = ? AND s.innings_number = ?
		ORDER BY s.batted DESC, s.batting_pos, p.name`, matchID, innings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScorecardRow
	for rows.Next() {
		var (
			r                             model.ScorecardRow
			batted, notOut, isOut, bowled int
		)
		if err := rows.Scan(&r.PlayerID, &r.Name, &batted, &r.BattingPos, &notOut, &r.DismissalKind,
			&r.Batting.Runs, &r.BallsFaced, &r.Fours, &r.Sixes, &r.Batting.Dots, &isOut,
			&bowled, &r.LegalBalls, &r.RunsConceded, &r.Wickets, &r.Maidens, &r.Bowling.Dots,
			&r.Wides, &r.NoBalls, &r.FoursConceded, &r.SixesConceded,
			&r.Catches, &r.RunOuts, &r.Stumpings); err != nil {
			return nil, err
		}
		r.Batted, r.NotOut, r.Out, r.Bowled = batted != 0, notOut != 0, isOut != 0, bowled != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func (db *DB) partnershipLines(ctx context.Context, matchID string, innings int) ([]model.PartnershipLine, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT pt.number, pt.player1_id, pt.player2_id, p1.name, p2.name,
		       pt.player1_runs, pt.player2_runs, pt.batter_runs, pt.extras, pt.balls,
		       pt.fours, pt.sixes, pt.dismissal, pt.start_wickets
		FROM partnerships pt
		JOIN players p1 ON p1.id = pt.player1_id
		JOIN players p2 ON p2.id = pt.player2_id
		WHERE pt.match_id = ? AND pt.innings_number = ?
		ORDER BY pt.number`, matchID, innings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PartnershipLine
	for rows.Next() {
		var (
			l         model.PartnershipLine
			dismissal int
		)
		if err := rows.Scan(&l.Number, &l.Player1ID, &l.Player2ID, &l.Player1, &l.Player2,
			&l.Player1Runs, &l.Player2Runs, &l.BatterRuns, &l.Extras, &l.Balls,
			&l.Fours, &l.Sixes, &dismissal, &l.StartWickets); err != nil {
			return nil, err
		}
		l.MatchID, l.InningsNumber, l.Dismissal = matchID, innings, dismissal != 0
		out = append(out, l)
	}
	return out, rows.Err()
}

// FindPlayer looks a player up by registry id, then exact name, then name
// substring. It returns nil when nothing matches.
func (db *DB) FindPlayer(ctx context.Context, query string) (*model.Player, error) {
	for _, q := range []struct {
		where string
		arg   string
	}{
		{"registry_id = ?", query},
		{"name = ? COLLATE NOCASE", query},
		{"name LIKE ?", "%" + query + "%"},
	} {
		var p model.Player
		err := db.conn.QueryRowContext(ctx,
			"SELECT id, registry_id, name, gender FROM players WHERE "+q.where+" ORDER BY name, id LIMIT 1", q.arg).
			Scan(&p.ID, &p.RegistryID, &p.Name, &p.Gender)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &p, nil
	}
	return nil, nil
}

// PlayerInnings returns every stored innings of one player, newest first.
func (db *DB) PlayerInnings(ctx context.Context, playerID int64) ([]model.PlayerInningsLine, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.match_id, m.start_date, m.format, s.innings_number,
		       s.batted, s.not_out, s.runs, s.balls_faced, s.fours, s.sixes, s.dots, s.is_out,
		       s.bowled, s.legal_balls, s.runs_conceded, s.wickets, s.maidens, s.bowl_dots,
		       s.wides, s.noballs, s.fours_conceded, s.sixes_conceded,
		       s.catches, s.run_outs, s.stumpings
		FROM player_innings_stats s
		JOIN matches m ON m.id = s.match_id
		WHERE s.player_id = ?
		ORDER BY m.start_date DESC, s.match_id, s.innings_number DESC`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerInningsLine
	for rows.Next() {
		var (
			l                             model.PlayerInningsLine
			batted, notOut, isOut, bowled int
		)
		if err := rows.Scan(&l.MatchID, &l.StartDate, &l.Format, &l.InningsNumber,
			&batted, &notOut, &l.Batting.Runs, &l.BallsFaced, &l.Fours, &l.Sixes, &l.Batting.Dots, &isOut,
			&bowled, &l.LegalBalls, &l.RunsConceded, &l.Wickets, &l.Maidens, &l.Bowling.Dots,
			&l.Wides, &l.NoBalls, &l.FoursConceded, &l.SixesConceded,
			&l.Catches, &l.RunOuts, &l.Stumpings); err != nil {
			return nil, err
		}
		l.Batted, l.NotOut, l.Out, l.Bowled = batted != 0, notOut != 0, isOut != 0, bowled != 0
		out = append(out, l)
	}
	return out, rows.Err()
}

// Matchup sums the head-to-head rows of a batter against a bowler.
func (db *DB) Matchup(ctx context.Context, batterID, bowlerID int64) (model.Matchup, error) {
	var t model.Matchup
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(1),
		       COALESCE(SUM(is_out), 0),
		       COALESCE(SUM(runs), 0), COALESCE(SUM(balls_faced), 0),
		       COALESCE(SUM(fours), 0), COALESCE(SUM(sixes), 0), COALESCE(SUM(dots), 0),
		       COALESCE(SUM(legal_balls), 0), COALESCE(SUM(runs_conceded), 0),
		       COALESCE(SUM(wickets), 0), COALESCE(SUM(bowl_dots), 0),
		       COALESCE(SUM(wides), 0), COALESCE(SUM(noballs), 0)
		FROM player_vs_player_stats
		WHERE batter_id = ? AND bowler_id = ?`, batterID, bowlerID).
		Scan(&t.Innings, &t.Dismissals,
			&t.Batting.Runs, &t.BallsFaced, &t.Fours, &t.Sixes, &t.Batting.Dots,
			&t.LegalBalls, &t.RunsConceded, &t.Wickets, &t.Bowling.Dots, &t.Wides, &t.NoBalls)
	return t, err
}

// RawDocument returns the archived source document of a match, decompressed.
func (db *DB) RawDocument(ctx context.Context, matchID string) ([]byte, error) {
	var (
		size int
		body []byte
	)
	err := db.conn.QueryRowContext(ctx,
		"SELECT size, body FROM match_documents WHERE match_id = ?", matchID).Scan(&size, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, fmt.Errorf("decode document %s: %w", matchID, err)
	}
	if len(doc) != size {
		return nil, fmt.Errorf("document %s: stored %d bytes, decoded %d", matchID, size, len(doc))
	}
	return doc, nil
}

// ListRuns returns the most recent batch ingestions, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, started_at, finished_at, sources, documents, ingested, skipped, failed
		FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.IngestRun
	for rows.Next() {
		var (
			r                 model.IngestRun
			started, finished string
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Sources,
			&r.Documents, &r.Ingested, &r.Skipped, &r.Failed); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns every value as text.
func (db *DB) QueryRaw(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch v := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(v)
			default:
				row[i] = fmt.Sprint(v)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

// DeleteMatch removes a match and everything derived from it. Dimension rows
// are kept.
func (db *DB) DeleteMatch(ctx context.Context, matchID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM matches WHERE id = ?", matchID)
	if err != nil {
		return false, fmt.Errorf("delete match %s: %w", matchID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

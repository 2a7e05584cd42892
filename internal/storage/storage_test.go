package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pable/go-cricket-metrics/internal/dimension"
	"github.com/pable/go-cricket-metrics/internal/ingest"
	"github.com/pable/go-cricket-metrics/internal/model"
	"github.com/pable/go-cricket-metrics/internal/source"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func fixture(t *testing.T) source.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "ingest", "testdata", "t20.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return source.Document{Name: "t20.json", Data: data}
}

// ingestFixture stores the fixture match and returns its id.
func ingestFixture(t *testing.T, db *DB) string {
	t.Helper()
	res := ingest.New(db, ingest.Options{Validate: true}).IngestDocument(context.Background(), fixture(t))
	if res.Err != nil {
		t.Fatalf("ingest fixture: %v", res.Err)
	}
	if res.Status != ingest.StatusIngested {
		t.Fatalf("status = %s, want ingested", res.Status)
	}
	return res.MatchID
}

func count(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(1) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Resolve(context.Background(), dimension.Team, "Hosts", dimension.Attributes{}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	db.Close()

	// The schema is already current the second time.
	db, err = Open(path)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	defer db.Close()
	if n := count(t, db, "teams"); n != 1 {
		t.Errorf("teams = %d after reopen, want 1", n)
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	id1, err := db.Resolve(ctx, dimension.Player, "reg-1", dimension.Attributes{Name: "First", Gender: "male"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	id2, err := db.Resolve(ctx, dimension.Player, "reg-1", dimension.Attributes{Name: "Renamed"})
	if err != nil {
		t.Fatalf("Resolve again: %v", err)
	}
	if id1 != id2 {
		t.Errorf("same key resolved to %d and %d", id1, id2)
	}

	p, err := db.FindPlayer(ctx, "reg-1")
	if err != nil || p == nil {
		t.Fatalf("FindPlayer: %v, %v", p, err)
	}
	if p.Name != "First" {
		t.Errorf("name = %q, first writer should win", p.Name)
	}

	other, err := db.Resolve(ctx, dimension.Player, "reg-2", dimension.Attributes{Name: "Second"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if other == id1 {
		t.Error("distinct keys share an id")
	}

	for _, kind := range []dimension.Kind{dimension.Team, dimension.Stadium, dimension.Tournament} {
		if _, err := db.Resolve(ctx, kind, "Oval", dimension.Attributes{City: "London"}); err != nil {
			t.Errorf("Resolve %s: %v", kind, err)
		}
	}

	if _, err := db.Resolve(ctx, dimension.Team, "", dimension.Attributes{}); !errors.Is(err, dimension.ErrEmptyKey) {
		t.Errorf("empty key err = %v, want ErrEmptyKey", err)
	}
}

func TestSaveMatch_ReadBack(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	id := ingestFixture(t, db)

	exists, err := db.MatchExists(ctx, id)
	if err != nil || !exists {
		t.Fatalf("MatchExists = %v, %v", exists, err)
	}
	ids, err := db.MatchIDs(ctx)
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("MatchIDs = %v, %v", ids, err)
	}

	matches, err := db.ListMatches(ctx)
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	m := matches[0]
	if m.Team1 != "Hosts" || m.Team2 != "Visitors" || m.Venue != "Oval" || m.Tournament != "Test Cup 2024" {
		t.Errorf("summary = %+v", m)
	}
	if m.Result != "Visitors won by 10 wickets" {
		t.Errorf("result = %q", m.Result)
	}

	got, err := db.GetMatchByPrefix(ctx, id[:8])
	if err != nil || got == nil || got.MatchID != id {
		t.Fatalf("GetMatchByPrefix = %+v, %v", got, err)
	}
	missing, err := db.GetMatchByPrefix(ctx, "zzzz")
	if err != nil || missing != nil {
		t.Errorf("GetMatchByPrefix(zzzz) = %+v, %v; want nil, nil", missing, err)
	}

	if n := count(t, db, "deliveries"); n != 14 {
		t.Errorf("deliveries = %d, want 14", n)
	}
	if n := count(t, db, "fielding_events"); n != 2 {
		t.Errorf("fielding_events = %d, want 2", n)
	}
}

func TestInningsCards(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	id := ingestFixture(t, db)

	cards, err := db.InningsCards(ctx, id)
	if err != nil {
		t.Fatalf("InningsCards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("got %d innings, want 2", len(cards))
	}

	first := cards[0]
	if first.BattingTeam != "Hosts" || first.BowlingTeam != "Visitors" {
		t.Errorf("teams = %s v %s", first.BattingTeam, first.BowlingTeam)
	}
	inn := first.Innings
	if inn.Runs != 16 || inn.Wickets != 2 || inn.Overs.String() != "1.3" {
		t.Errorf("innings 1 = %d/%d in %s, want 16/2 in 1.3", inn.Runs, inn.Wickets, inn.Overs)
	}
	if inn.Extras.Wides != 1 || inn.Extras.LegByes != 1 {
		t.Errorf("extras = %+v", inn.Extras)
	}
	if len(inn.FallOfWickets) != 2 {
		t.Fatalf("fall of wickets = %+v", inn.FallOfWickets)
	}
	if f := inn.FallOfWickets[0]; f.Wickets != 1 || f.Runs != 6 || f.At.String() != "0.3" {
		t.Errorf("first wicket = %+v, want 1-6 at 0.3", f)
	}
	if f := inn.FallOfWickets[1]; f.Wickets != 2 || f.Runs != 16 || f.At.String() != "1.3" {
		t.Errorf("second wicket = %+v, want 2-16 at 1.3", f)
	}

	byName := make(map[string]model.ScorecardRow)
	for _, r := range first.Rows {
		byName[r.Name] = r
	}
	if r := byName["H1"]; !r.Batted || r.BattingPos != 1 || !r.NotOut || r.Batting.Runs != 3 || r.BallsFaced != 3 {
		t.Errorf("H1 = %+v", r)
	}
	if r := byName["H2"]; r.DismissalKind != "caught" || r.Batting.Runs != 4 || r.BallsFaced != 2 {
		t.Errorf("H2 = %+v", r)
	}
	if r := byName["H3"]; r.DismissalKind != "run out" || r.Batting.Runs != 7 || r.BallsFaced != 4 {
		t.Errorf("H3 = %+v", r)
	}
	if r := byName["V3"]; !r.Bowled || r.LegalBalls != 6 || r.RunsConceded != 14 || r.Wickets != 1 || r.Wides != 1 {
		t.Errorf("V3 = %+v", r)
	}
	if r := byName["V4"]; r.LegalBalls != 3 || r.RunsConceded != 1 || r.Wickets != 0 {
		t.Errorf("V4 = %+v", r)
	}
	if byName["V1"].Catches != 1 || byName["V2"].RunOuts != 1 {
		t.Errorf("fielding: V1 %+v, V2 %+v", byName["V1"].Fielding, byName["V2"].Fielding)
	}

	if len(first.Partnerships) != 2 {
		t.Fatalf("partnerships = %+v", first.Partnerships)
	}
	p := first.Partnerships[0]
	if p.Player1 != "H1" || p.Player2 != "H2" || p.Runs() != 6 || p.Balls != 3 || !p.Dismissal {
		t.Errorf("first partnership = %+v", p)
	}
	p = first.Partnerships[1]
	if p.Player1 != "H1" || p.Player2 != "H3" || p.Runs() != 10 || p.Balls != 6 || p.StartWickets != 1 {
		t.Errorf("second partnership = %+v", p)
	}

	second := cards[1].Innings
	if second.Target == nil || second.Target.Runs != 17 {
		t.Errorf("target = %+v", second.Target)
	}
	if second.Runs != 17 || second.Wickets != 0 || len(second.FallOfWickets) != 0 {
		t.Errorf("innings 2 = %d/%d fow %v", second.Runs, second.Wickets, second.FallOfWickets)
	}
}

func TestSaveMatch_Duplicate(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	g, err := ingest.New(db, ingest.Options{}).Build(ctx, fixture(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := db.SaveMatch(ctx, g); err != nil {
		t.Fatalf("SaveMatch: %v", err)
	}
	before := count(t, db, "deliveries")

	if err := db.SaveMatch(ctx, g); !errors.Is(err, ErrMatchExists) {
		t.Fatalf("second SaveMatch err = %v, want ErrMatchExists", err)
	}
	if after := count(t, db, "deliveries"); after != before {
		t.Errorf("deliveries changed from %d to %d", before, after)
	}
}

func TestSaveMatch_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	g, err := ingest.New(db, ingest.Options{}).Build(ctx, fixture(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// A delivery naming a player that was never resolved violates a foreign key.
	last := &g.Innings[1]
	last.Deliveries[len(last.Deliveries)-1].BowlerID = 9999

	if err := db.SaveMatch(ctx, g); err == nil {
		t.Fatal("expected SaveMatch to fail")
	}
	for _, table := range []string{"matches", "match_documents", "innings", "deliveries", "player_innings_stats", "partnerships"} {
		if n := count(t, db, table); n != 0 {
			t.Errorf("%s has %d rows after a failed save", table, n)
		}
	}
	// Dimensions resolved while building are kept.
	if n := count(t, db, "players"); n != 9 {
		t.Errorf("players = %d, want 9", n)
	}
}

func TestRawDocument(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	id := ingestFixture(t, db)

	doc, err := db.RawDocument(ctx, id)
	if err != nil {
		t.Fatalf("RawDocument: %v", err)
	}
	if string(doc) != string(fixture(t).Data) {
		t.Error("archived document differs from the source bytes")
	}
	none, err := db.RawDocument(ctx, "nope")
	if err != nil || none != nil {
		t.Errorf("RawDocument(nope) = %q, %v", none, err)
	}
}

func TestPlayerQueries(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	ingestFixture(t, db)

	v1, err := db.FindPlayer(ctx, "v1")
	if err != nil || v1 == nil {
		t.Fatalf("FindPlayer(v1) = %v, %v", v1, err)
	}
	if v1.RegistryID != "reg-v1" {
		t.Errorf("registry id = %q", v1.RegistryID)
	}
	if p, _ := db.FindPlayer(ctx, "nobody"); p != nil {
		t.Errorf("FindPlayer(nobody) = %+v", p)
	}

	lines, err := db.PlayerInnings(ctx, v1.ID)
	if err != nil {
		t.Fatalf("PlayerInnings: %v", err)
	}
	var runs, catches int
	for _, l := range lines {
		runs += l.Batting.Runs
		catches += l.Catches
	}
	if runs != 17 || catches != 1 {
		t.Errorf("V1 runs %d catches %d, want 17 and 1", runs, catches)
	}

	h2, _ := db.FindPlayer(ctx, "H2")
	v3, _ := db.FindPlayer(ctx, "V3")
	if h2 == nil || v3 == nil {
		t.Fatal("fixture players missing")
	}
	mu, err := db.Matchup(ctx, h2.ID, v3.ID)
	if err != nil {
		t.Fatalf("Matchup: %v", err)
	}
	if mu.Innings != 1 || mu.Batting.Runs != 4 || mu.BallsFaced != 2 || mu.Dismissals != 1 || mu.Wickets != 1 {
		t.Errorf("H2 v V3 = %+v", mu)
	}
	none, err := db.Matchup(ctx, v3.ID, h2.ID)
	if err != nil || none.Innings != 0 {
		t.Errorf("reverse matchup = %+v, %v", none, err)
	}
}

func TestTeamExportQueries(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	id := ingestFixture(t, db)

	team, err := db.FindTeam(ctx, "visitors")
	if err != nil || team == nil {
		t.Fatalf("FindTeam = %v, %v", team, err)
	}
	ms, err := db.TeamMatches(ctx, team.ID, "2024-01-01", []string{"T20", "ODI"})
	if err != nil {
		t.Fatalf("TeamMatches: %v", err)
	}
	if len(ms) != 1 || ms[0].MatchID != id || !ms[0].Won || !ms[0].Decided || ms[0].Opponent != "Hosts" {
		t.Fatalf("TeamMatches = %+v", ms)
	}
	if ms, _ := db.TeamMatches(ctx, team.ID, "2025-01-01", nil); len(ms) != 0 {
		t.Errorf("matches after 2025 = %+v", ms)
	}
	if ms, _ := db.TeamMatches(ctx, team.ID, "", []string{"Test"}); len(ms) != 0 {
		t.Errorf("Test matches = %+v", ms)
	}

	totals, err := db.TeamPlayerTotals(ctx, team.ID, []string{id})
	if err != nil {
		t.Fatalf("TeamPlayerTotals: %v", err)
	}
	if len(totals) == 0 || totals[0].Name != "V1" || totals[0].Batting.Runs != 17 {
		t.Fatalf("totals = %+v", totals)
	}

	overs, err := db.TeamOverTotals(ctx, team.ID, []string{id})
	if err != nil {
		t.Fatalf("TeamOverTotals: %v", err)
	}
	if len(overs) != 1 || overs[0].Over != 0 || overs[0].Runs != 17 || overs[0].BallsFaced != 4 {
		t.Errorf("overs = %+v", overs)
	}
	if none, err := db.TeamPlayerTotals(ctx, team.ID, nil); err != nil || none != nil {
		t.Errorf("empty match list = %+v, %v", none, err)
	}
}

func TestDeleteMatch(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	id := ingestFixture(t, db)

	ok, err := db.DeleteMatch(ctx, id)
	if err != nil || !ok {
		t.Fatalf("DeleteMatch = %v, %v", ok, err)
	}
	for _, table := range []string{"matches", "match_documents", "innings", "deliveries", "player_over_stats", "fielding_events"} {
		if n := count(t, db, table); n != 0 {
			t.Errorf("%s has %d rows after delete", table, n)
		}
	}
	if n := count(t, db, "teams"); n != 2 {
		t.Errorf("teams = %d, dimensions should survive", n)
	}
	ok, _ = db.DeleteMatch(ctx, id)
	if ok {
		t.Error("second delete reported a row")
	}
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	dir := t.TempDir()
	data := fixture(t).Data
	for _, name := range []string{"a.json", "b.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := ingest.New(db, ingest.Options{Workers: 4}).Run(ctx, source.Dir(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Run.Ingested != 1 || sum.Run.Skipped != 1 || sum.Run.Failed != 0 {
		t.Errorf("run = %+v", sum.Run)
	}

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != sum.Run.ID || runs[0].Documents != 2 {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].StartedAt.IsZero() || runs[0].FinishedAt.Before(runs[0].StartedAt) {
		t.Errorf("run times = %v .. %v", runs[0].StartedAt, runs[0].FinishedAt)
	}
}

func TestRunBatch_SharedTeamResolvedOnce(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	dir := t.TempDir()
	hosts := fixture(t).Data
	guests := bytes.ReplaceAll(hosts, []byte("Visitors"), []byte("Guests"))
	for name, data := range map[string][]byte{"hosts.json": hosts, "guests.json": guests} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := ingest.New(db, ingest.Options{Workers: 2}).Run(ctx, source.Dir(dir))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Run.Ingested != 2 || sum.Run.Failed != 0 {
		t.Fatalf("run = %+v, failures = %+v", sum.Run, sum.Failures)
	}

	if n := count(t, db, "teams"); n != 3 {
		t.Errorf("teams = %d, want 3", n)
	}
	var hostIDs, h1IDs int
	if err := db.conn.QueryRow("SELECT COUNT(DISTINCT team1_id) FROM matches").Scan(&hostIDs); err != nil {
		t.Fatal(err)
	}
	if hostIDs != 1 {
		t.Errorf("Hosts resolved to %d ids across matches, want 1", hostIDs)
	}
	if err := db.conn.QueryRow("SELECT COUNT(1) FROM players WHERE registry_id = 'reg-h1'").Scan(&h1IDs); err != nil {
		t.Fatal(err)
	}
	if h1IDs != 1 {
		t.Errorf("H1 stored %d times, want 1", h1IDs)
	}
}

func TestInningsCards_MiscountedOvers(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)

	var doc map[string]any
	if err := json.Unmarshal(fixture(t).Data, &doc); err != nil {
		t.Fatal(err)
	}
	first := doc["innings"].([]any)[0].(map[string]any)
	first["miscounted_overs"] = map[string]any{"1": map[string]any{"balls": 7, "umpires": []string{"U1"}}}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}

	res := ingest.New(db, ingest.Options{}).IngestDocument(ctx, source.Document{Name: "miscounted.json", Data: data})
	if res.Status != ingest.StatusIngested {
		t.Fatalf("status = %s, err = %v", res.Status, res.Err)
	}
	cards, err := db.InningsCards(ctx, res.MatchID)
	if err != nil {
		t.Fatalf("InningsCards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("got %d innings, want 2", len(cards))
	}
	if got, want := string(cards[0].Innings.MiscountedOvers), `{"1":{"balls":7,"umpires":["U1"]}}`; got != want {
		t.Errorf("miscounted overs = %s, want %s", got, want)
	}
	if cards[1].Innings.MiscountedOvers != nil {
		t.Errorf("second innings miscounted overs = %s, want none", cards[1].Innings.MiscountedOvers)
	}
}

func TestSaveRun(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"older", "newer"} {
		run := &model.IngestRun{
			ID:         id,
			StartedAt:  start.Add(time.Duration(i) * time.Hour),
			FinishedAt: start.Add(time.Duration(i)*time.Hour + time.Minute),
			Sources:    "dir",
			Documents:  i + 1,
		}
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}
	runs, err := db.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "newer" || !runs[0].StartedAt.Equal(start.Add(time.Hour)) {
		t.Errorf("runs = %+v", runs)
	}
}

func TestQueryRaw(t *testing.T) {
	ctx := context.Background()
	db := openMemDB(t)
	ingestFixture(t, db)

	cols, rows, err := db.QueryRaw(ctx, "SELECT name, city FROM stadiums")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(cols) != 2 || cols[0] != "name" {
		t.Errorf("cols = %v", cols)
	}
	if len(rows) != 1 || rows[0][0] != "Oval" || rows[0][1] != "London" {
		t.Errorf("rows = %v", rows)
	}

	_, rows, err = db.QueryRaw(ctx, "SELECT target_runs FROM innings ORDER BY number")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "NULL" || rows[1][0] != "17" {
		t.Errorf("target rows = %v", rows)
	}

	if _, _, err := db.QueryRaw(ctx, "SELECT * FROM no_such_table"); err == nil {
		t.Error("expected an error for a missing table")
	}
}

func TestResultText(t *testing.T) {
	cases := []struct {
		winner, result, method        string
		runs, wickets, innings        int
		want                          string
	}{
		{"India", "", "", 0, 7, 0, "India won by 7 wickets"},
		{"India", "", "", 1, 0, 0, "India won by 1 run"},
		{"India", "", "D/L", 23, 0, 0, "India won by 23 runs (D/L)"},
		{"England", "", "", 12, 0, 1, "England won by an innings and 12 runs"},
		{"", "tie", "", 0, 0, 0, "tie"},
		{"", "no result", "", 0, 0, 0, "no result"},
		{"", "", "", 0, 0, 0, ""},
	}
	for _, c := range cases {
		if got := ResultText(c.winner, c.result, c.method, c.runs, c.wickets, c.innings); got != c.want {
			t.Errorf("ResultText(%q, %q, %q, %d, %d, %d) = %q, want %q",
				c.winner, c.result, c.method, c.runs, c.wickets, c.innings, got, c.want)
		}
	}
}

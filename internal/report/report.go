package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gonum.org/v1/gonum/stat"

	"github.com/pable/go-cricket-metrics/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintMatchSummary prints a one-line summary header for the match.
func PrintMatchSummary(w io.Writer, s model.MatchSummary) {
	id := s.MatchID
	if len(id) > 12 {
		id = id[:12]
	}
	fmt.Fprintf(w, "\n%s v %s  |  %s  |  %s", s.Team1, s.Team2, orDash(s.StartDate), orDash(s.Format))
	if s.Venue != "" {
		fmt.Fprintf(w, "  |  %s", s.Venue)
	}
	if s.Tournament != "" {
		fmt.Fprintf(w, "  |  %s", s.Tournament)
	}
	fmt.Fprintf(w, "  |  ID: %s\n", id)
	if s.Result != "" {
		fmt.Fprintf(w, "%s\n", s.Result)
	}
	fmt.Fprintln(w)
}

// PrintMatchList prints one row per stored match.
func PrintMatchList(w io.Writer, matches []model.MatchSummary) {
	table := newTable(w)
	table.Header("ID", "DATE", "FORMAT", "MATCH", "VENUE", "RESULT")
	for _, s := range matches {
		table.Append(
			s.MatchID[:min(12, len(s.MatchID))],
			orDash(s.StartDate),
			orDash(s.Format),
			s.Team1+" v "+s.Team2,
			orDash(s.Venue),
			orDash(s.Result),
		)
	}
	table.Render()
}

// InningsHeadline renders "Hosts 1st innings  16/2 (1.3 ov, RR 10.67)".
func InningsHeadline(c model.InningsCard) string {
	inn := c.Innings
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s innings", c.BattingTeam, humanize.Ordinal(inn.Number))
	if inn.SuperOver {
		b.WriteString(" (super over)")
	}
	fmt.Fprintf(&b, "  %d/%d (%s ov, RR %s)", inn.Runs, inn.Wickets, inn.Overs, inn.RunRate().Format(2))
	switch {
	case inn.Forfeited:
		b.WriteString(" forfeited")
	case inn.Declared:
		b.WriteString(" dec")
	}
	if inn.Target != nil {
		fmt.Fprintf(&b, "  target %d", inn.Target.Runs)
		if inn.Target.Overs > 0 {
			fmt.Fprintf(&b, " in %s ov", strconv.FormatFloat(inn.Target.Overs, 'f', -1, 64))
		}
	}
	return b.String()
}

// PrintInningsCard prints the full card for one innings: batting, extras,
// fall of wickets, bowling and partnerships. Rows for focusPlayerID, when
// non-zero, are marked with ">".
func PrintInningsCard(w io.Writer, c model.InningsCard, focusPlayerID int64) {
	fmt.Fprintf(w, "%s\n\n", InningsHeadline(c))
	PrintBattingCard(w, c, focusPlayerID)

	e := c.Innings.Extras
	fmt.Fprintf(w, "Extras: %d (b %d, lb %d, w %d, nb %d, p %d)\n",
		e.Sum(), e.Byes, e.LegByes, e.Wides, e.NoBalls, e.Penalty)
	if fow := FallOfWickets(c); fow != "" {
		fmt.Fprintf(w, "Fall of wickets: %s\n", fow)
	}
	fmt.Fprintln(w)

	PrintBowlingCard(w, c, focusPlayerID)
	if len(c.Partnerships) > 0 {
		fmt.Fprintln(w)
		PrintPartnerships(w, c.Partnerships)
	}
	fmt.Fprintln(w)
}

// PrintBattingCard prints the batters of an innings in batting order.
func PrintBattingCard(w io.Writer, c model.InningsCard, focusPlayerID int64) {
	table := newTable(w)
	table.Header(" ", "BATTER", "HOW OUT", "R", "B", "4s", "6s", "SR")
	for _, r := range c.Rows {
		if !r.Batted {
			continue
		}
		table.Append(
			marker(r.PlayerID, focusPlayerID),
			r.Name,
			howOut(r),
			strconv.Itoa(r.Batting.Runs),
			strconv.Itoa(r.BallsFaced),
			strconv.Itoa(r.Fours),
			strconv.Itoa(r.Sixes),
			r.Batting.StrikeRate().Format(2),
		)
	}
	table.Render()
}

// PrintBowlingCard prints everyone who bowled in the innings.
func PrintBowlingCard(w io.Writer, c model.InningsCard, focusPlayerID int64) {
	bpo := ballsPerOver(c)
	table := newTable(w)
	table.Header(" ", "BOWLER", "O", "M", "R", "W", "ECON", "DOTS", "WD", "NB")
	for _, r := range c.Rows {
		if !r.Bowled {
			continue
		}
		table.Append(
			marker(r.PlayerID, focusPlayerID),
			r.Name,
			r.Bowling.Overs(bpo).String(),
			strconv.Itoa(r.Maidens),
			strconv.Itoa(r.RunsConceded),
			strconv.Itoa(r.Wickets),
			r.Economy().Format(2),
			strconv.Itoa(r.Bowling.Dots),
			strconv.Itoa(r.Wides),
			strconv.Itoa(r.NoBalls),
		)
	}
	table.Render()
}

// PrintPartnerships prints partnerships in the order they were formed.
func PrintPartnerships(w io.Writer, ps []model.PartnershipLine) {
	table := newTable(w)
	table.Header("WKT", "PARTNERS", "RUNS", "BALLS", "SR", "ENDED")
	for _, p := range ps {
		ended := "unbroken"
		if p.Dismissal {
			ended = "wicket"
		}
		table.Append(
			humanize.Ordinal(p.StartWickets+1),
			fmt.Sprintf("%s %d, %s %d", p.Player1, p.Player1Runs, p.Player2, p.Player2Runs),
			strconv.Itoa(p.Runs()),
			strconv.Itoa(p.Balls),
			p.StrikeRate().Format(2),
			ended,
		)
	}
	table.Render()
}

// FallOfWickets renders "1-6 (H2, 0.3), 2-16 (H3, 1.3)".
func FallOfWickets(c model.InningsCard) string {
	names := make(map[int64]string, len(c.Rows))
	for _, r := range c.Rows {
		names[r.PlayerID] = r.Name
	}
	parts := make([]string, 0, len(c.Innings.FallOfWickets))
	for _, f := range c.Innings.FallOfWickets {
		name := names[f.PlayerID]
		if name == "" {
			name = "?"
		}
		parts = append(parts, fmt.Sprintf("%d-%d (%s, %s)", f.Wickets, f.Runs, name, f.At))
	}
	return strings.Join(parts, ", ")
}

// ScoreStats summarises the spread of a player's innings scores.
type ScoreStats struct {
	Innings int
	Mean    float64
	StdDev  float64 // NaN with fewer than two innings
}

// InningsScores returns the mean and sample standard deviation of the runs
// scored in every innings the player batted.
func InningsScores(lines []model.PlayerInningsLine) ScoreStats {
	var xs []float64
	for _, l := range lines {
		if l.Batted {
			xs = append(xs, float64(l.Batting.Runs))
		}
	}
	s := ScoreStats{Innings: len(xs), Mean: math.NaN(), StdDev: math.NaN()}
	switch len(xs) {
	case 0:
	case 1:
		s.Mean = xs[0]
	default:
		s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	}
	return s
}

// Career folds a player's innings lines into career totals.
func Career(p model.Player, lines []model.PlayerInningsLine) model.PlayerCareer {
	c := model.PlayerCareer{Player: p}
	matches := make(map[string]struct{})
	bestSet := false
	for _, l := range lines {
		matches[l.MatchID] = struct{}{}
		if l.Batted {
			c.Innings++
			if l.NotOut {
				c.NotOuts++
			}
			c.Batting.Runs += l.Batting.Runs
			c.BallsFaced += l.BallsFaced
			c.Fours += l.Fours
			c.Sixes += l.Sixes
			c.Batting.Dots += l.Batting.Dots
			switch {
			case l.Batting.Runs >= 100:
				c.Hundreds++
			case l.Batting.Runs >= 50:
				c.Fifties++
			}
			if l.Batting.Runs > c.HighScore || (l.Batting.Runs == c.HighScore && l.NotOut) {
				c.HighScore, c.HighNotOut = l.Batting.Runs, l.NotOut
			}
		}
		if l.Bowled {
			c.LegalBalls += l.LegalBalls
			c.RunsConceded += l.RunsConceded
			c.Wickets += l.Wickets
			c.Maidens += l.Maidens
			c.Bowling.Dots += l.Bowling.Dots
			c.Wides += l.Wides
			c.NoBalls += l.NoBalls
			c.FoursConceded += l.FoursConceded
			c.SixesConceded += l.SixesConceded
			if !bestSet || l.Wickets > c.BestWkts || (l.Wickets == c.BestWkts && l.RunsConceded < c.BestRuns) {
				c.BestWkts, c.BestRuns, bestSet = l.Wickets, l.RunsConceded, true
			}
		}
		c.Catches += l.Catches
		c.RunOuts += l.RunOuts
		c.Stumpings += l.Stumpings
	}
	c.Matches = len(matches)
	return c
}

// PrintPlayerCareer prints batting, bowling and fielding summaries for one player.
func PrintPlayerCareer(w io.Writer, c model.PlayerCareer, scores ScoreStats) {
	fmt.Fprintf(w, "\n%s", c.Player.Name)
	if c.Player.RegistryID != "" {
		fmt.Fprintf(w, "  (%s)", c.Player.RegistryID)
	}
	fmt.Fprintf(w, "  |  %s %s\n\n", humanize.Comma(int64(c.Matches)), pluralWord(c.Matches, "match", "matches"))

	hs := "-"
	if c.Innings > 0 {
		hs = strconv.Itoa(c.HighScore)
		if c.HighNotOut {
			hs += "*"
		}
	}
	bat := newTable(w)
	bat.Header("BATTING", "INN", "NO", "RUNS", "HS", "AVG", "SR", "100s", "50s", "4s", "6s", "MEAN", "STDDEV")
	bat.Append(
		" ",
		strconv.Itoa(c.Innings),
		strconv.Itoa(c.NotOuts),
		humanize.Comma(int64(c.Batting.Runs)),
		hs,
		c.BattingAverage().Format(2),
		c.Batting.StrikeRate().Format(2),
		strconv.Itoa(c.Hundreds),
		strconv.Itoa(c.Fifties),
		strconv.Itoa(c.Fours),
		strconv.Itoa(c.Sixes),
		floatOrDash(scores.Mean),
		floatOrDash(scores.StdDev),
	)
	bat.Render()
	fmt.Fprintln(w)

	best := "-"
	if c.LegalBalls > 0 {
		best = fmt.Sprintf("%d/%d", c.BestWkts, c.BestRuns)
	}
	bowl := newTable(w)
	bowl.Header("BOWLING", "BALLS", "RUNS", "WKTS", "BEST", "AVG", "ECON", "MDNS", "DOTS")
	bowl.Append(
		" ",
		humanize.Comma(int64(c.LegalBalls)),
		humanize.Comma(int64(c.RunsConceded)),
		strconv.Itoa(c.Wickets),
		best,
		c.BowlingAverage().Format(2),
		c.Economy().Format(2),
		strconv.Itoa(c.Maidens),
		strconv.Itoa(c.Bowling.Dots),
	)
	bowl.Render()

	fmt.Fprintf(w, "\nFielding: %d ct, %d run out, %d st\n", c.Catches, c.RunOuts, c.Stumpings)
}

// PrintPlayerInnings prints the most recent innings of a player, newest first.
// limit <= 0 prints all of them.
func PrintPlayerInnings(w io.Writer, lines []model.PlayerInningsLine, limit int) {
	if limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	table := newTable(w)
	table.Header("DATE", "FORMAT", "MATCH", "INN", "BAT", "SR", "BOWL", "ECON", "CT")
	for _, l := range lines {
		batting := "-"
		sr := "-"
		if l.Batted {
			batting = fmt.Sprintf("%d (%d)", l.Batting.Runs, l.BallsFaced)
			if l.NotOut {
				batting = fmt.Sprintf("%d* (%d)", l.Batting.Runs, l.BallsFaced)
			}
			sr = l.Batting.StrikeRate().Format(1)
		}
		bowling := "-"
		econ := "-"
		if l.Bowled {
			bowling = fmt.Sprintf("%d/%d (%d b)", l.Wickets, l.RunsConceded, l.LegalBalls)
			econ = l.Economy().Format(2)
		}
		table.Append(
			orDash(l.StartDate),
			orDash(l.Format),
			l.MatchID[:min(12, len(l.MatchID))],
			humanize.Ordinal(l.InningsNumber),
			batting,
			sr,
			bowling,
			econ,
			strconv.Itoa(l.Catches),
		)
	}
	table.Render()
}

// PrintMatchup prints a batter's record against one bowler.
func PrintMatchup(w io.Writer, batter, bowler string, m model.Matchup) {
	fmt.Fprintf(w, "\n%s v %s  |  %d %s\n\n", batter, bowler, m.Innings, pluralWord(m.Innings, "innings", "innings"))
	table := newTable(w)
	table.Header("RUNS", "BALLS", "OUTS", "AVG", "SR", "DOTS", "4s", "6s", "WD", "NB")
	table.Append(
		strconv.Itoa(m.Batting.Runs),
		strconv.Itoa(m.BallsFaced),
		strconv.Itoa(m.Dismissals),
		model.Rate{Num: m.Batting.Runs, Den: m.Dismissals}.Format(2),
		m.Batting.StrikeRate().Format(2),
		strconv.Itoa(m.Batting.Dots),
		strconv.Itoa(m.Fours),
		strconv.Itoa(m.Sixes),
		strconv.Itoa(m.Wides),
		strconv.Itoa(m.NoBalls),
	)
	table.Render()
}

// PrintRuns prints recent ingest runs.
func PrintRuns(w io.Writer, runs []model.IngestRun) {
	table := newTable(w)
	table.Header("RUN", "STARTED", "TOOK", "DOCS", "INGESTED", "SKIPPED", "FAILED", "SOURCES")
	for _, r := range runs {
		table.Append(
			r.ID[:min(8, len(r.ID))],
			humanize.Time(r.StartedAt),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			humanize.Comma(int64(r.Documents)),
			humanize.Comma(int64(r.Ingested)),
			humanize.Comma(int64(r.Skipped)),
			humanize.Comma(int64(r.Failed)),
			r.Sources,
		)
	}
	table.Render()
}

func howOut(r model.ScorecardRow) string {
	switch {
	case r.NotOut:
		return "not out"
	case r.DismissalKind != "":
		return r.DismissalKind
	}
	return "-"
}

// ballsPerOver infers the over length from the innings totals; overs are
// stored pre-split so whole*bpo+balls == legal deliveries.
func ballsPerOver(c model.InningsCard) int {
	o := c.Innings.Overs
	if o.Whole > 0 {
		return (c.Innings.LegalDeliveries - o.Balls) / o.Whole
	}
	return model.DefaultBallsPerOver
}

func marker(id, focus int64) string {
	if focus != 0 && id == focus {
		return ">"
	}
	return " "
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func floatOrDash(f float64) string {
	if math.IsNaN(f) {
		return "-"
	}
	return fmt.Sprintf("%.1f", f)
}

func pluralWord(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

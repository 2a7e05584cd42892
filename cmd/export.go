package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/model"
	"github.com/pable/go-cricket-metrics/internal/storage"
)

var (
	exportTeam     string
	exportFormats  string
	exportSince    int
	exportTop      int
	exportOut      string
	exportHalfLife float64
)

// teamExport is the JSON document written by the export command.
type teamExport struct {
	Team            string         `json:"team"`
	GeneratedAt     string         `json:"generated_at"`
	WindowDays      int            `json:"window_days"`
	Formats         []string       `json:"formats,omitempty"`
	LatestMatchDate string         `json:"latest_match_date"`
	MatchCount      int            `json:"match_count"`
	Decided         int            `json:"decided"`
	Won             int            `json:"won"`
	WinPct          *float64       `json:"win_pct"`
	Players         []exportPlayer `json:"players"`
	Overs           []exportOver   `json:"overs"`
}

// exportPlayer is one player's totals for the team. Undefined rates are null.
type exportPlayer struct {
	Name         string   `json:"name"`
	RegistryID   string   `json:"registry_id,omitempty"`
	Matches      int      `json:"matches"`
	Innings      int      `json:"innings"`
	Runs         int      `json:"runs"`
	BallsFaced   int      `json:"balls_faced"`
	BattingAvg   *float64 `json:"batting_avg"`
	StrikeRate   *float64 `json:"strike_rate"`
	LegalBalls   int      `json:"legal_balls"`
	RunsConceded int      `json:"runs_conceded"`
	Wickets      int      `json:"wickets"`
	BowlingAvg   *float64 `json:"bowling_avg"`
	Economy      *float64 `json:"economy"`
	Catches      int      `json:"catches"`
	RunOuts      int      `json:"run_outs"`
	Stumpings    int      `json:"stumpings"`
}

// exportOver is the team's batting output in one over, averaged over innings.
type exportOver struct {
	Over              int      `json:"over"` // 1-based
	Innings           int      `json:"innings"`
	RunsPerInnings    float64  `json:"runs_per_innings"`
	WicketsPerInnings float64  `json:"wickets_per_innings"`
	StrikeRate        *float64 `json:"strike_rate"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a team's recent form as JSON",
	Long: `Query the metrics database for a team's matches in a look-back window and
write a JSON summary: a recency-weighted win percentage, per-player batting,
bowling and fielding totals, and a per-over batting profile.

Win percentage counts decided matches only. Each match is weighted by
0.5^(age_days / half-life), so recent results count more.

Example:
  cricmetrics export --team India --format T20 --since 365 --out india.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTeam, "team", "", "team name (required)")
	exportCmd.Flags().StringVar(&exportFormats, "format", "", "comma-separated match formats, e.g. T20,IT20 (default: all)")
	exportCmd.Flags().IntVar(&exportSince, "since", 365, "look-back window in days")
	exportCmd.Flags().IntVar(&exportTop, "top", 15, "players to include, by runs then wickets (0 = all)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file path (default: stdout)")
	exportCmd.Flags().Float64Var(&exportHalfLife, "half-life", 180,
		"temporal decay half-life in days (0 = uniform weights)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	if exportTeam == "" {
		return fmt.Errorf("no team specified: use --team")
	}
	db, err := openSQLite()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	team, err := db.FindTeam(ctx, exportTeam)
	if err != nil {
		return fmt.Errorf("find team: %w", err)
	}
	if team == nil {
		return fmt.Errorf("no team named %q is stored", exportTeam)
	}

	now := time.Now()
	since := now.AddDate(0, 0, -exportSince).Format("2006-01-02")
	formats := splitList(exportFormats)
	fmt.Fprintf(os.Stderr, "Querying %s matches since %s...\n", team.Name, since)

	matches, err := db.TeamMatches(ctx, team.ID, since, formats)
	if err != nil {
		return fmt.Errorf("team matches: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no %s matches stored in the last %d days", team.Name, exportSince)
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.MatchID
	}
	fmt.Fprintf(os.Stderr, "Found %d matches\n", len(matches))

	players, err := db.TeamPlayerTotals(ctx, team.ID, ids)
	if err != nil {
		return fmt.Errorf("player totals: %w", err)
	}
	overs, err := db.TeamOverTotals(ctx, team.ID, ids)
	if err != nil {
		return fmt.Errorf("over totals: %w", err)
	}

	out := buildTeamExport(team.Name, matches, players, overs, now, exportHalfLife, exportTop)
	out.WindowDays = exportSince
	out.Formats = formats

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	if exportOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(exportOut, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote %s\n", exportOut)
	return nil
}

// buildTeamExport assembles the export from query results. matches must be
// newest first.
func buildTeamExport(team string, matches []storage.TeamMatch, players []storage.PlayerTotals,
	overs []storage.OverTotals, now time.Time, halfLife float64, top int) teamExport {
	out := teamExport{
		Team:        team,
		GeneratedAt: now.UTC().Format(time.RFC3339),
		MatchCount:  len(matches),
		Players:     []exportPlayer{},
		Overs:       []exportOver{},
	}
	if len(matches) > 0 {
		out.LatestMatchDate = matches[0].StartDate
	}
	for _, m := range matches {
		if m.Decided {
			out.Decided++
			if m.Won {
				out.Won++
			}
		}
	}
	if pct, ok := weightedWinPct(matches, matchWeights(matches, now, halfLife)); ok {
		out.WinPct = &pct
	}

	if top > 0 && len(players) > top {
		players = players[:top]
	}
	for _, p := range players {
		out.Players = append(out.Players, exportPlayer{
			Name:         p.Name,
			RegistryID:   p.RegistryID,
			Matches:      p.Matches,
			Innings:      p.Innings,
			Runs:         p.Batting.Runs,
			BallsFaced:   p.BallsFaced,
			BattingAvg:   rateValue(model.Rate{Num: p.Batting.Runs, Den: p.Dismissals}),
			StrikeRate:   rateValue(p.Batting.StrikeRate()),
			LegalBalls:   p.LegalBalls,
			RunsConceded: p.RunsConceded,
			Wickets:      p.Wickets,
			BowlingAvg:   rateValue(model.Rate{Num: p.RunsConceded, Den: p.Wickets}),
			Economy:      rateValue(p.Economy()),
			Catches:      p.Catches,
			RunOuts:      p.RunOuts,
			Stumpings:    p.Stumpings,
		})
	}

	for _, o := range overs {
		if o.Innings == 0 {
			continue
		}
		out.Overs = append(out.Overs, exportOver{
			Over:              o.Over + 1,
			Innings:           o.Innings,
			RunsPerInnings:    roundTo2dp(float64(o.Runs) / float64(o.Innings)),
			WicketsPerInnings: roundTo2dp(float64(o.Wickets) / float64(o.Innings)),
			StrikeRate:        rateValue(model.Rate{Num: o.Runs * 100, Den: o.BallsFaced}),
		})
	}
	return out
}

// matchWeights returns a decay weight per match id: 0.5^(age_days/halfLife).
// A halfLife <= 0 or an unparseable date gives weight 1.
func matchWeights(matches []storage.TeamMatch, ref time.Time, halfLife float64) map[string]float64 {
	w := make(map[string]float64, len(matches))
	for _, m := range matches {
		w[m.MatchID] = 1
		if halfLife <= 0 {
			continue
		}
		d, err := time.Parse("2006-01-02", m.StartDate)
		if err != nil {
			continue
		}
		age := ref.Sub(d).Hours() / 24
		if age < 0 {
			age = 0
		}
		w[m.MatchID] = math.Pow(0.5, age/halfLife)
	}
	return w
}

// weightedWinPct is the weighted share of decided matches won. It reports
// false when no match was decided.
func weightedWinPct(matches []storage.TeamMatch, weights map[string]float64) (float64, bool) {
	var won, total float64
	for _, m := range matches {
		if !m.Decided {
			continue
		}
		w := weights[m.MatchID]
		total += w
		if m.Won {
			won += w
		}
	}
	if total == 0 {
		return 0, false
	}
	return roundTo2dp(won / total), true
}

func rateValue(r model.Rate) *float64 {
	f, ok := r.Float64()
	if !ok {
		return nil
	}
	f = roundTo2dp(f)
	return &f
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func roundTo2dp(v float64) float64 {
	return math.Round(v*100) / 100
}

package cmd

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cricket-metrics/internal/model"
	"github.com/pable/go-cricket-metrics/internal/storage"
)

var exportNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func exportMatches() []storage.TeamMatch {
	return []storage.TeamMatch{
		{MatchID: "c", StartDate: "2024-06-30", Decided: true, Won: true},
		{MatchID: "b", StartDate: "2024-05-01", Decided: false},
		{MatchID: "a", StartDate: "2023-12-01", Decided: true, Won: false},
	}
}

func TestMatchWeights(t *testing.T) {
	w := matchWeights(exportMatches(), exportNow, 0)
	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, 1.0, w[id])
	}

	ref := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	w = matchWeights([]storage.TeamMatch{
		{MatchID: "now", StartDate: "2024-06-30"},
		{MatchID: "old", StartDate: "2024-06-20"},
		{MatchID: "bad", StartDate: "someday"},
	}, ref, 10)
	assert.InDelta(t, 1.0, w["now"], 1e-9)
	assert.InDelta(t, 0.5, w["old"], 1e-9)
	assert.Equal(t, 1.0, w["bad"])
}

func TestWeightedWinPct(t *testing.T) {
	ms := exportMatches()

	pct, ok := weightedWinPct(ms, matchWeights(ms, exportNow, 0))
	require.True(t, ok)
	assert.Equal(t, 0.5, pct, "ties and no results are ignored")

	weights := map[string]float64{"a": 1, "b": 1, "c": 3}
	pct, ok = weightedWinPct(ms, weights)
	require.True(t, ok)
	assert.Equal(t, 0.75, pct)

	_, ok = weightedWinPct([]storage.TeamMatch{{MatchID: "x"}}, map[string]float64{"x": 1})
	assert.False(t, ok)
}

func TestBuildTeamExport(t *testing.T) {
	players := []storage.PlayerTotals{
		{Name: "Top", RegistryID: "r1", Matches: 3, Innings: 3, Dismissals: 2,
			Batting: model.Batting{Runs: 120, BallsFaced: 100}},
		{Name: "Bowler", Matches: 3, Innings: 1,
			Bowling: model.Bowling{LegalBalls: 60, RunsConceded: 70, Wickets: 5}},
		{Name: "Extra", Matches: 1},
	}
	overs := []storage.OverTotals{
		{Over: 0, Innings: 2, Runs: 15, BallsFaced: 12, Wickets: 1},
		{Over: 1, Innings: 0},
	}

	out := buildTeamExport("Hosts", exportMatches(), players, overs, exportNow, 0, 2)

	assert.Equal(t, "Hosts", out.Team)
	assert.Equal(t, "2024-06-30", out.LatestMatchDate)
	assert.Equal(t, 3, out.MatchCount)
	assert.Equal(t, 2, out.Decided)
	assert.Equal(t, 1, out.Won)
	require.NotNil(t, out.WinPct)
	assert.Equal(t, 0.5, *out.WinPct)

	require.Len(t, out.Players, 2, "trimmed to top")
	top := out.Players[0]
	require.NotNil(t, top.BattingAvg)
	assert.Equal(t, 60.0, *top.BattingAvg)
	assert.Equal(t, 120.0, *top.StrikeRate)
	assert.Nil(t, top.Economy, "never bowled")
	assert.Nil(t, top.BowlingAvg)

	bowler := out.Players[1]
	assert.Equal(t, 14.0, *bowler.BowlingAvg)
	assert.Equal(t, 7.0, *bowler.Economy)
	assert.Nil(t, bowler.BattingAvg, "never dismissed")

	require.Len(t, out.Overs, 1, "overs with no innings are dropped")
	assert.Equal(t, 1, out.Overs[0].Over)
	assert.Equal(t, 7.5, out.Overs[0].RunsPerInnings)
	assert.Equal(t, 0.5, out.Overs[0].WicketsPerInnings)
	assert.Equal(t, 125.0, *out.Overs[0].StrikeRate)

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"economy":null`)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"T20", "IT20"}, splitList(" T20, ,IT20 "))
	assert.Nil(t, splitList(""))
}

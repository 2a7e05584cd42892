package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pable/go-cricket-metrics/internal/model"
)

func sampleCard() model.InningsCard {
	return model.InningsCard{
		BattingTeam: "Hosts",
		BowlingTeam: "Visitors",
		Innings: model.Innings{
			Number:          1,
			Runs:            16,
			Wickets:         2,
			LegalDeliveries: 9,
			Overs:           model.Overs{Whole: 1, Balls: 3},
			Extras:          model.Extras{Wides: 1},
			FallOfWickets: []model.FallOfWicket{
				{Wickets: 1, Runs: 6, At: model.BallCoord{Over: 0, Ball: 3}, PlayerID: 2},
				{Wickets: 2, Runs: 16, At: model.BallCoord{Over: 1, Ball: 3}, PlayerID: 3},
			},
		},
		Rows: []model.ScorecardRow{
			{PlayerID: 1, Name: "H1", Batted: true, BattingPos: 1, NotOut: true, Batting: model.Batting{Runs: 3, BallsFaced: 3}},
			{PlayerID: 2, Name: "H2", Batted: true, BattingPos: 2, DismissalKind: "caught", Batting: model.Batting{Runs: 4, BallsFaced: 2, Fours: 1, Out: true}},
			{PlayerID: 3, Name: "H3", Batted: true, BattingPos: 3, DismissalKind: "run out", Batting: model.Batting{Runs: 7, BallsFaced: 4, Out: true}},
			{PlayerID: 7, Name: "V3", Bowled: true, Bowling: model.Bowling{LegalBalls: 6, RunsConceded: 14, Wickets: 1, Wides: 1}},
			{PlayerID: 8, Name: "V4", Bowled: true, Bowling: model.Bowling{LegalBalls: 3, RunsConceded: 1}},
		},
		Partnerships: []model.PartnershipLine{
			{Player1: "H1", Player2: "H2", Partnership: model.Partnership{Player1Runs: 0, Player2Runs: 4, BatterRuns: 4, Extras: 2, Balls: 3, Dismissal: true}},
			{Player1: "H1", Player2: "H3", Partnership: model.Partnership{Player1Runs: 3, Player2Runs: 7, BatterRuns: 10, Balls: 6, StartWickets: 1}},
		},
	}
}

func TestInningsHeadline(t *testing.T) {
	c := sampleCard()
	assert.Equal(t, "Hosts 1st innings  16/2 (1.3 ov, RR 10.67)", InningsHeadline(c))

	c.Innings.Number = 2
	c.Innings.Target = &model.Target{Runs: 17, Overs: 20}
	assert.Equal(t, "Hosts 2nd innings  16/2 (1.3 ov, RR 10.67)  target 17 in 20 ov", InningsHeadline(c))
}

func TestFallOfWickets(t *testing.T) {
	assert.Equal(t, "1-6 (H2, 0.3), 2-16 (H3, 1.3)", FallOfWickets(sampleCard()))
	assert.Equal(t, "", FallOfWickets(model.InningsCard{}))
}

func TestPrintInningsCard(t *testing.T) {
	var buf bytes.Buffer
	PrintInningsCard(&buf, sampleCard(), 3)
	out := buf.String()

	for _, want := range []string{
		"Hosts 1st innings",
		"not out",
		"caught",
		"run out",
		"Extras: 1 (b 0, lb 0, w 1, nb 0, p 0)",
		"Fall of wickets: 1-6 (H2, 0.3)",
		"14.00", // V3 economy
		"2.00",  // V4 economy
		"unbroken",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 1, strings.Count(out, ">"), "only the focus row is marked")
}

func TestBallsPerOver(t *testing.T) {
	c := sampleCard()
	assert.Equal(t, 6, ballsPerOver(c))

	c.Innings.LegalDeliveries = 19
	c.Innings.Overs = model.Overs{Whole: 3, Balls: 1}
	assert.Equal(t, 6, ballsPerOver(c))

	c.Innings.LegalDeliveries = 11
	c.Innings.Overs = model.Overs{Whole: 2, Balls: 1}
	assert.Equal(t, 5, ballsPerOver(c))

	assert.Equal(t, model.DefaultBallsPerOver, ballsPerOver(model.InningsCard{}))
}

func careerLines() []model.PlayerInningsLine {
	return []model.PlayerInningsLine{
		{MatchID: "m3", Batted: true, NotOut: true, Batting: model.Batting{Runs: 102, BallsFaced: 80, Fours: 10, Sixes: 2}},
		{MatchID: "m2", Batted: true, Batting: model.Batting{Runs: 55, BallsFaced: 40, Out: true}, Fielding: model.Fielding{Catches: 2}},
		{MatchID: "m2", InningsNumber: 2, Bowled: true, Bowling: model.Bowling{LegalBalls: 24, RunsConceded: 30, Wickets: 2}},
		{MatchID: "m1", Batted: true, Batting: model.Batting{Runs: 3, BallsFaced: 10, Out: true}},
		{MatchID: "m1", InningsNumber: 2, Bowled: true, Bowling: model.Bowling{LegalBalls: 24, RunsConceded: 18, Wickets: 2, Maidens: 1}},
	}
}

func TestCareer(t *testing.T) {
	c := Career(model.Player{Name: "A"}, careerLines())

	assert.Equal(t, 3, c.Matches)
	assert.Equal(t, 3, c.Innings)
	assert.Equal(t, 1, c.NotOuts)
	assert.Equal(t, 160, c.Batting.Runs)
	assert.Equal(t, 130, c.BallsFaced)
	assert.Equal(t, 1, c.Hundreds)
	assert.Equal(t, 1, c.Fifties)
	assert.Equal(t, 102, c.HighScore)
	assert.True(t, c.HighNotOut)
	assert.Equal(t, "80.00", c.BattingAverage().Format(2))

	assert.Equal(t, 48, c.LegalBalls)
	assert.Equal(t, 4, c.Wickets)
	assert.Equal(t, 2, c.BestWkts)
	assert.Equal(t, 18, c.BestRuns, "fewer runs breaks a wickets tie")
	assert.Equal(t, "12.00", c.BowlingAverage().Format(2))
	assert.Equal(t, 2, c.Catches)
}

func TestCareer_Empty(t *testing.T) {
	c := Career(model.Player{Name: "A"}, nil)
	assert.Zero(t, c.Matches)
	assert.False(t, c.BattingAverage().Defined())
	assert.False(t, c.BowlingAverage().Defined())
}

func TestInningsScores(t *testing.T) {
	s := InningsScores([]model.PlayerInningsLine{
		{Batted: true, Batting: model.Batting{Runs: 10}},
		{Batted: true, Batting: model.Batting{Runs: 20}},
		{Bowled: true},
		{Batted: true, Batting: model.Batting{Runs: 30}},
	})
	assert.Equal(t, 3, s.Innings)
	assert.InDelta(t, 20.0, s.Mean, 1e-9)
	assert.InDelta(t, 10.0, s.StdDev, 1e-9)

	one := InningsScores([]model.PlayerInningsLine{{Batted: true, Batting: model.Batting{Runs: 7}}})
	assert.Equal(t, 7.0, one.Mean)
	assert.True(t, math.IsNaN(one.StdDev))

	none := InningsScores(nil)
	assert.True(t, math.IsNaN(none.Mean))
}

func TestPrintPlayerCareer(t *testing.T) {
	lines := careerLines()
	var buf bytes.Buffer
	PrintPlayerCareer(&buf, Career(model.Player{Name: "A", RegistryID: "abc"}, lines), InningsScores(lines))
	out := buf.String()
	assert.Contains(t, out, "A  (abc)  |  3 matches")
	assert.Contains(t, out, "102*")
	assert.Contains(t, out, "2/18")
	assert.Contains(t, out, "Fielding: 2 ct, 0 run out, 0 st")
}

func TestPrintMatchup(t *testing.T) {
	var buf bytes.Buffer
	PrintMatchup(&buf, "H3", "V3", model.Matchup{
		Innings:    1,
		Dismissals: 0,
		Batting:    model.Batting{Runs: 7, BallsFaced: 4, Sixes: 1},
	})
	out := buf.String()
	assert.Contains(t, out, "H3 v V3  |  1 innings")
	assert.Contains(t, out, "175.00")
	assert.Contains(t, out, "-", "average is undefined without a dismissal")
}

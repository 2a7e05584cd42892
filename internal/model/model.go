package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// ---- Dimension entities ----

type Team struct {
	ID     int64
	Name   string
	Gender string
}

type Player struct {
	ID         int64
	RegistryID string
	Name       string
	Gender     string
}

type Stadium struct {
	ID   int64
	Name string
	City string
}

type Tournament struct {
	ID     int64
	Name   string
	Gender string
	Format string
	Season string
}

// ---- Derived figures ----

// Rate is a ratio kept as integers so derived figures stay exact until they
// are formatted or stored. A zero denominator means the rate is undefined.
type Rate struct {
	Num, Den int
}

func (r Rate) Defined() bool { return r.Den != 0 }

// Float64 returns the rate and whether it is defined.
func (r Rate) Float64() (float64, bool) {
	if r.Den == 0 {
		return 0, false
	}
	return float64(r.Num) / float64(r.Den), true
}

// Rat returns the exact value, or nil when undefined.
func (r Rate) Rat() *big.Rat {
	if r.Den == 0 {
		return nil
	}
	return big.NewRat(int64(r.Num), int64(r.Den))
}

// Format renders the rate with the given precision, or "-" when undefined.
func (r Rate) Format(prec int) string {
	f, ok := r.Float64()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.*f", prec, f)
}

// Overs is a whole-overs.remainder count ("19.4" = 19 overs and 4 balls).
type Overs struct {
	Whole int
	Balls int
}

// OversFromBalls converts a legal-ball count into overs for the given balls-per-over.
func OversFromBalls(legalBalls, ballsPerOver int) Overs {
	if ballsPerOver <= 0 {
		ballsPerOver = DefaultBallsPerOver
	}
	return Overs{Whole: legalBalls / ballsPerOver, Balls: legalBalls % ballsPerOver}
}

func (o Overs) String() string {
	return fmt.Sprintf("%d.%d", o.Whole, o.Balls)
}

// DefaultBallsPerOver applies when a document omits balls_per_over.
const DefaultBallsPerOver = 6

// Batting holds batting counters for one player over some scope.
type Batting struct {
	Runs       int
	BallsFaced int
	Fours      int
	Sixes      int
	Dots       int
	Out        bool
}

// StrikeRate is runs per hundred balls faced.
func (b Batting) StrikeRate() Rate {
	return Rate{Num: b.Runs * 100, Den: b.BallsFaced}
}

// Bowling holds bowling counters for one player over some scope.
type Bowling struct {
	LegalBalls    int
	RunsConceded  int
	Wickets       int
	Maidens       int
	Dots          int
	Wides         int
	NoBalls       int
	FoursConceded int
	SixesConceded int
}

// Economy is runs conceded per six legal balls.
func (b Bowling) Economy() Rate {
	return Rate{Num: b.RunsConceded * 6, Den: b.LegalBalls}
}

// Overs expresses the legal balls bowled as overs.
func (b Bowling) Overs(ballsPerOver int) Overs {
	return OversFromBalls(b.LegalBalls, ballsPerOver)
}

// Fielding holds dismissal credits for one player over some scope.
type Fielding struct {
	Catches   int
	RunOuts   int
	Stumpings int
}

// ---- Per-innings rows ----

// PlayerInningsStats is one player's contribution to one innings.
type PlayerInningsStats struct {
	MatchID       string
	InningsNumber int
	PlayerID      int64
	TeamID        int64

	Batted        bool // false = did not bat
	BattingPos    int  // order of first appearance at the crease, 0 if did not bat
	NotOut        bool
	DismissalKind string
	DismissedByID int64 // credited bowler, 0 when none
	Batting

	Bowled bool // false = did not bowl
	Bowling

	Fielding
}

func (s *PlayerInningsStats) DidNotBat() bool  { return !s.Batted }
func (s *PlayerInningsStats) DidNotBowl() bool { return !s.Bowled }

// PlayerOverStats is one player's contribution to one over of an innings.
type PlayerOverStats struct {
	MatchID       string
	InningsNumber int
	Over          int
	PlayerID      int64
	TeamID        int64

	Batting
	Bowling
	Fielding
}

// PlayerVsPlayerInningsStats is the head-to-head record of one batter against
// one bowler within one innings.
type PlayerVsPlayerInningsStats struct {
	MatchID       string
	InningsNumber int
	BatterID      int64
	BowlerID      int64

	Batting // batter's figures against this bowler
	Bowling // bowler's figures against this batter
}

// Partnership is one stint of two batters at the crease together.
type Partnership struct {
	MatchID       string
	InningsNumber int
	Number        int   // 1-based order within the innings
	Player1ID     int64 // lower id of the pair
	Player2ID     int64
	Player1Runs   int
	Player2Runs   int
	BatterRuns    int
	Extras        int
	Balls         int
	Fours         int
	Sixes         int
	Dismissal     bool // ended with a dismissal
	StartWickets  int  // wickets down when the stint began
}

// Runs is the partnership total, extras included.
func (p *Partnership) Runs() int { return p.BatterRuns + p.Extras }

func (p *Partnership) StrikeRate() Rate {
	return Rate{Num: p.Runs() * 100, Den: p.Balls}
}

// FieldingEvent credits one fielder with one dismissal.
type FieldingEvent struct {
	MatchID       string
	InningsNumber int
	FielderID     int64
	DismissedID   int64
	BowlerID      int64
	Over          int
	Ball          int
	Kind          string
	Substitute    bool
}

// FallOfWicket is one entry of the fall-of-wickets sequence.
type FallOfWicket struct {
	Wickets  int       `json:"wickets"`
	Runs     int       `json:"runs"`
	At       BallCoord `json:"at"`
	PlayerID int64     `json:"player_id"`
}

// Delivery is the persisted form of one ball.
type Delivery struct {
	MatchID        string
	InningsNumber  int
	Seq            int // 1-based position within the innings, illegal balls included
	Over           int
	Ball           int // legal balls already bowled in the over + 1
	LegalIndex     int // legal balls already bowled in the innings + 1
	BatterID       int64
	BowlerID       int64
	NonStrikerID   int64
	BatterRuns     int
	ExtrasRuns     int
	TotalRuns      int
	Extras         Extras
	Legal          bool
	Boundary       string // "", "four", "six"
	ExtrasBoundary string
	Wickets        json.RawMessage
	Replacements   json.RawMessage
	Review         json.RawMessage
	PowerplayType  string
}

// Innings is the innings-level summary.
type Innings struct {
	MatchID         string
	Number          int
	BattingTeamID   int64
	BowlingTeamID   int64
	Runs            int
	Wickets         int
	LegalDeliveries int
	Overs           Overs
	Extras          Extras
	FallOfWickets   []FallOfWicket
	Target          *Target
	Declared        bool
	Forfeited       bool
	SuperOver       bool
	Powerplays      []Powerplay
	MiscountedOvers json.RawMessage // scorer notes on overs of the wrong length, as in the document
}

// RunRate is runs per over.
func (i *Innings) RunRate() Rate {
	return Rate{Num: i.Runs * 6, Den: i.LegalDeliveries}
}

// InningsResult is everything derived from one innings.
type InningsResult struct {
	Innings      Innings
	Players      []PlayerInningsStats
	Overs        []PlayerOverStats
	Matchups     []PlayerVsPlayerInningsStats
	Partnerships []Partnership
	Fielding     []FieldingEvent
	Deliveries   []Delivery
}

// ---- Match ----

// Toss records the toss with the winner resolved to a team id.
type Toss struct {
	WinnerID    int64  `json:"winner_id"`
	Decision    string `json:"decision"`
	Uncontested bool   `json:"uncontested,omitempty"`
}

// Outcome records the result with teams and players resolved to ids.
type Outcome struct {
	WinnerID     int64  `json:"winner_id,omitempty"`
	Result       string `json:"result,omitempty"`
	Method       string `json:"method,omitempty"`
	ByRuns       int    `json:"by_runs,omitempty"`
	ByWickets    int    `json:"by_wickets,omitempty"`
	ByInnings    int    `json:"by_innings,omitempty"`
	EliminatorID int64  `json:"eliminator_id,omitempty"`
	BowlOutID    int64  `json:"bowl_out_id,omitempty"`
}

// Match is the header-level record of one ingested document.
type Match struct {
	ID            string // SHA-256 of the source document
	Team1ID       int64
	Team2ID       int64
	StadiumID     int64
	TournamentID  int64
	Dates         []string
	Format        string
	FormatNumber  int
	Gender        string
	Season        string
	TeamType      string
	BallsPerOver  int
	Overs         int
	Event         Event
	Toss          Toss
	Outcome       Outcome
	Officials     json.RawMessage
	Players       map[int64][]int64 // team id -> player ids
	PlayerOfMatch []int64
	Supersubs     map[int64]int64 // team id -> player id
	Missing       json.RawMessage
	BowlOut       json.RawMessage
}

// StartDate is the first day of the match, or "" when unknown.
func (m *Match) StartDate() string {
	if len(m.Dates) == 0 {
		return ""
	}
	return m.Dates[0]
}

// MatchGraph is the complete entity graph handed to a persistence sink.
type MatchGraph struct {
	Match    Match
	Innings  []InningsResult
	Source   string // where the document came from
	Document []byte // raw document bytes, archived alongside the rows
}

// ---- Read models ----

// MatchSummary is a lightweight record for list/show commands.
type MatchSummary struct {
	MatchID    string
	StartDate  string
	Format     string
	Team1      string
	Team2      string
	Venue      string
	Tournament string
	Result     string
}

// ScorecardRow is one player's line on a batting or bowling card.
type ScorecardRow struct {
	PlayerID      int64
	Name          string
	BattingPos    int
	NotOut        bool
	DismissalKind string
	Batted        bool
	Bowled        bool
	Batting
	Bowling
	Fielding
}

// InningsCard is one innings as read back for display.
type InningsCard struct {
	Innings      Innings
	BattingTeam  string
	BowlingTeam  string
	Rows         []ScorecardRow
	Partnerships []PartnershipLine
}

// PartnershipLine is a partnership with names resolved.
type PartnershipLine struct {
	Partnership
	Player1 string
	Player2 string
}

// PlayerInningsLine is one innings of a player's career, newest first.
type PlayerInningsLine struct {
	MatchID       string
	StartDate     string
	Format        string
	InningsNumber int
	Batted        bool
	NotOut        bool
	Bowled        bool
	Batting
	Bowling
	Fielding
}

// PlayerCareer aggregates a player's stored innings.
type PlayerCareer struct {
	Player  Player
	Matches int
	Innings int // innings batted
	NotOuts int
	Batting
	Bowling
	Fielding
	Fifties    int
	Hundreds   int
	HighScore  int
	HighNotOut bool
	BestWkts   int
	BestRuns   int // runs conceded in the best bowling innings
}

// BattingAverage is runs per dismissal.
func (c *PlayerCareer) BattingAverage() Rate {
	return Rate{Num: c.Batting.Runs, Den: c.Innings - c.NotOuts}
}

// BowlingAverage is runs conceded per wicket.
func (c *PlayerCareer) BowlingAverage() Rate {
	return Rate{Num: c.RunsConceded, Den: c.Wickets}
}

// Matchup is a batter's record against one bowler across several innings.
type Matchup struct {
	Innings    int
	Dismissals int
	Batting
	Bowling
}

// IngestRun records one batch ingestion.
type IngestRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    string
	Documents  int
	Ingested   int
	Skipped    int
	Failed     int
}

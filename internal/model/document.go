package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ---- Raw match document (Cricsheet JSON layout) ----

// MatchDocument is one ball-by-ball match record as read from disk.
// The header is published under "info"; "header" is accepted as an alias.
type MatchDocument struct {
	Meta    json.RawMessage `json:"meta,omitempty"`
	Info    MatchInfo       `json:"info"`
	Innings []RawInnings    `json:"innings"`
}

func (d *MatchDocument) UnmarshalJSON(b []byte) error {
	var aux struct {
		Meta    json.RawMessage `json:"meta"`
		Info    *MatchInfo      `json:"info"`
		Header  *MatchInfo      `json:"header"`
		Innings []RawInnings    `json:"innings"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.Meta = aux.Meta
	d.Innings = aux.Innings
	switch {
	case aux.Info != nil:
		d.Info = *aux.Info
	case aux.Header != nil:
		d.Info = *aux.Header
	}
	return nil
}

// MatchInfo is the match header.
type MatchInfo struct {
	BallsPerOver    int                 `json:"balls_per_over"`
	City            string              `json:"city"`
	Dates           []string            `json:"dates"`
	Event           Event               `json:"event"`
	Gender          string              `json:"gender"`
	MatchType       string              `json:"match_type"`
	MatchTypeNumber int                 `json:"match_type_number"`
	Officials       json.RawMessage     `json:"officials,omitempty"`
	Outcome         RawOutcome          `json:"outcome"`
	Overs           int                 `json:"overs"`
	PlayerOfMatch   []string            `json:"player_of_match"`
	Players         map[string][]string `json:"players"`
	Registry        Registry            `json:"registry"`
	Season          Season              `json:"season"`
	TeamType        string              `json:"team_type"`
	Teams           []string            `json:"teams"`
	Toss            RawToss             `json:"toss"`
	Venue           string              `json:"venue"`
	Supersubs       map[string]string   `json:"supersubs,omitempty"`
	Missing         json.RawMessage     `json:"missing,omitempty"`
	BowlOut         json.RawMessage     `json:"bowl_out,omitempty"`
}

// Event names the competition a match belongs to.
type Event struct {
	Name        string `json:"name"`
	MatchNumber int    `json:"match_number,omitempty"`
	Group       string `json:"group,omitempty"`
	Stage       string `json:"stage,omitempty"`
}

// Registry maps every person named in the document to an external registry id.
type Registry struct {
	People map[string]string `json:"people"`
}

// RawToss is the toss as written in the document.
type RawToss struct {
	Winner      string `json:"winner"`
	Decision    string `json:"decision"`
	Uncontested bool   `json:"uncontested,omitempty"`
}

// RawOutcome is the result as written in the document.
type RawOutcome struct {
	Winner     string `json:"winner,omitempty"`
	Result     string `json:"result,omitempty"` // "draw", "tie", "no result"
	Method     string `json:"method,omitempty"`
	Eliminator string `json:"eliminator,omitempty"`
	BowlOut    string `json:"bowl_out,omitempty"`
	By         struct {
		Runs    int `json:"runs,omitempty"`
		Wickets int `json:"wickets,omitempty"`
		Innings int `json:"innings,omitempty"`
	} `json:"by"`
}

// Season is written either as a string ("2019/20") or as a bare number (2019).
type Season string

func (s *Season) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Season(str)
		return nil
	}
	if string(b) == "null" {
		return nil
	}
	*s = Season(b)
	return nil
}

// RawInnings is one innings of the document.
type RawInnings struct {
	Team            string          `json:"team"`
	Overs           []RawOver       `json:"overs"`
	Powerplays      []Powerplay     `json:"powerplays,omitempty"`
	Target          *Target         `json:"target,omitempty"`
	Declared        bool            `json:"declared,omitempty"`
	Forfeited       bool            `json:"forfeited,omitempty"`
	SuperOver       bool            `json:"super_over,omitempty"`
	MiscountedOvers json.RawMessage `json:"miscounted_overs,omitempty"`
	AbsentHurt      []string        `json:"absent_hurt,omitempty"`
	PenaltyRuns     *PenaltyRuns    `json:"penalty_runs,omitempty"`
}

// Target is the chase target set for an innings.
type Target struct {
	Runs  int     `json:"runs"`
	Overs float64 `json:"overs,omitempty"`
}

// PenaltyRuns are awarded before or after the innings' deliveries.
type PenaltyRuns struct {
	Pre  int `json:"pre,omitempty"`
	Post int `json:"post,omitempty"`
}

// RawOver is one over: a 0-based over number and its deliveries in bowling order.
type RawOver struct {
	Over       int           `json:"over"`
	Deliveries []RawDelivery `json:"deliveries"`
}

// RawDelivery is one ball as written in the document.
type RawDelivery struct {
	Batter       string          `json:"batter"`
	Bowler       string          `json:"bowler"`
	NonStriker   string          `json:"non_striker"`
	Runs         Runs            `json:"runs"`
	Extras       Extras          `json:"extras"`
	Wickets      []RawWicket     `json:"wickets,omitempty"`
	Replacements json.RawMessage `json:"replacements,omitempty"`
	Review       json.RawMessage `json:"review,omitempty"`
}

// Runs is the runs breakdown of one delivery.
type Runs struct {
	Batter      int  `json:"batter"`
	Extras      int  `json:"extras"`
	Total       int  `json:"total"`
	NonBoundary bool `json:"non_boundary,omitempty"`
}

// Extras is the extras breakdown of one delivery. Absent keys are zero.
type Extras struct {
	Wides   int `json:"wides,omitempty"`
	NoBalls int `json:"noballs,omitempty"`
	Byes    int `json:"byes,omitempty"`
	LegByes int `json:"legbyes,omitempty"`
	Penalty int `json:"penalty,omitempty"`
}

func (e *Extras) UnmarshalJSON(b []byte) error {
	// Both "noballs" and "no_balls" spellings are seen in the wild.
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*e = Extras{}
	for k, v := range m {
		switch strings.ReplaceAll(k, "_", "") {
		case "wides":
			e.Wides += v
		case "noballs":
			e.NoBalls += v
		case "byes":
			e.Byes += v
		case "legbyes":
			e.LegByes += v
		case "penalty":
			e.Penalty += v
		default:
			return fmt.Errorf("unknown extras type %q", k)
		}
	}
	return nil
}

// Sum returns the total of all extras on the delivery.
func (e Extras) Sum() int {
	return e.Wides + e.NoBalls + e.Byes + e.LegByes + e.Penalty
}

// RawWicket is one dismissal event on a delivery.
type RawWicket struct {
	Kind      string    `json:"kind"`
	PlayerOut string    `json:"player_out"`
	Fielders  []Fielder `json:"fielders,omitempty"`
}

// Fielder is a fielder named on a dismissal.
type Fielder struct {
	Name       string `json:"name"`
	Substitute bool   `json:"substitute,omitempty"`
}

// UnmarshalJSON accepts either a bare name or a {"name": ...} object.
func (f *Fielder) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		*f = Fielder{}
		return json.Unmarshal(b, &f.Name)
	}
	type plain Fielder
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*f = Fielder(p)
	return nil
}

// Powerplay is a declared window of fielding restrictions.
type Powerplay struct {
	From BallCoord `json:"from"`
	To   BallCoord `json:"to"`
	Type string    `json:"type"`
}

// BallCoord is an "over.ball" coordinate: 0-based over, 1-based ball within it.
type BallCoord struct {
	Over int
	Ball int
}

// ParseBallCoord parses "5.6" style coordinates.
func ParseBallCoord(s string) (BallCoord, error) {
	s = strings.TrimSpace(s)
	over, ball, ok := strings.Cut(s, ".")
	o, err := strconv.Atoi(over)
	if err != nil {
		return BallCoord{}, fmt.Errorf("ball coordinate %q: %w", s, err)
	}
	c := BallCoord{Over: o}
	if ok {
		if c.Ball, err = strconv.Atoi(ball); err != nil {
			return BallCoord{}, fmt.Errorf("ball coordinate %q: %w", s, err)
		}
	}
	if c.Over < 0 || c.Ball < 0 {
		return BallCoord{}, fmt.Errorf("ball coordinate %q: negative component", s)
	}
	return c, nil
}

// UnmarshalJSON reads the literal text of either a string or a number, so 5.10
// is never confused with 5.1 by float rounding.
func (c *BallCoord) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	parsed, err := ParseBallCoord(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c BallCoord) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c BallCoord) String() string {
	return fmt.Sprintf("%d.%d", c.Over, c.Ball)
}

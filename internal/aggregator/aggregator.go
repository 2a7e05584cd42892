package aggregator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pable/go-cricket-metrics/internal/classify"
	"github.com/pable/go-cricket-metrics/internal/model"
)

var (
	ErrUnknownPlayer   = errors.New("player not in roster")
	ErrOverOrder       = errors.New("overs out of order")
	ErrNoOver          = errors.New("delivery before any over was started")
	ErrInningsComplete = errors.New("innings already finished")
)

// State is the lifecycle of one innings aggregation.
type State int

const (
	BeforeFirstDelivery State = iota
	InOver
	InningsComplete
)

func (s State) String() string {
	switch s {
	case BeforeFirstDelivery:
		return "before first delivery"
	case InOver:
		return "in over"
	case InningsComplete:
		return "innings complete"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Params identifies the innings and supplies everything resolved ahead of it.
type Params struct {
	MatchID       string
	InningsNumber int
	BattingTeamID int64
	BowlingTeamID int64
	BallsPerOver  int
	Powerplays    []model.Powerplay
	Players       map[string]int64 // player name -> player id
	Target        *model.Target
	Declared      bool
	Forfeited     bool
	SuperOver     bool
	PenaltyRuns   *model.PenaltyRuns
	Miscounted    json.RawMessage
}

// ---- Keys ----

type overKey struct {
	over     int
	playerID int64
}

type matchupKey struct {
	batterID, bowlerID int64
}

type window struct {
	from, to int
	kind     string
}

// Innings accumulates one innings delivery by delivery. It is not safe for
// concurrent use; ingestion runs one Innings per goroutine.
type Innings struct {
	p     Params
	bpo   int
	state State

	over      int // current over number
	overLegal int // legal balls so far in the current over
	seq       int
	legal     int
	battingN  int

	inn model.Innings

	// Rows are kept in creation order so output is deterministic.
	players    []*model.PlayerInningsStats
	playerIdx  map[int64]*model.PlayerInningsStats
	overs      []*model.PlayerOverStats
	overIdx    map[overKey]*model.PlayerOverStats
	matchups   []*model.PlayerVsPlayerInningsStats
	matchupIdx map[matchupKey]*model.PlayerVsPlayerInningsStats

	partnerships []*model.Partnership
	fielding     []model.FieldingEvent
	deliveries   []model.Delivery
	windows      []window
}

// New starts an innings aggregation.
func New(p Params) *Innings {
	bpo := p.BallsPerOver
	if bpo <= 0 {
		bpo = model.DefaultBallsPerOver
	}
	a := &Innings{
		p:          p,
		bpo:        bpo,
		over:       -1,
		playerIdx:  make(map[int64]*model.PlayerInningsStats),
		overIdx:    make(map[overKey]*model.PlayerOverStats),
		matchupIdx: make(map[matchupKey]*model.PlayerVsPlayerInningsStats),
	}
	a.inn = model.Innings{
		MatchID:       p.MatchID,
		Number:        p.InningsNumber,
		BattingTeamID: p.BattingTeamID,
		BowlingTeamID: p.BowlingTeamID,
		Target:        p.Target,
		Declared:      p.Declared,
		Forfeited:     p.Forfeited,
		SuperOver:     p.SuperOver,
		Powerplays:    p.Powerplays,
	}
	if len(p.Miscounted) > 0 {
		a.inn.MiscountedOvers = p.Miscounted
	}
	if p.PenaltyRuns != nil {
		a.inn.Runs += p.PenaltyRuns.Pre
		a.inn.Extras.Penalty += p.PenaltyRuns.Pre
	}
	for _, pp := range p.Powerplays {
		a.windows = append(a.windows, window{
			from: a.legalIndex(pp.From),
			to:   a.legalIndex(pp.To),
			kind: pp.Type,
		})
	}
	return a
}

// legalIndex maps an "over.ball" coordinate onto the 1-based legal-ball index.
// Ball numbers above balls-per-over (extras re-bowled in the over) are capped.
func (a *Innings) legalIndex(c model.BallCoord) int {
	ball := c.Ball
	if ball > a.bpo {
		ball = a.bpo
	}
	return c.Over*a.bpo + ball
}

// State reports where the innings is in its lifecycle.
func (a *Innings) State() State { return a.state }

// StartOver opens over n. Overs must arrive in strictly increasing order.
func (a *Innings) StartOver(n int) error {
	if a.state == InningsComplete {
		return ErrInningsComplete
	}
	if n <= a.over || n < 0 {
		return fmt.Errorf("%w: over %d after over %d", ErrOverOrder, n, a.over)
	}
	a.over = n
	a.overLegal = 0
	a.state = InOver
	return nil
}

func (a *Innings) playerID(name string) (int64, error) {
	id, ok := a.p.Players[name]
	if !ok || name == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
	}
	return id, nil
}

func (a *Innings) playerRow(id, teamID int64) *model.PlayerInningsStats {
	if s, ok := a.playerIdx[id]; ok {
		return s
	}
	s := &model.PlayerInningsStats{
		MatchID:       a.p.MatchID,
		InningsNumber: a.p.InningsNumber,
		PlayerID:      id,
		TeamID:        teamID,
	}
	a.playerIdx[id] = s
	a.players = append(a.players, s)
	return s
}

func (a *Innings) overRow(id, teamID int64) *model.PlayerOverStats {
	k := overKey{a.over, id}
	if s, ok := a.overIdx[k]; ok {
		return s
	}
	s := &model.PlayerOverStats{
		MatchID:       a.p.MatchID,
		InningsNumber: a.p.InningsNumber,
		Over:          a.over,
		PlayerID:      id,
		TeamID:        teamID,
	}
	a.overIdx[k] = s
	a.overs = append(a.overs, s)
	return s
}

func (a *Innings) matchupRow(batterID, bowlerID int64) *model.PlayerVsPlayerInningsStats {
	k := matchupKey{batterID, bowlerID}
	if s, ok := a.matchupIdx[k]; ok {
		return s
	}
	s := &model.PlayerVsPlayerInningsStats{
		MatchID:       a.p.MatchID,
		InningsNumber: a.p.InningsNumber,
		BatterID:      batterID,
		BowlerID:      bowlerID,
	}
	a.matchupIdx[k] = s
	a.matchups = append(a.matchups, s)
	return s
}

// arrive records a batter at the crease, assigning a batting position the
// first time they are seen. A batter back from retirement loses the
// retirement as their dismissal.
func (a *Innings) arrive(s *model.PlayerInningsStats) {
	if s.Batted {
		if !s.Out {
			s.DismissalKind, s.DismissedByID = "", 0
		}
		return
	}
	a.battingN++
	s.Batted = true
	s.BattingPos = a.battingN
}

// partnership returns the current stint for the pair, opening a new one when
// the pair at the crease has changed.
func (a *Innings) partnership(x, y int64) *model.Partnership {
	if x > y {
		x, y = y, x
	}
	if n := len(a.partnerships); n > 0 {
		cur := a.partnerships[n-1]
		if cur.Player1ID == x && cur.Player2ID == y {
			return cur
		}
	}
	p := &model.Partnership{
		MatchID:       a.p.MatchID,
		InningsNumber: a.p.InningsNumber,
		Number:        len(a.partnerships) + 1,
		Player1ID:     x,
		Player2ID:     y,
		StartWickets:  a.inn.Wickets,
	}
	a.partnerships = append(a.partnerships, p)
	return p
}

func (a *Innings) powerplayAt(idx int) string {
	for _, w := range a.windows {
		if idx >= w.from && idx <= w.to {
			return w.kind
		}
	}
	return ""
}

// Add folds one delivery of the current over into the innings.
func (a *Innings) Add(d model.RawDelivery) error {
	switch a.state {
	case BeforeFirstDelivery:
		return ErrNoOver
	case InningsComplete:
		return ErrInningsComplete
	}

	// ---- Step 1: identities and rows. ----

	strikerID, err := a.playerID(d.Batter)
	if err != nil {
		return fmt.Errorf("batter: %w", err)
	}
	nonStrikerID, err := a.playerID(d.NonStriker)
	if err != nil {
		return fmt.Errorf("non-striker: %w", err)
	}
	bowlerID, err := a.playerID(d.Bowler)
	if err != nil {
		return fmt.Errorf("bowler: %w", err)
	}

	c, err := classify.Classify(d)
	if err != nil {
		return err
	}

	// Resolve every name the wickets mention before touching any counter so a
	// failed delivery leaves the innings unchanged.
	type resolvedFielder struct {
		id  int64
		sub bool
	}
	outIDs := make([]int64, len(c.Wickets))
	fielderIDs := make([][]resolvedFielder, len(c.Wickets))
	for i, w := range c.Wickets {
		if w.PlayerOut != "" {
			if outIDs[i], err = a.playerID(w.PlayerOut); err != nil {
				return fmt.Errorf("player out: %w", err)
			}
		}
		for _, f := range w.Fielders {
			id, err := a.playerID(f.Name)
			if err != nil {
				return fmt.Errorf("fielder: %w", err)
			}
			fielderIDs[i] = append(fielderIDs[i], resolvedFielder{id, f.Substitute})
		}
	}

	bat, bowl := a.p.BattingTeamID, a.p.BowlingTeamID
	striker := a.playerRow(strikerID, bat)
	nonStriker := a.playerRow(nonStrikerID, bat)
	bowler := a.playerRow(bowlerID, bowl)
	a.arrive(striker)
	a.arrive(nonStriker)
	bowler.Bowled = true

	strikerOver := a.overRow(strikerID, bat)
	a.overRow(nonStrikerID, bat)
	bowlerOver := a.overRow(bowlerID, bowl)
	matchup := a.matchupRow(strikerID, bowlerID)
	part := a.partnership(strikerID, nonStrikerID)

	// ---- Step 2: innings totals. ----

	a.seq++
	legalIdx := a.legal + 1
	ballInOver := a.overLegal + 1
	a.inn.Runs += c.TotalRuns
	a.inn.Extras.Wides += d.Extras.Wides
	a.inn.Extras.NoBalls += d.Extras.NoBalls
	a.inn.Extras.Byes += d.Extras.Byes
	a.inn.Extras.LegByes += d.Extras.LegByes
	a.inn.Extras.Penalty += d.Extras.Penalty
	if c.Legal {
		a.legal++
		a.overLegal++
	}

	// ---- Step 3: striker. ----

	for _, b := range []*model.Batting{&striker.Batting, &strikerOver.Batting, &matchup.Batting} {
		addBatting(b, c)
	}
	part.BatterRuns += c.BatterRuns
	part.Extras += c.ExtrasRuns
	if part.Player1ID == strikerID {
		part.Player1Runs += c.BatterRuns
	} else {
		part.Player2Runs += c.BatterRuns
	}
	if c.FacedByBatter {
		part.Balls++
	}
	switch c.BatterBoundary {
	case classify.Four:
		part.Fours++
	case classify.Six:
		part.Sixes++
	}

	// ---- Step 4: bowler. ----

	for _, b := range []*model.Bowling{&bowler.Bowling, &bowlerOver.Bowling, &matchup.Bowling} {
		addBowling(b, c, d.Extras)
	}

	// ---- Step 5: wickets. ----

	coord := model.BallCoord{Over: a.over, Ball: ballInOver}
	for i, w := range c.Wickets {
		outID := outIDs[i]
		if outID != 0 {
			out := a.playerRow(outID, bat)
			a.arrive(out)
			out.Out = w.Kind.IsOut()
			out.DismissalKind = w.Kind.String()
			outOver := a.overRow(outID, bat)
			outOver.Out = out.Out
			if w.Bowler != "" {
				out.DismissedByID = bowlerID
			}
		}
		if w.Bowler != "" {
			bowler.Wickets++
			bowlerOver.Wickets++
			if outID == strikerID {
				matchup.Bowling.Wickets++
				matchup.Batting.Out = true
			}
		}

		credit := w.FieldingCredit()
		for _, f := range fielderIDs[i] {
			a.fielding = append(a.fielding, model.FieldingEvent{
				MatchID:       a.p.MatchID,
				InningsNumber: a.p.InningsNumber,
				FielderID:     f.id,
				DismissedID:   outID,
				BowlerID:      bowlerID,
				Over:          coord.Over,
				Ball:          coord.Ball,
				Kind:          w.Kind.String(),
				Substitute:    f.sub,
			})
			fr := a.playerRow(f.id, bowl)
			fo := a.overRow(f.id, bowl)
			for _, fl := range []*model.Fielding{&fr.Fielding, &fo.Fielding} {
				switch credit {
				case "catch":
					fl.Catches++
				case "run out":
					fl.RunOuts++
				case "stumping":
					fl.Stumpings++
				}
			}
		}

		if !w.Kind.CountsAsWicket() {
			continue
		}
		if outID == part.Player1ID || outID == part.Player2ID {
			part.Dismissal = true
		}
		a.inn.Wickets++
		a.inn.FallOfWickets = append(a.inn.FallOfWickets, model.FallOfWicket{
			Wickets:  a.inn.Wickets,
			Runs:     a.inn.Runs,
			At:       coord,
			PlayerID: outID,
		})
	}

	// ---- Step 6: delivery row and powerplay. ----

	row := model.Delivery{
		MatchID:        a.p.MatchID,
		InningsNumber:  a.p.InningsNumber,
		Seq:            a.seq,
		Over:           a.over,
		Ball:           ballInOver,
		LegalIndex:     legalIdx,
		BatterID:       strikerID,
		BowlerID:       bowlerID,
		NonStrikerID:   nonStrikerID,
		BatterRuns:     c.BatterRuns,
		ExtrasRuns:     c.ExtrasRuns,
		TotalRuns:      c.TotalRuns,
		Extras:         d.Extras,
		Legal:          c.Legal,
		Boundary:       c.BatterBoundary.String(),
		ExtrasBoundary: c.ExtrasBoundary.String(),
		Replacements:   d.Replacements,
		Review:         d.Review,
		PowerplayType:  a.powerplayAt(legalIdx),
	}
	if len(d.Wickets) > 0 {
		if row.Wickets, err = json.Marshal(d.Wickets); err != nil {
			return fmt.Errorf("encode wickets: %w", err)
		}
	}
	a.deliveries = append(a.deliveries, row)
	return nil
}

func addBatting(b *model.Batting, c classify.Classification) {
	b.Runs += c.BatterRuns
	if c.FacedByBatter {
		b.BallsFaced++
	}
	if c.BatterDot() {
		b.Dots++
	}
	switch c.BatterBoundary {
	case classify.Four:
		b.Fours++
	case classify.Six:
		b.Sixes++
	}
}

func addBowling(b *model.Bowling, c classify.Classification, e model.Extras) {
	b.RunsConceded += c.BowlerRuns
	if c.Legal {
		b.LegalBalls++
	}
	if c.BowlerDot() {
		b.Dots++
	}
	if e.Wides > 0 {
		b.Wides++
	}
	if e.NoBalls > 0 {
		b.NoBalls++
	}
	switch c.BatterBoundary {
	case classify.Four:
		b.FoursConceded++
	case classify.Six:
		b.SixesConceded++
	}
}

// Finish closes the innings and returns its rows. The Innings cannot be used
// afterwards.
func (a *Innings) Finish() (*model.InningsResult, error) {
	if a.state == InningsComplete {
		return nil, ErrInningsComplete
	}
	a.state = InningsComplete

	if a.p.PenaltyRuns != nil {
		a.inn.Runs += a.p.PenaltyRuns.Post
		a.inn.Extras.Penalty += a.p.PenaltyRuns.Post
	}
	a.inn.LegalDeliveries = a.legal
	a.inn.Overs = model.OversFromBalls(a.legal, a.bpo)

	// Maidens: a complete over from one bowler with nothing charged to them.
	for _, o := range a.overs {
		if o.TeamID != a.p.BowlingTeamID || o.Bowling.LegalBalls < a.bpo || o.RunsConceded != 0 {
			continue
		}
		o.Maidens = 1
		a.playerIdx[o.PlayerID].Maidens++
	}

	res := &model.InningsResult{
		Innings:    a.inn,
		Fielding:   a.fielding,
		Deliveries: a.deliveries,
	}
	for _, s := range a.players {
		s.NotOut = s.Batted && !s.Out
		res.Players = append(res.Players, *s)
	}
	for _, o := range a.overs {
		res.Overs = append(res.Overs, *o)
	}
	for _, m := range a.matchups {
		res.Matchups = append(res.Matchups, *m)
	}
	for _, p := range a.partnerships {
		res.Partnerships = append(res.Partnerships, *p)
	}
	return res, nil
}

// AggregateInnings walks a whole innings from the document.
func AggregateInnings(p Params, raw model.RawInnings) (*model.InningsResult, error) {
	p.Powerplays = raw.Powerplays
	p.Target = raw.Target
	p.Declared = raw.Declared
	p.Forfeited = raw.Forfeited
	p.SuperOver = raw.SuperOver
	p.PenaltyRuns = raw.PenaltyRuns
	p.Miscounted = raw.MiscountedOvers

	a := New(p)
	for _, o := range raw.Overs {
		if err := a.StartOver(o.Over); err != nil {
			return nil, err
		}
		for i, d := range o.Deliveries {
			if err := a.Add(d); err != nil {
				return nil, fmt.Errorf("over %d delivery %d: %w", o.Over, i+1, err)
			}
		}
	}
	return a.Finish()
}

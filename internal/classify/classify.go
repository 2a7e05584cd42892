// Package classify derives the facts the aggregator needs from one delivery:
// legality, runs breakdown, boundaries and wicket attribution.
package classify

import (
	"errors"
	"fmt"

	"github.com/pable/go-cricket-metrics/internal/model"
)

var (
	ErrUnknownWicketKind = errors.New("unknown wicket kind")
	ErrMalformedWicket   = errors.New("malformed wicket")
	ErrRunsMismatch      = errors.New("runs total does not match batter + extras")
)

// BoundaryKind is the boundary hit (if any) on a delivery.
type BoundaryKind int

const (
	None BoundaryKind = iota
	Four
	Six
)

func (b BoundaryKind) String() string {
	switch b {
	case Four:
		return "four"
	case Six:
		return "six"
	}
	return ""
}

// Boundary returns Four for exactly 4 runs and Six for exactly 6, unless the
// document flags the runs as not coming from a boundary.
func Boundary(runs int, nonBoundary bool) BoundaryKind {
	if nonBoundary {
		return None
	}
	switch runs {
	case 4:
		return Four
	case 6:
		return Six
	}
	return None
}

// IsLegal reports whether the delivery counts towards the over.
func IsLegal(e model.Extras) bool {
	return e.Wides == 0 && e.NoBalls == 0
}

// Classification is everything derived from a single delivery.
type Classification struct {
	Legal          bool
	BatterRuns     int
	ExtrasRuns     int
	TotalRuns      int
	BowlerRuns     int  // runs charged to the bowler: batter + wides + no-balls
	FacedByBatter  bool // false for wides
	BatterBoundary BoundaryKind
	ExtrasBoundary BoundaryKind
	Wickets        []Wicket
}

// BatterDot reports a ball faced with nothing scored off the bat.
func (c Classification) BatterDot() bool {
	return c.FacedByBatter && c.BatterRuns == 0
}

// BowlerDot reports a legal ball with nothing charged to the bowler.
func (c Classification) BowlerDot() bool {
	return c.Legal && c.BowlerRuns == 0
}

// Classify derives the Classification of d. Malformed runs or wickets are errors.
func Classify(d model.RawDelivery) (Classification, error) {
	if d.Runs.Total != d.Runs.Batter+d.Runs.Extras {
		return Classification{}, fmt.Errorf("%w: total %d, batter %d, extras %d",
			ErrRunsMismatch, d.Runs.Total, d.Runs.Batter, d.Runs.Extras)
	}
	c := Classification{
		Legal:         IsLegal(d.Extras),
		BatterRuns:    d.Runs.Batter,
		ExtrasRuns:    d.Runs.Extras,
		TotalRuns:     d.Runs.Total,
		BowlerRuns:    d.Runs.Batter + d.Extras.Wides + d.Extras.NoBalls,
		FacedByBatter: d.Extras.Wides == 0,
	}
	c.BatterBoundary = Boundary(d.Runs.Batter, d.Runs.NonBoundary)
	// Four byes or five wides to the rope are still recorded on the delivery row.
	if d.Runs.Batter == 0 {
		c.ExtrasBoundary = Boundary(d.Extras.Byes+d.Extras.LegByes, d.Runs.NonBoundary)
	}

	for i, w := range d.Wickets {
		wk, err := Attribute(w, d.Batter, d.Bowler)
		if err != nil {
			return Classification{}, fmt.Errorf("wicket %d: %w", i+1, err)
		}
		c.Wickets = append(c.Wickets, wk)
	}
	return c, nil
}

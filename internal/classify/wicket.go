package classify

import (
	"fmt"
	"strings"

	"github.com/pable/go-cricket-metrics/internal/model"
)

// WicketKind is the closed set of dismissal kinds.
type WicketKind int

const (
	Caught WicketKind = iota + 1
	CaughtAndBowled
	Bowled
	LBW
	HitWicket
	RunOut
	Stumped
	HandledBall
	ObstructingField
	HitTheBallTwice
	TimedOut
	RetiredOut
	RetiredNotOut
	RetiredHurt
)

var wicketKindNames = map[WicketKind]string{
	Caught:           "caught",
	CaughtAndBowled:  "caught and bowled",
	Bowled:           "bowled",
	LBW:              "lbw",
	HitWicket:        "hit wicket",
	RunOut:           "run out",
	Stumped:          "stumped",
	HandledBall:      "handled the ball",
	ObstructingField: "obstructing the field",
	HitTheBallTwice:  "hit the ball twice",
	TimedOut:         "timed out",
	RetiredOut:       "retired out",
	RetiredNotOut:    "retired not out",
	RetiredHurt:      "retired hurt",
}

var wicketKindByName = func() map[string]WicketKind {
	m := make(map[string]WicketKind, len(wicketKindNames))
	for k, name := range wicketKindNames {
		m[name] = k
	}
	return m
}()

func (k WicketKind) String() string {
	if s, ok := wicketKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("WicketKind(%d)", int(k))
}

// ParseWicketKind maps a document kind string to a WicketKind. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseWicketKind(s string) (WicketKind, error) {
	k, ok := wicketKindByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownWicketKind, s)
	}
	return k, nil
}

// CreditsBowler reports whether the bowler is credited with the wicket.
func (k WicketKind) CreditsBowler() bool {
	switch k {
	case Caught, CaughtAndBowled, Bowled, LBW, HitWicket, Stumped:
		return true
	}
	return false
}

// CountsAsWicket reports whether the dismissal adds to wickets lost and the
// fall of wickets. Only retired hurt does not.
func (k WicketKind) CountsAsWicket() bool {
	return k != RetiredHurt
}

// IsOut reports whether the dismissed batter's innings counts as out.
func (k WicketKind) IsOut() bool {
	return k != RetiredHurt && k != RetiredNotOut
}

// strikerOnly kinds can only dismiss the batter on strike.
func (k WicketKind) strikerOnly() bool {
	switch k {
	case Caught, CaughtAndBowled, Bowled, LBW, HitWicket, Stumped:
		return true
	}
	return false
}

// Wicket is one attributed dismissal.
type Wicket struct {
	Kind      WicketKind
	PlayerOut string
	Bowler    string // credited bowler, "" when none
	Fielders  []model.Fielder
}

// FieldingCredit is the counter a credited fielder's dismissal lands in.
func (w Wicket) FieldingCredit() string {
	switch w.Kind {
	case Caught, CaughtAndBowled:
		return "catch"
	case RunOut:
		return "run out"
	case Stumped:
		return "stumping"
	}
	return ""
}

// Attribute resolves who is out, which bowler (if any) is credited and which
// fielders are credited for one wicket on a delivery.
func Attribute(w model.RawWicket, striker, bowler string) (Wicket, error) {
	kind, err := ParseWicketKind(w.Kind)
	if err != nil {
		return Wicket{}, err
	}
	out := Wicket{Kind: kind, PlayerOut: w.PlayerOut}
	if w.PlayerOut == "" && kind != RetiredHurt {
		return Wicket{}, fmt.Errorf("%w: %s with no player out", ErrMalformedWicket, kind)
	}
	if kind.strikerOnly() && w.PlayerOut != striker {
		return Wicket{}, fmt.Errorf("%w: %s dismisses %q but %q is on strike",
			ErrMalformedWicket, kind, w.PlayerOut, striker)
	}
	if kind.CreditsBowler() {
		out.Bowler = bowler
	}

	switch kind {
	case Caught, Stumped:
		if len(w.Fielders) != 1 || w.Fielders[0].Name == "" {
			return Wicket{}, fmt.Errorf("%w: %s needs exactly one fielder, got %d",
				ErrMalformedWicket, kind, len(w.Fielders))
		}
		out.Fielders = []model.Fielder{w.Fielders[0]}
	case CaughtAndBowled:
		out.Fielders = []model.Fielder{{Name: bowler}}
	case RunOut:
		for _, f := range w.Fielders {
			if f.Name == "" {
				return Wicket{}, fmt.Errorf("%w: run out with unnamed fielder", ErrMalformedWicket)
			}
			out.Fielders = append(out.Fielders, f)
		}
	}
	return out, nil
}

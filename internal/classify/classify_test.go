package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cricket-metrics/internal/model"
)

// ball builds a delivery from striker "A" bowled by "X" with the given runs.
func ball(batter int, extras model.Extras) model.RawDelivery {
	return model.RawDelivery{
		Batter: "A", NonStriker: "B", Bowler: "X",
		Runs:   model.Runs{Batter: batter, Extras: extras.Sum(), Total: batter + extras.Sum()},
		Extras: extras,
	}
}

func TestBoundary(t *testing.T) {
	cases := []struct {
		runs        int
		nonBoundary bool
		want        BoundaryKind
	}{
		{0, false, None},
		{3, false, None},
		{4, false, Four},
		{5, false, None},
		{6, false, Six},
		{4, true, None},
		{6, true, None},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Boundary(c.runs, c.nonBoundary), "runs=%d nb=%v", c.runs, c.nonBoundary)
	}
}

func TestClassify_Legality(t *testing.T) {
	cases := []struct {
		name       string
		extras     model.Extras
		legal      bool
		faced      bool
		bowlerRuns int
	}{
		{"clean", model.Extras{}, true, true, 1},
		{"wide", model.Extras{Wides: 1}, false, false, 2},
		{"no ball", model.Extras{NoBalls: 1}, false, true, 2},
		{"bye", model.Extras{Byes: 2}, true, true, 1},
		{"leg bye", model.Extras{LegByes: 1}, true, true, 1},
		{"penalty", model.Extras{Penalty: 5}, true, true, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Classify(ball(1, c.extras))
			require.NoError(t, err)
			assert.Equal(t, c.legal, got.Legal)
			assert.Equal(t, c.faced, got.FacedByBatter)
			assert.Equal(t, c.bowlerRuns, got.BowlerRuns)
		})
	}
}

func TestClassify_RunsMismatch(t *testing.T) {
	d := ball(4, model.Extras{})
	d.Runs.Total = 5
	_, err := Classify(d)
	if !errors.Is(err, ErrRunsMismatch) {
		t.Fatalf("want ErrRunsMismatch, got %v", err)
	}
}

func TestClassify_Boundaries(t *testing.T) {
	got, err := Classify(ball(6, model.Extras{}))
	require.NoError(t, err)
	assert.Equal(t, Six, got.BatterBoundary)
	assert.Equal(t, None, got.ExtrasBoundary)

	got, err = Classify(ball(0, model.Extras{Byes: 4}))
	require.NoError(t, err)
	assert.Equal(t, None, got.BatterBoundary)
	assert.Equal(t, Four, got.ExtrasBoundary)
	assert.True(t, got.BatterDot())
	assert.True(t, got.BowlerDot(), "byes are not charged to the bowler")

	d := ball(4, model.Extras{})
	d.Runs.NonBoundary = true
	got, err = Classify(d)
	require.NoError(t, err)
	assert.Equal(t, None, got.BatterBoundary)
}

func TestClassify_Dot(t *testing.T) {
	got, err := Classify(ball(0, model.Extras{}))
	require.NoError(t, err)
	assert.True(t, got.BatterDot())
	assert.True(t, got.BowlerDot())

	got, err = Classify(ball(0, model.Extras{Wides: 1}))
	require.NoError(t, err)
	assert.False(t, got.BatterDot(), "a wide is not faced")
	assert.False(t, got.BowlerDot())

	got, err = Classify(ball(0, model.Extras{NoBalls: 1}))
	require.NoError(t, err)
	assert.True(t, got.BatterDot())
	assert.False(t, got.BowlerDot())
}

func TestParseWicketKind(t *testing.T) {
	for kind, name := range wicketKindNames {
		got, err := ParseWicketKind(name)
		require.NoError(t, err)
		assert.Equal(t, kind, got)
	}
	got, err := ParseWicketKind("  Caught And Bowled ")
	require.NoError(t, err)
	assert.Equal(t, CaughtAndBowled, got)

	_, err = ParseWicketKind("mankad")
	assert.ErrorIs(t, err, ErrUnknownWicketKind)
}

func TestAttribute(t *testing.T) {
	cases := []struct {
		name      string
		w         model.RawWicket
		bowler    string
		fielders  []string
		countsWkt bool
		isOut     bool
		err       error
	}{
		{name: "bowled", w: model.RawWicket{Kind: "bowled", PlayerOut: "A"}, bowler: "X", countsWkt: true, isOut: true},
		{name: "lbw", w: model.RawWicket{Kind: "lbw", PlayerOut: "A"}, bowler: "X", countsWkt: true, isOut: true},
		{name: "hit wicket", w: model.RawWicket{Kind: "hit wicket", PlayerOut: "A"}, bowler: "X", countsWkt: true, isOut: true},
		{
			name:   "caught",
			w:      model.RawWicket{Kind: "caught", PlayerOut: "A", Fielders: []model.Fielder{{Name: "F"}}},
			bowler: "X", fielders: []string{"F"}, countsWkt: true, isOut: true,
		},
		{
			name:   "caught and bowled credits the bowler as fielder",
			w:      model.RawWicket{Kind: "caught and bowled", PlayerOut: "A"},
			bowler: "X", fielders: []string{"X"}, countsWkt: true, isOut: true,
		},
		{
			name:   "stumped",
			w:      model.RawWicket{Kind: "stumped", PlayerOut: "A", Fielders: []model.Fielder{{Name: "K"}}},
			bowler: "X", fielders: []string{"K"}, countsWkt: true, isOut: true,
		},
		{
			name:     "run out of the non-striker",
			w:        model.RawWicket{Kind: "run out", PlayerOut: "B", Fielders: []model.Fielder{{Name: "F"}, {Name: "G"}}},
			fielders: []string{"F", "G"}, countsWkt: true, isOut: true,
		},
		{name: "run out without fielders", w: model.RawWicket{Kind: "run out", PlayerOut: "A"}, countsWkt: true, isOut: true},
		{name: "handled the ball", w: model.RawWicket{Kind: "handled the ball", PlayerOut: "A"}, countsWkt: true, isOut: true},
		{name: "obstructing", w: model.RawWicket{Kind: "obstructing the field", PlayerOut: "B"}, countsWkt: true, isOut: true},
		{name: "timed out", w: model.RawWicket{Kind: "timed out", PlayerOut: "C"}, countsWkt: true, isOut: true},
		{name: "retired out", w: model.RawWicket{Kind: "retired out", PlayerOut: "A"}, countsWkt: true, isOut: true},
		{name: "retired not out", w: model.RawWicket{Kind: "retired not out", PlayerOut: "A"}, countsWkt: true},
		{name: "retired hurt", w: model.RawWicket{Kind: "retired hurt", PlayerOut: "A"}},
		{name: "unknown kind", w: model.RawWicket{Kind: "spirited away", PlayerOut: "A"}, err: ErrUnknownWicketKind},
		{name: "caught without fielder", w: model.RawWicket{Kind: "caught", PlayerOut: "A"}, err: ErrMalformedWicket},
		{
			name: "stumped with two fielders",
			w:    model.RawWicket{Kind: "stumped", PlayerOut: "A", Fielders: []model.Fielder{{Name: "K"}, {Name: "L"}}},
			err:  ErrMalformedWicket,
		},
		{name: "bowled non-striker", w: model.RawWicket{Kind: "bowled", PlayerOut: "B"}, err: ErrMalformedWicket},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Attribute(c.w, "A", "X")
			if c.err != nil {
				assert.ErrorIs(t, err, c.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.bowler, got.Bowler)
			var names []string
			for _, f := range got.Fielders {
				names = append(names, f.Name)
			}
			assert.Equal(t, c.fielders, names)
			assert.Equal(t, c.countsWkt, got.Kind.CountsAsWicket())
			assert.Equal(t, c.isOut, got.Kind.IsOut())
		})
	}
}

func TestClassify_WicketErrorIsWrapped(t *testing.T) {
	d := ball(0, model.Extras{})
	d.Wickets = []model.RawWicket{{Kind: "levitated", PlayerOut: "A"}}
	_, err := Classify(d)
	assert.ErrorIs(t, err, ErrUnknownWicketKind)
	assert.Contains(t, err.Error(), "wicket 1")
}

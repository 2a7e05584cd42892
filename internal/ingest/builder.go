package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pable/go-cricket-metrics/internal/dimension"
	"github.com/pable/go-cricket-metrics/internal/model"
)

var (
	ErrTeamArity    = errors.New("a match needs exactly two teams")
	ErrMissingField = errors.New("required header field missing")
	ErrUnknownTeam  = errors.New("team is not one of the match teams")
)

// Roster maps the names used inside a document to resolved ids.
type Roster struct {
	Teams   map[string]int64 // team name -> team id
	Players map[string]int64 // person name -> player id
}

func (r *Roster) team(name string) (int64, error) {
	id, ok := r.Teams[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTeam, name)
	}
	return id, nil
}

func (r *Roster) person(name string) (int64, error) {
	id, ok := r.Players[name]
	if !ok {
		return 0, fmt.Errorf("%w: registry entry for %q", ErrMissingField, name)
	}
	return id, nil
}

// BuildMatch resolves every dimension the header names and assembles the
// match record. defaultBPO applies when the document omits balls_per_over.
func BuildMatch(ctx context.Context, r dimension.Resolver, doc *model.MatchDocument, matchID string, defaultBPO int) (*model.Match, *Roster, error) {
	info := &doc.Info
	switch {
	case len(info.Teams) == 0:
		return nil, nil, fmt.Errorf("%w: teams", ErrMissingField)
	case len(info.Teams) != 2:
		return nil, nil, fmt.Errorf("%w: got %d", ErrTeamArity, len(info.Teams))
	case info.Teams[0] == info.Teams[1]:
		return nil, nil, fmt.Errorf("%w: both teams are %q", ErrTeamArity, info.Teams[0])
	case len(info.Dates) == 0:
		return nil, nil, fmt.Errorf("%w: dates", ErrMissingField)
	case info.MatchType == "":
		return nil, nil, fmt.Errorf("%w: match_type", ErrMissingField)
	case info.Registry.People == nil:
		return nil, nil, fmt.Errorf("%w: registry", ErrMissingField)
	}

	season := string(info.Season)
	m := &model.Match{
		ID:           matchID,
		Dates:        info.Dates,
		Format:       info.MatchType,
		FormatNumber: info.MatchTypeNumber,
		Gender:       info.Gender,
		Season:       season,
		TeamType:     info.TeamType,
		BallsPerOver: info.BallsPerOver,
		Overs:        info.Overs,
		Event:        info.Event,
		Officials:    info.Officials,
		Missing:      info.Missing,
		BowlOut:      info.BowlOut,
	}
	if m.BallsPerOver <= 0 {
		m.BallsPerOver = defaultBPO
	}
	if m.BallsPerOver <= 0 {
		m.BallsPerOver = model.DefaultBallsPerOver
	}

	var err error

	// ---- Tournament and stadium ----

	if key := dimension.TournamentKey(info.Event.Name, season, info.Teams); key != "" {
		m.TournamentID, err = r.Resolve(ctx, dimension.Tournament, key, dimension.Attributes{
			Gender: info.Gender, Format: info.MatchType, Season: season,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("resolve tournament %q: %w", key, err)
		}
	}
	if info.Venue != "" {
		m.StadiumID, err = r.Resolve(ctx, dimension.Stadium, info.Venue, dimension.Attributes{City: info.City})
		if err != nil {
			return nil, nil, fmt.Errorf("resolve stadium %q: %w", info.Venue, err)
		}
	}

	// ---- Teams ----

	roster := &Roster{Teams: make(map[string]int64, 2), Players: make(map[string]int64, len(info.Registry.People))}
	for _, name := range info.Teams {
		id, err := r.Resolve(ctx, dimension.Team, name, dimension.Attributes{Gender: info.Gender})
		if err != nil {
			return nil, nil, fmt.Errorf("resolve team %q: %w", name, err)
		}
		roster.Teams[name] = id
	}
	m.Team1ID, m.Team2ID = roster.Teams[info.Teams[0]], roster.Teams[info.Teams[1]]

	// ---- People, in name order so resolution order is stable ----

	names := make([]string, 0, len(info.Registry.People))
	for name := range info.Registry.People {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		regID := info.Registry.People[name]
		id, err := r.Resolve(ctx, dimension.Player, regID, dimension.Attributes{Name: name, Gender: info.Gender})
		if err != nil {
			return nil, nil, fmt.Errorf("resolve player %q: %w", name, err)
		}
		roster.Players[name] = id
	}

	// ---- Header fields with names substituted by ids ----

	if len(info.Players) > 0 {
		m.Players = make(map[int64][]int64, len(info.Players))
		for teamName, squad := range info.Players {
			teamID, err := roster.team(teamName)
			if err != nil {
				return nil, nil, fmt.Errorf("players: %w", err)
			}
			for _, p := range squad {
				pid, err := roster.person(p)
				if err != nil {
					return nil, nil, fmt.Errorf("players: %w", err)
				}
				m.Players[teamID] = append(m.Players[teamID], pid)
			}
		}
	}
	for _, p := range info.PlayerOfMatch {
		pid, err := roster.person(p)
		if err != nil {
			return nil, nil, fmt.Errorf("player of match: %w", err)
		}
		m.PlayerOfMatch = append(m.PlayerOfMatch, pid)
	}
	if len(info.Supersubs) > 0 {
		m.Supersubs = make(map[int64]int64, len(info.Supersubs))
		for teamName, p := range info.Supersubs {
			teamID, err := roster.team(teamName)
			if err != nil {
				return nil, nil, fmt.Errorf("supersubs: %w", err)
			}
			if m.Supersubs[teamID], err = roster.person(p); err != nil {
				return nil, nil, fmt.Errorf("supersubs: %w", err)
			}
		}
	}

	m.Toss = model.Toss{Decision: info.Toss.Decision, Uncontested: info.Toss.Uncontested}
	if info.Toss.Winner != "" {
		if m.Toss.WinnerID, err = roster.team(info.Toss.Winner); err != nil {
			return nil, nil, fmt.Errorf("toss: %w", err)
		}
	}

	out := info.Outcome
	m.Outcome = model.Outcome{
		Result:    out.Result,
		Method:    out.Method,
		ByRuns:    out.By.Runs,
		ByWickets: out.By.Wickets,
		ByInnings: out.By.Innings,
	}
	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{out.Winner, &m.Outcome.WinnerID},
		{out.Eliminator, &m.Outcome.EliminatorID},
		{out.BowlOut, &m.Outcome.BowlOutID},
	} {
		if f.name == "" {
			continue
		}
		if *f.dst, err = roster.team(f.name); err != nil {
			return nil, nil, fmt.Errorf("outcome: %w", err)
		}
	}

	return m, roster, nil
}

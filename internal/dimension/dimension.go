// Package dimension defines how teams, players, stadiums and tournaments are
// resolved to stable surrogate ids, independent of the storage backend.
package dimension

import (
	"context"
	"errors"
	"fmt"
)

var ErrEmptyKey = errors.New("empty natural key")

// Kind is a dimension table.
type Kind int

const (
	Team Kind = iota + 1
	Player
	Stadium
	Tournament
)

func (k Kind) String() string {
	switch k {
	case Team:
		return "team"
	case Player:
		return "player"
	case Stadium:
		return "stadium"
	case Tournament:
		return "tournament"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Table is the SQL table backing the kind.
func (k Kind) Table() string {
	switch k {
	case Team:
		return "teams"
	case Player:
		return "players"
	case Stadium:
		return "stadiums"
	case Tournament:
		return "tournaments"
	}
	return ""
}

// KeyColumn is the natural-key column of the kind's table.
func (k Kind) KeyColumn() string {
	switch k {
	case Player:
		return "registry_id"
	}
	return "name"
}

// Attributes are stored with a dimension the first time it is created. They
// are never merged into an existing row.
type Attributes struct {
	Name   string // display name; players only, other kinds use the key
	Gender string
	City   string // stadiums
	Format string // tournaments
	Season string // tournaments
}

// Resolver finds a dimension by natural key or creates it. Implementations
// must be safe for concurrent use, and concurrent calls for the same key must
// return the same id.
type Resolver interface {
	Resolve(ctx context.Context, kind Kind, key string, attrs Attributes) (int64, error)
}

// TournamentKey is the natural key of a tournament: the event name plus
// season, or "<team1> v <team2> <season>" for matches outside any event.
func TournamentKey(event, season string, teams []string) string {
	if event != "" {
		if season == "" {
			return event
		}
		return event + " " + season
	}
	if len(teams) == 2 {
		return fmt.Sprintf("%s v %s %s", teams[0], teams[1], season)
	}
	return ""
}

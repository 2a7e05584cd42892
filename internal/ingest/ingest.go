// Package ingest turns match documents into entity graphs and hands them to a
// persistence sink, one document at a time or as a parallel batch.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/pable/go-cricket-metrics/internal/aggregator"
	"github.com/pable/go-cricket-metrics/internal/dimension"
	"github.com/pable/go-cricket-metrics/internal/metrics"
	"github.com/pable/go-cricket-metrics/internal/model"
	"github.com/pable/go-cricket-metrics/internal/parser"
	"github.com/pable/go-cricket-metrics/internal/source"
)

// ErrMatchExists is returned by a Sink when the match id is already stored.
var ErrMatchExists = errors.New("match already stored")

// Sink persists one match graph atomically.
type Sink interface {
	SaveMatch(ctx context.Context, g *model.MatchGraph) error
}

// Store is everything ingestion needs from a backend.
type Store interface {
	Sink
	dimension.Resolver
	MatchExists(ctx context.Context, id string) (bool, error)
	MatchIDs(ctx context.Context) ([]string, error)
	SaveRun(ctx context.Context, run *model.IngestRun) error
}

// Options tune ingestion.
type Options struct {
	Workers         int           // parallel documents in a batch
	DocumentTimeout time.Duration // per-document deadline, 0 for none
	Validate        bool          // check documents against the JSON schema first
	BallsPerOver    int           // used when a document omits balls_per_over
	Logger          *slog.Logger
	Metrics         *metrics.Ingest
}

// Status is what happened to one document.
type Status string

const (
	StatusIngested Status = "ingested"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

// Result describes one processed document.
type Result struct {
	Source     string
	MatchID    string
	Status     Status
	Innings    int
	Deliveries int
	Err        error
}

// Ingester processes documents against one store.
type Ingester struct {
	store    Store
	resolver dimension.Resolver
	opts     Options
	log      *slog.Logger

	seenMu sync.Mutex
	seen   *bloom.BloomFilter
}

// New returns an Ingester. Dimension lookups go through a per-key Guard.
func New(store Store, opts Options) *Ingester {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Ingester{
		store:    store,
		resolver: dimension.NewGuard(store),
		opts:     opts,
		log:      log,
	}
}

// Preload seeds the duplicate filter with every stored match id.
func (i *Ingester) Preload(ctx context.Context) error {
	ids, err := i.store.MatchIDs(ctx)
	if err != nil {
		return fmt.Errorf("load match ids: %w", err)
	}
	n := uint(len(ids)) * 2
	if n < 10000 {
		n = 10000
	}
	f := bloom.NewWithEstimates(n, 0.001)
	for _, id := range ids {
		f.AddString(id)
	}
	i.seenMu.Lock()
	i.seen = f
	i.seenMu.Unlock()
	i.log.Debug("duplicate filter loaded", "matches", len(ids))
	return nil
}

// stored reports whether a match id is already persisted. The bloom filter
// rules out most new documents without a query.
func (i *Ingester) stored(ctx context.Context, id string) (bool, error) {
	i.seenMu.Lock()
	maybe := i.seen == nil || i.seen.TestString(id)
	i.seenMu.Unlock()
	if !maybe {
		return false, nil
	}
	return i.store.MatchExists(ctx, id)
}

func (i *Ingester) remember(id string) {
	i.seenMu.Lock()
	if i.seen != nil {
		i.seen.AddString(id)
	}
	i.seenMu.Unlock()
}

// Build parses a document and derives its full entity graph. Dimensions are
// resolved against the store; nothing else is written.
func (i *Ingester) Build(ctx context.Context, doc source.Document) (*model.MatchGraph, error) {
	matchID := parser.Hash(doc.Data)
	parsed, err := parser.Parse(doc.Data, i.opts.Validate)
	if err != nil {
		return nil, err
	}
	match, roster, err := BuildMatch(ctx, i.resolver, parsed, matchID, i.opts.BallsPerOver)
	if err != nil {
		return nil, err
	}

	g := &model.MatchGraph{Match: *match, Source: doc.Name, Document: doc.Data}
	for n, raw := range parsed.Innings {
		battingID, err := roster.team(raw.Team)
		if err != nil {
			return nil, fmt.Errorf("innings %d: %w", n+1, err)
		}
		bowlingID := match.Team1ID
		if battingID == match.Team1ID {
			bowlingID = match.Team2ID
		}
		res, err := aggregator.AggregateInnings(aggregator.Params{
			MatchID:       matchID,
			InningsNumber: n + 1,
			BattingTeamID: battingID,
			BowlingTeamID: bowlingID,
			BallsPerOver:  match.BallsPerOver,
			Players:       roster.Players,
		}, raw)
		if err != nil {
			return nil, fmt.Errorf("innings %d: %w", n+1, err)
		}
		g.Innings = append(g.Innings, *res)
	}
	return g, nil
}

// IngestDocument builds and stores one document. A document already stored
// is skipped, not an error.
func (i *Ingester) IngestDocument(ctx context.Context, doc source.Document) Result {
	start := time.Now()
	res := i.ingest(ctx, doc)
	res.Source = doc.Name

	log := i.log.With("source", doc.Name, "match", shortID(res.MatchID))
	switch res.Status {
	case StatusIngested:
		log.Debug("ingested", "innings", res.Innings, "deliveries", res.Deliveries, "took", time.Since(start))
	case StatusSkipped:
		log.Debug("already stored")
	case StatusFailed:
		log.Warn("document failed", "err", res.Err)
	}
	i.opts.Metrics.Observe(string(res.Status), res.Innings, res.Deliveries, time.Since(start))
	return res
}

func (i *Ingester) ingest(ctx context.Context, doc source.Document) Result {
	res := Result{MatchID: parser.Hash(doc.Data)}
	fail := func(err error) Result {
		res.Status, res.Err = StatusFailed, err
		return res
	}

	exists, err := i.stored(ctx, res.MatchID)
	if err != nil {
		return fail(err)
	}
	if exists {
		res.Status = StatusSkipped
		return res
	}

	g, err := i.Build(ctx, doc)
	if err != nil {
		return fail(err)
	}
	if err := i.store.SaveMatch(ctx, g); err != nil {
		if errors.Is(err, ErrMatchExists) {
			// A concurrent worker stored the same bytes first.
			res.Status = StatusSkipped
			return res
		}
		return fail(fmt.Errorf("save match: %w", err))
	}
	i.remember(res.MatchID)

	res.Status = StatusIngested
	res.Innings = len(g.Innings)
	for _, inn := range g.Innings {
		res.Deliveries += len(inn.Deliveries)
	}
	return res
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pable/go-cricket-metrics/internal/model"
	"github.com/pable/go-cricket-metrics/internal/source"
)

// Summary is the outcome of one batch run.
type Summary struct {
	Run        model.IngestRun
	Innings    int
	Deliveries int
	Failures   []Result // in completion order
}

// Run ingests every document of src with up to Options.Workers documents in
// flight. A failed document is recorded and the batch continues; only
// cancellation or a source error stops it early.
func (i *Ingester) Run(ctx context.Context, src source.Source) (*Summary, error) {
	if err := i.Preload(ctx); err != nil {
		return nil, err
	}

	sum := &Summary{Run: model.IngestRun{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Sources:   src.String(),
	}}
	log := i.log.With("run", sum.Run.ID)
	log.Info("ingest started", "source", src.String(), "workers", i.opts.Workers)

	var mu sync.Mutex
	record := func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		sum.Run.Documents++
		switch r.Status {
		case StatusIngested:
			sum.Run.Ingested++
			sum.Innings += r.Innings
			sum.Deliveries += r.Deliveries
		case StatusSkipped:
			sum.Run.Skipped++
		case StatusFailed:
			sum.Run.Failed++
			sum.Failures = append(sum.Failures, r)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.opts.Workers)

	walkErr := src.Walk(gctx, func(doc source.Document) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			dctx := gctx
			if i.opts.DocumentTimeout > 0 {
				var cancel context.CancelFunc
				dctx, cancel = context.WithTimeout(gctx, i.opts.DocumentTimeout)
				defer cancel()
			}
			record(i.IngestDocument(dctx, doc))
			return nil
		})
		return nil
	})
	waitErr := g.Wait()

	sum.Run.FinishedAt = time.Now().UTC()
	if err := i.store.SaveRun(context.WithoutCancel(ctx), &sum.Run); err != nil {
		log.Warn("record run failed", "err", err)
	}
	log.Info("ingest finished",
		"documents", sum.Run.Documents,
		"ingested", sum.Run.Ingested,
		"skipped", sum.Run.Skipped,
		"failed", sum.Run.Failed,
		"took", sum.Run.FinishedAt.Sub(sum.Run.StartedAt))

	if walkErr != nil {
		return sum, fmt.Errorf("walk %s: %w", src, walkErr)
	}
	if waitErr != nil {
		return sum, waitErr
	}
	return sum, ctx.Err()
}

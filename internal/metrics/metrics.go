// Package metrics records ingestion counters in a prometheus registry. A CLI
// run has no scrape endpoint, so the registry is written to a node-exporter
// textfile when one is configured.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest holds the ingestion collectors. A nil *Ingest is valid and records nothing.
type Ingest struct {
	Registry *prometheus.Registry

	documents  *prometheus.CounterVec
	innings    prometheus.Counter
	deliveries prometheus.Counter
	duration   prometheus.Histogram
}

// Document outcomes.
const (
	OutcomeIngested = "ingested"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// NewIngest creates the collectors on a fresh registry.
func NewIngest() *Ingest {
	m := &Ingest{
		Registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cricmetrics",
			Name:      "documents_total",
			Help:      "Match documents processed, by outcome.",
		}, []string{"outcome"}),
		innings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cricmetrics",
			Name:      "innings_total",
			Help:      "Innings aggregated and stored.",
		}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cricmetrics",
			Name:      "deliveries_total",
			Help:      "Deliveries aggregated and stored.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cricmetrics",
			Name:      "document_duration_seconds",
			Help:      "Time to parse, aggregate and store one document.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
	}
	m.Registry.MustRegister(m.documents, m.innings, m.deliveries, m.duration)
	return m
}

// Observe records one processed document.
func (m *Ingest) Observe(outcome string, innings, deliveries int, took time.Duration) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(outcome).Inc()
	m.innings.Add(float64(innings))
	m.deliveries.Add(float64(deliveries))
	m.duration.Observe(took.Seconds())
}

// WriteTextfile writes the registry in the text exposition format.
func (m *Ingest) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

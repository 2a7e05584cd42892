package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/ingest"
	"github.com/pable/go-cricket-metrics/internal/metrics"
	"github.com/pable/go-cricket-metrics/internal/source"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path|s3://bucket/prefix>...",
	Short: "Ingest match documents into the metrics database",
	Long: `Ingest Cricsheet JSON match documents. Each argument may be a single
.json or .json.gz file, a directory tree, a .zip archive, or an S3 location.
Documents are processed in parallel; a document that is already stored is
skipped and a malformed one is reported without stopping the batch.`,
	Example: `  cricmetrics ingest ./t20s_json
  cricmetrics ingest --workers 8 all_json.zip
  cricmetrics ingest s3://cricket-archive/2024/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("workers", 0, "documents processed in parallel (default: number of CPUs)")
	ingestCmd.Flags().Bool("validate", true, "check documents against the JSON schema before ingesting")
	ingestCmd.Flags().Duration("timeout", 0, "per-document deadline (default 30s)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var srcs source.Multi
	for _, loc := range args {
		src, err := source.Open(ctx, loc, source.S3Options{Region: cfg.S3.Region, Endpoint: cfg.S3.Endpoint})
		if err != nil {
			return fmt.Errorf("open %s: %w", loc, err)
		}
		srcs = append(srcs, src)
	}
	return ingestSource(ctx, srcs)
}

// ingestSource runs one batch against the configured backend and prints its summary.
func ingestSource(ctx context.Context, src source.Source) error {
	store, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.NewIngest()
	ing := ingest.New(store, ingest.Options{
		Workers:         cfg.Ingest.Workers,
		DocumentTimeout: cfg.Ingest.DocumentTimeout,
		Validate:        cfg.Ingest.Validate,
		BallsPerOver:    cfg.Ingest.BallsPerOver,
		Logger:          logger,
		Metrics:         m,
	})

	fmt.Fprintf(os.Stdout, "Ingesting %s...\n", src)
	sum, runErr := ing.Run(ctx, src)
	if sum != nil {
		printIngestSummary(os.Stdout, sum)
	}
	if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("metrics not written", "err", err)
	}
	if runErr != nil {
		return runErr
	}
	if sum.Run.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", sum.Run.Failed, sum.Run.Documents)
	}
	return nil
}

const maxListedFailures = 20

func printIngestSummary(w io.Writer, sum *ingest.Summary) {
	r := sum.Run
	took := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(w, "\n%s documents in %s: %s ingested, %s already stored, %s failed\n",
		humanize.Comma(int64(r.Documents)), took,
		humanize.Comma(int64(r.Ingested)), humanize.Comma(int64(r.Skipped)), humanize.Comma(int64(r.Failed)))
	if r.Ingested > 0 {
		fmt.Fprintf(w, "%s innings, %s deliveries\n",
			humanize.Comma(int64(sum.Innings)), humanize.Comma(int64(sum.Deliveries)))
	}
	for i, f := range sum.Failures {
		if i == maxListedFailures {
			fmt.Fprintf(w, "  ... and %d more\n", len(sum.Failures)-maxListedFailures)
			break
		}
		reason := f.Err.Error()
		if errors.Is(f.Err, context.DeadlineExceeded) {
			reason = "timed out"
		}
		fmt.Fprintf(w, "  FAIL %s: %s\n", f.Source, reason)
	}
	fmt.Fprintf(w, "Run %s\n", r.ID)
}

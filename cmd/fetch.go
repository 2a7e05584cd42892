package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-cricket-metrics/internal/config"
	"github.com/pable/go-cricket-metrics/internal/cricsheet"
	"github.com/pable/go-cricket-metrics/internal/source"
)

var (
	fetchArchive string
	fetchDir     string
	fetchKeep    bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a Cricsheet archive and ingest it",
	Long: fmt.Sprintf(`Download a JSON match archive from Cricsheet and ingest every document in it.

Known archive names: %s.
Any other name is requested as <name>_json.zip.`, strings.Join(archiveNames(), ", ")),
	Example: `  cricmetrics fetch --archive t20s
  cricmetrics fetch --archive ipl --keep`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchArchive, "archive", "recent", "archive to download")
	fetchCmd.Flags().StringVar(&fetchDir, "dir", "", "download directory (default: next to the database)")
	fetchCmd.Flags().BoolVar(&fetchKeep, "keep", false, "keep the downloaded archive after ingesting")
	fetchCmd.Flags().Int("workers", 0, "documents processed in parallel (default: number of CPUs)")
	fetchCmd.Flags().Bool("validate", true, "check documents against the JSON schema before ingesting")
}

func runFetch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dir := fetchDir
	if dir == "" {
		base := cfg.DB.Path
		if cfg.DB.Driver != config.DriverSQLite {
			base = config.DefaultDBPath()
		}
		dir = filepath.Join(filepath.Dir(base), "archives")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	client := cricsheet.NewClient(cfg.Cricsheet.BaseURL)
	fmt.Fprintf(os.Stdout, "Downloading %s...\n", cricsheet.ArchiveFile(fetchArchive))
	path, err := client.Download(ctx, fetchArchive, dir)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if !fetchKeep {
		defer os.Remove(path)
	}
	return ingestSource(ctx, source.Zip(path))
}

func archiveNames() []string {
	names := make([]string, 0, len(cricsheet.Archives))
	for n := range cricsheet.Archives {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

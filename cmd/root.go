package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pable/go-cricket-metrics/internal/config"
	"github.com/pable/go-cricket-metrics/internal/ingest"
	"github.com/pable/go-cricket-metrics/internal/pgstore"
	"github.com/pable/go-cricket-metrics/internal/storage"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cricmetrics",
	Short: "Cricket ball-by-ball metrics tool",
	Long: `Ingest ball-by-ball cricket match documents (Cricsheet JSON) and store
per-innings batting, bowling, fielding, partnership and matchup statistics.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default .cricmetrics.yaml in . or $HOME)")
	pf.String("db", "", "path to SQLite database (default ~/.cricmetrics/metrics.db)")
	pf.String("driver", "", "storage driver: sqlite or postgres")
	pf.String("db-url", "", "PostgreSQL connection URL")
	pf.String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(playerCmd)
	rootCmd.AddCommand(matchupCmd)
	rootCmd.AddCommand(rawCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(shellCmd)
}

// flagKeys maps command line flags onto config keys. A flag only overrides
// the config when it is set explicitly.
var flagKeys = map[string]string{
	"db":        "db.path",
	"driver":    "db.driver",
	"db-url":    "db.url",
	"log-level": "logging.level",
	"workers":   "ingest.workers",
	"validate":  "ingest.validate",
	"timeout":   "ingest.document_timeout",
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	l, err := config.NewLogger(os.Stderr, c.Logging)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	slog.SetDefault(l)
	return nil
}

// backend is an ingestion store that can be closed.
type backend interface {
	ingest.Store
	Close() error
}

// openBackend opens the configured store for ingestion.
func openBackend(ctx context.Context) (backend, error) {
	if cfg.DB.Driver == config.DriverPostgres {
		s, err := pgstore.Open(ctx, cfg.DB.URL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	}
	return openSQLite()
}

// openSQLite opens the SQLite store. Query commands only run against SQLite.
func openSQLite() (*storage.DB, error) {
	if cfg.DB.Driver != config.DriverSQLite {
		return nil, fmt.Errorf("this command reads the SQLite store; db.driver is %q", cfg.DB.Driver)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return db, nil
}

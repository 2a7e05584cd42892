// Package config loads cricmetrics settings from defaults, an optional YAML
// file and CRICMETRICS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level configuration. Field tags use mapstructure for
// viper unmarshalling.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	S3        S3Config        `mapstructure:"s3"`
	Cricsheet CricsheetConfig `mapstructure:"cricsheet"`
}

// DBConfig selects the storage backend.
type DBConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	Path   string `mapstructure:"path"`   // sqlite file
	URL    string `mapstructure:"url"`    // postgres connection URL
}

// IngestConfig tunes batch ingestion.
type IngestConfig struct {
	Workers         int           `mapstructure:"workers"`
	DocumentTimeout time.Duration `mapstructure:"document_timeout"`
	Validate        bool          `mapstructure:"validate"`
	BallsPerOver    int           `mapstructure:"balls_per_over"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// MetricsConfig controls the prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// S3Config applies to s3:// sources.
type S3Config struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// CricsheetConfig applies to the fetch command.
type CricsheetConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrInvalidDriver       = errors.New("db.driver must be sqlite or postgres")
	ErrMissingDBPath       = errors.New("db.path is required for the sqlite driver")
	ErrMissingDBURL        = errors.New("db.url is required for the postgres driver")
	ErrInvalidWorkers      = errors.New("ingest.workers must be positive")
	ErrInvalidTimeout      = errors.New("ingest.document_timeout must be non-negative")
	ErrInvalidBallsPerOver = errors.New("ingest.balls_per_over must be positive")
	ErrInvalidLogLevel     = errors.New("logging.level must be debug, info, warn or error")
	ErrInvalidLogFormat    = errors.New("logging.format must be text or json")
)

// Validate checks the config values and returns the first error found.
func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return ErrMissingDBPath
		}
	case DriverPostgres:
		if c.DB.URL == "" {
			return ErrMissingDBURL
		}
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidDriver, c.DB.Driver)
	}

	if c.Ingest.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.Ingest.DocumentTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.Ingest.BallsPerOver <= 0 {
		return ErrInvalidBallsPerOver
	}

	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidLogFormat, c.Logging.Format)
	}
	return nil
}

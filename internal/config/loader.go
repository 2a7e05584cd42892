package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pable/go-cricket-metrics/internal/cricsheet"
)

const (
	configName      = ".cricmetrics"
	configType      = "yaml"
	envPrefix       = "CRICMETRICS"
	envKeySeparator = "_"
)

// Load reads configuration into v, which may already carry bound command
// line flags. configPath names an explicit YAML file; when empty the file is
// searched in the working directory and $HOME, and a missing file is not an
// error. A .env file in the working directory is loaded into the process
// environment first, without overriding variables already set.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// DefaultDBPath is ~/.cricmetrics/metrics.db, or ./metrics.db without a home directory.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "metrics.db"
	}
	return filepath.Join(home, ".cricmetrics", "metrics.db")
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.path", DefaultDBPath())
	v.SetDefault("db.url", "")

	v.SetDefault("ingest.workers", runtime.NumCPU())
	v.SetDefault("ingest.document_timeout", 30*time.Second)
	v.SetDefault("ingest.validate", true)
	v.SetDefault("ingest.balls_per_over", 6)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("s3.region", "")
	v.SetDefault("s3.endpoint", "")

	v.SetDefault("cricsheet.base_url", cricsheet.DefaultBaseURL)
}

// NewLogger builds the slog logger described by c, writing to w.
func NewLogger(w io.Writer, c LoggingConfig) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("%w: got %q", ErrInvalidLogFormat, c.Format)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: got %q", ErrInvalidLogLevel, s)
	}
	return level, nil
}

// Package pgstore is the PostgreSQL persistence sink and dimension resolver.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pable/go-cricket-metrics/internal/ingest"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrMatchExists is returned by SaveMatch when the match id is already stored.
var ErrMatchExists = ingest.ErrMatchExists

// Store is a pgx connection pool with the cricket schema applied.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database at url, checks the connection and applies
// pending migrations.
func Open(ctx context.Context, url string) (*Store, error) {
	if err := migrateUp(url); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func migrateUp(url string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(url))
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{log: slog.Default().With("component", "migrate")}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres:// URL to the scheme of the pgx/v5
// migration driver.
func migrateURL(url string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(url, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return url
}

type migrateLogger struct {
	log *slog.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool { return false }

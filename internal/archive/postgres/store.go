// Package postgres provides a Postgres-backed announcement archive.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uwasa-watch/uwasa/internal/feed"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// StoreConfig controls the connection pool used for archive rows.
type StoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Store writes announcement artifacts into Postgres. Expected schema:
//
//	CREATE TABLE announcements (
//	    id          BIGINT PRIMARY KEY,
//	    payload     JSONB NOT NULL,
//	    archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type Store struct {
	pool  execCloser
	table string
}

var _ feed.Archive = (*Store)(nil)

// NewStore creates a Postgres-backed archive using the provided config.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("archive.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "announcements"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool, table: table}, nil
}

// NewStoreWithPool constructs a Store from an existing pool (primarily
// for testing).
func NewStoreWithPool(pool execCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "announcements"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Put inserts one artifact row. ON CONFLICT DO NOTHING keeps repeats
// idempotent without read-before-write.
func (s *Store) Put(ctx context.Context, id int64, data []byte) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, payload) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		s.table,
	)
	if _, err := s.pool.Exec(ctx, query, id, data); err != nil {
		return fmt.Errorf("insert announcement %d: %w", id, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	s.pool.Close()
}

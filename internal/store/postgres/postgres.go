// Package postgres provides Postgres-backed persistence for snapshots
// and cycle logs.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aromano/pricewatch/internal/tracker"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists snapshots in the snapshots table and cycle records in
// cycle_log.
type Store struct {
	db dbConn
}

// New connects a pool and returns a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
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
	return &Store{db: pool}, nil
}

// NewWithConn constructs a Store from an existing connection (primarily
// for testing with pgxmock).
func NewWithConn(db dbConn) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection is required")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

// GetLastByURL returns the most recent snapshot for a source URL, or nil
// when none exists.
func (s *Store) GetLastByURL(ctx context.Context, sourceURL string) (*tracker.ProductSnapshot, error) {
	query := `
SELECT title, price, availability, asin, sku, source_url, fetched_at
FROM snapshots
WHERE source_url = $1
ORDER BY fetched_at DESC
LIMIT 1`

	var snap tracker.ProductSnapshot
	err := s.db.QueryRow(ctx, query, sourceURL).Scan(
		&snap.Title,
		&snap.Price,
		&snap.Availability,
		&snap.ASIN,
		&snap.SKU,
		&snap.SourceURL,
		&snap.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select last snapshot: %w", err)
	}
	return &snap, nil
}

// Append inserts a snapshot row.
func (s *Store) Append(ctx context.Context, snap tracker.ProductSnapshot) error {
	query := `
INSERT INTO snapshots (title, price, availability, asin, sku, source_url, fetched_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := s.db.Exec(ctx, query,
		snap.Title,
		snap.Price,
		snap.Availability,
		snap.ASIN,
		snap.SKU,
		snap.SourceURL,
		snap.FetchedAt,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// AppendLog inserts a cycle log row.
func (s *Store) AppendLog(ctx context.Context, entry tracker.CycleLog) error {
	query := `
INSERT INTO cycle_log (cycle_id, url, status, title, summary, persisted, alerted, error, at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if _, err := s.db.Exec(ctx, query,
		entry.CycleID,
		entry.URL,
		entry.Status,
		entry.Title,
		entry.Summary,
		entry.Persisted,
		entry.Alerted,
		entry.Error,
		entry.At,
	); err != nil {
		return fmt.Errorf("insert cycle log: %w", err)
	}
	return nil
}

// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls the Postgres connection pool shared by the stores.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// db is the pool surface the stores use. pgxpool.Pool satisfies it in
// production and pgxmock in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Pool owns the shared connection pool and the schema bootstrap.
type Pool struct {
	db db
}

// New connects a pool using the provided config.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
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
	return &Pool{db: pool}, nil
}

// NewWithDB wraps an existing pool (primarily for testing).
func NewWithDB(d db) (*Pool, error) {
	if d == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Pool{db: d}, nil
}

// Ping verifies connectivity; readiness probes call this.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// Close releases the underlying pool resources.
func (p *Pool) Close() {
	if p == nil || p.db == nil {
		return
	}
	p.db.Close()
}

// bootstrapStatements create the schema. Idempotent, safe to rerun on boot.
var bootstrapStatements = []string{
	`CREATE TABLE IF NOT EXISTS categories (
	id BIGSERIAL PRIMARY KEY,
	store TEXT NOT NULL,
	name TEXT NOT NULL,
	parent_name TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (store, name)
)`,
	`CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	store TEXT NOT NULL,
	external_id TEXT NOT NULL,
	name TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	original_price DOUBLE PRECISION,
	category TEXT NOT NULL,
	subcategory TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	brand TEXT NOT NULL DEFAULT '',
	in_stock BOOLEAN,
	rating DOUBLE PRECISION,
	scraped_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (store, external_id)
)`,
	`CREATE TABLE IF NOT EXISTS scrape_runs (
	id TEXT PRIMARY KEY,
	store TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	pages_fetched INT NOT NULL DEFAULT 0,
	products_written INT NOT NULL DEFAULT 0,
	products_dropped INT NOT NULL DEFAULT 0,
	errors JSONB NOT NULL DEFAULT '[]'
)`,
	`CREATE INDEX IF NOT EXISTS products_store_category_idx ON products (store, category)`,
	`CREATE INDEX IF NOT EXISTS scrape_runs_store_started_idx ON scrape_runs (store, started_at DESC)`,
}

// Bootstrap creates the schema if it does not exist.
func (p *Pool) Bootstrap(ctx context.Context) error {
	for _, stmt := range bootstrapStatements {
		if _, err := p.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}

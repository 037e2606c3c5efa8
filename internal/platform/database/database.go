// Package database owns the PostgreSQL pool shared by the roadmap store,
// the tutor conversation store and the event log.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool defaults, used when a PoolConfig field is zero.
const (
	DefaultMaxConns        = 25
	DefaultMinConns        = 5
	DefaultMaxConnLifetime = 30 * time.Minute
	DefaultMaxConnIdleTime = 5 * time.Minute
)

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// PoolConfig sizes the connection pool. Zero fields take the defaults.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// poolConfig parses url and applies pc over the defaults. MinConns never
// exceeds MaxConns.
func poolConfig(url string, pc PoolConfig) (*pgxpool.Config, error) {
	cfg, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	maxConns := pc.MaxConns
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	minConns := pc.MinConns
	if minConns <= 0 {
		minConns = DefaultMinConns
	}
	minConns = min(minConns, maxConns)

	cfg.MaxConns = int32(maxConns)
	cfg.MinConns = int32(minConns)
	cfg.MaxConnLifetime = durationOr(pc.MaxConnLifetime, DefaultMaxConnLifetime)
	cfg.MaxConnIdleTime = durationOr(pc.MaxConnIdleTime, DefaultMaxConnIdleTime)
	return cfg, nil
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// New connects a pool and pings it.
func New(ctx context.Context, url string, pc PoolConfig) (*DB, error) {
	cfg, err := poolConfig(url, pc)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	slog.Info("database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"max_conns", cfg.MaxConns,
	)
	return &DB{Pool: pool}, nil
}

// Open connects like New and then brings the schema up to date. The pool
// is closed again if migration fails.
func Open(ctx context.Context, url string, pc PoolConfig) (*DB, error) {
	db, err := New(ctx, url, pc)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return db, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}

// HealthCheck verifies the database connection is alive.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

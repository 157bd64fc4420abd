package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	mu   sync.Mutex
)

// InitDB initializes the connection pool. An empty dbURL falls back to
// the DATABASE_URL environment variable. Once a pool is up later calls
// are no-ops; a failed attempt leaves no pool so the next call retries.
func InitDB(ctx context.Context, dbURL string) error {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		return nil
	}

	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable not set")
	}

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to open database pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return fmt.Errorf("failed to reach database: %w", err)
	}
	pool = p
	return nil
}

// GetPool returns the database connection pool, nil before InitDB succeeds.
func GetPool() *pgxpool.Pool {
	mu.Lock()
	defer mu.Unlock()
	return pool
}

// Close closes the database connection pool
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_reports (
	id            UUID PRIMARY KEY,
	entity        TEXT NOT NULL DEFAULT '',
	rules_version TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	status        TEXT NOT NULL,
	report        JSONB NOT NULL,
	generated_at  TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS analysis_reports_content_hash_idx ON analysis_reports (content_hash);
`

// EnsureSchema creates the report table if it does not exist.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	if p == nil {
		return fmt.Errorf("database pool not initialized")
	}
	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Package db publishes the compacted tables to PostgreSQL for downstream
// consumers.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
	player_key INTEGER PRIMARY KEY,
	player_id TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	first_name TEXT NOT NULL,
	last_name TEXT NOT NULL,
	country_code TEXT,
	birth_date DATE,
	profile_url TEXT
);

CREATE TABLE IF NOT EXISTS rankings (
	player_key INTEGER NOT NULL,
	ranking_date DATE NOT NULL,
	rank SMALLINT,
	points INTEGER,
	PRIMARY KEY (player_key, ranking_date)
);

CREATE TABLE IF NOT EXISTS tournaments (
	year INTEGER NOT NULL,
	tournament_name TEXT NOT NULL,
	tournament_type TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE,
	venue TEXT NOT NULL,
	country_code TEXT,
	singles_winner_names TEXT[] NOT NULL,
	singles_winner_urls TEXT[] NOT NULL,
	PRIMARY KEY (year, tournament_name, start_date)
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
	run_id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	fetched INTEGER NOT NULL,
	cached INTEGER NOT NULL,
	not_found INTEGER NOT NULL,
	timed_out INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	parse_errors INTEGER NOT NULL,
	error_message TEXT
);
`

// EnsureSchema creates the published tables if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

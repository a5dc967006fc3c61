// Package ledger records ingestion run reports and the unresolved identity
// side list in a small SQLite database next to the data.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/rank-tracker/internal/types"
)

// File is the ledger database name inside the data directory.
const File = "ledger.sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	report JSON NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

CREATE TABLE IF NOT EXISTS unresolved (
	normalized TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	occurrences INTEGER NOT NULL,
	first_seen TEXT NOT NULL,
	last_seen TEXT NOT NULL
);
`

// Ledger wraps the SQLite connection.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger in dataDir.
func Open(dataDir string) (*Ledger, error) {
	path := filepath.Join(dataDir, File)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// RecordRun stores a finished run report. Recording the same run ID again
// replaces it.
func (l *Ledger) RecordRun(r *types.RunReport) error {
	if r.RunID == uuid.Nil {
		return fmt.Errorf("run report has no run id")
	}
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now().UTC()
	}
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}

	_, err = l.db.Exec(`
		INSERT INTO runs (run_id, kind, started_at, finished_at, report)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			report = excluded.report
	`, r.RunID.String(), string(r.Kind), r.StartedAt.Format(time.RFC3339Nano),
		r.FinishedAt.Format(time.RFC3339Nano), string(body))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Runs returns the most recent run reports, newest first.
func (l *Ledger) Runs(limit int) ([]types.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(`SELECT report FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.RunReport
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		var r types.RunReport
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("failed to decode run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceUnresolved swaps the unresolved list for a freshly computed one.
// Compaction derives the list from every raw unit, so the previous list is
// discarded.
func (l *Ledger) ReplaceUnresolved(list []types.UnresolvedIdentity) error {
	tx, err := l.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin unresolved update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM unresolved`); err != nil {
		return fmt.Errorf("failed to clear unresolved: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO unresolved (normalized, name, occurrences, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare unresolved insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, u := range list {
		_, err := stmt.Exec(u.Normalized, u.Name, u.Occurrences,
			types.FormatDate(u.FirstSeen), types.FormatDate(u.LastSeen))
		if err != nil {
			return fmt.Errorf("failed to insert unresolved %q: %w", u.Name, err)
		}
	}
	return tx.Commit()
}

// Unresolved returns the side list, most frequent first.
func (l *Ledger) Unresolved() ([]types.UnresolvedIdentity, error) {
	rows, err := l.db.Query(`
		SELECT name, normalized, occurrences, first_seen, last_seen
		FROM unresolved
		ORDER BY occurrences DESC, normalized
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []types.UnresolvedIdentity
	for rows.Next() {
		var u types.UnresolvedIdentity
		var first, last string
		if err := rows.Scan(&u.Name, &u.Normalized, &u.Occurrences, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved: %w", err)
		}
		if u.FirstSeen, err = types.ParseDate(first); err != nil {
			return nil, err
		}
		if u.LastSeen, err = types.ParseDate(last); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

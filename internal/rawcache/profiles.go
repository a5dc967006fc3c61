package rawcache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jonathan/rank-tracker/internal/types"
)

// ErrProfileNotFound is returned when no profile is stored for a URL.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore keeps every scraped player profile in one SQLite database
// keyed by profile URL.
type ProfileStore struct {
	db *sql.DB
}

// ProfilesFile is the database file name inside the raw directory.
const ProfilesFile = "players.sqlite"

// OpenProfileStore opens or creates the profile database in dir.
func OpenProfileStore(dir string) (*ProfileStore, error) {
	path := filepath.Join(dir, ProfilesFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		profile_url TEXT PRIMARY KEY,
		player_id TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		record JSON NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_player ON profiles(player_id);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &ProfileStore{db: db}, nil
}

// Close closes the database.
func (s *ProfileStore) Close() error {
	return s.db.Close()
}

// Has reports whether a profile is stored for url.
func (s *ProfileStore) Has(url string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM profiles WHERE profile_url = ?`, url).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query profile: %w", err)
	}
	return n > 0, nil
}

// Read returns the profile stored for url.
func (s *ProfileStore) Read(url string) (*types.PlayerProfile, error) {
	var record string
	err := s.db.QueryRow(`SELECT record FROM profiles WHERE profile_url = ?`, url).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p types.PlayerProfile
	if err := json.Unmarshal([]byte(record), &p); err != nil {
		return nil, &CorruptError{Path: url, Cause: err}
	}
	return &p, nil
}

// Write inserts or replaces the profile for p.ProfileURL.
func (s *ProfileStore) Write(p *types.PlayerProfile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	if p.FetchedAt.IsZero() {
		p.FetchedAt = time.Now().UTC()
	}

	record, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO profiles (profile_url, player_id, fetched_at, record)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(profile_url) DO UPDATE SET
			player_id = excluded.player_id,
			fetched_at = excluded.fetched_at,
			record = excluded.record
	`, p.ProfileURL, p.PlayerID, p.FetchedAt.Format(time.RFC3339), string(record))
	if err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// All returns every stored profile ordered by player ID. Rows that fail to
// decode are skipped.
func (s *ProfileStore) All() ([]types.PlayerProfile, error) {
	rows, err := s.db.Query(`SELECT record FROM profiles ORDER BY player_id, profile_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []types.PlayerProfile
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		var p types.PlayerProfile
		if err := json.Unmarshal([]byte(record), &p); err != nil {
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// KnownIDs returns the set of player IDs that have a stored profile.
func (s *ProfileStore) KnownIDs() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT DISTINCT player_id FROM profiles`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan profile id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

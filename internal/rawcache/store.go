// Package rawcache persists fetched units, one file per unit key, so that
// ingestion is idempotent and resumable. Presence of a readable unit file
// means the unit was fetched.
package rawcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/jonathan/rank-tracker/internal/schemas"
	"github.com/jonathan/rank-tracker/internal/types"
)

const unitExt = ".json.zst"

// Dir is the raw cache directory under the data directory.
const Dir = "raw"

// ErrCorrupt marks a unit file that exists but cannot be read back.
var ErrCorrupt = errors.New("raw unit is corrupt")

// CorruptError describes why a unit file could not be read.
type CorruptError struct {
	Path  string
	Cause error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("raw unit %s is corrupt: %v", e.Path, e.Cause)
}

func (e *CorruptError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrCorrupt) match.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorrupt
}

// Unit is the envelope stored in each raw file. Columns lists every JSON
// field present in at least one row.
type Unit[T any] struct {
	Kind      types.EntityKind `json:"kind"`
	Key       string           `json:"key"`
	FetchedAt time.Time        `json:"fetched_at"`
	Columns   []string         `json:"columns"`
	Rows      []T              `json:"rows"`
}

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	decoder, _ = zstd.NewReader(nil)
)

// Store is the file-backed raw cache rooted at a directory.
type Store struct {
	dir string
}

// NewStore creates the raw directory if needed.
func NewStore(dir string) (*Store, error) {
	for _, kind := range []types.EntityKind{types.KindRankings, types.KindTournaments} {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create raw cache directory: %w", err)
		}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key Key) string {
	return filepath.Join(s.dir, key.Path())
}

// Has reports whether a readable unit exists for key. A corrupt unit counts
// as absent so that it is fetched again.
func (s *Store) Has(key Key) bool {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	_, err = decode(key.Kind, s.path(key), data)
	return err == nil
}

// Write stores rows for key, replacing any previous unit. The file is written
// to a temp name and renamed so a crash never leaves a partial unit behind.
func Write[T any](s *Store, key Key, rows []T) error {
	if rows == nil {
		rows = []T{}
	}

	columns, err := columnsOf(rows)
	if err != nil {
		return fmt.Errorf("failed to encode rows for %s: %w", key, err)
	}

	data, err := json.Marshal(Unit[T]{
		Kind:      key.Kind,
		Key:       key.String(),
		FetchedAt: time.Now().UTC(),
		Columns:   columns,
		Rows:      rows,
	})
	if err != nil {
		return fmt.Errorf("failed to encode unit %s: %w", key, err)
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create unit directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(encoder.EncodeAll(data, nil)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write unit %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync unit %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close unit %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish unit %s: %w", key, err)
	}
	return nil
}

// Read loads the unit stored for key. A missing file returns an error
// wrapping os.ErrNotExist; an unreadable one returns a *CorruptError.
func Read[T any](s *Store, key Key) (*Unit[T], error) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit %s: %w", key, err)
	}

	raw, err := decode(key.Kind, path, data)
	if err != nil {
		return nil, err
	}

	var unit Unit[T]
	if err := json.Unmarshal(raw, &unit); err != nil {
		return nil, &CorruptError{Path: path, Cause: err}
	}
	return &unit, nil
}

func decode(kind types.EntityKind, path string, data []byte) ([]byte, error) {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, &CorruptError{Path: path, Cause: err}
	}
	if err := schemas.ValidateUnit(string(kind), raw); err != nil {
		return nil, &CorruptError{Path: path, Cause: err}
	}
	return raw, nil
}

// List returns the keys of every unit file of kind, sorted by path. Temp
// files are skipped. Units are listed without checking that they decode.
func (s *Store) List(kind types.EntityKind) ([]Key, error) {
	root := filepath.Join(s.dir, string(kind))
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s units: %w", kind, err)
	}
	sort.Strings(paths)

	keys := make([]Key, 0, len(paths))
	for _, p := range paths {
		if key, ok := keyFromFile(kind, filepath.Base(p)); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func columnsOf[T any](rows []T) ([]string, error) {
	seen := map[string]bool{}
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return nil, err
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, err
		}
		for name := range fields {
			seen[name] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns, nil
}

// Package table holds the compacted parquet schemas and the file helpers that
// read and write them.
package table

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	parquet "github.com/parquet-go/parquet-go"

	"github.com/jonathan/rank-tracker/internal/types"
)

// Dir is the compacted table directory inside the data directory.
const Dir = "compact"

// Path returns the parquet file of kind under dataDir.
func Path(dataDir string, kind types.EntityKind) string {
	return filepath.Join(dataDir, Dir, string(kind)+".parquet")
}

// Write replaces path with rows. The file is written next to its final name
// and renamed into place, so a reader sees either the old or the new table.
func Write[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.parquet")
	if err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}
	tmp := f.Name()
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}

	w := parquet.NewWriter(f, parquet.SchemaOf(new(T)), parquet.Compression(&parquet.Snappy))
	for i := range rows {
		if err := w.Write(&rows[i]); err != nil {
			_ = w.Close()
			cleanup()
			return fmt.Errorf("failed to write table row %d: %w", i, err)
		}
	}
	if err := w.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to finish table %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync table: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close table: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish table %s: %w", path, err)
	}
	return nil
}

// Read loads every row of path. A missing file returns an error wrapping
// os.ErrNotExist.
func Read[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("table %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to stat table %s: %w", path, err)
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", path, err)
	}
	return rows, nil
}

// Package compact derives the columnar tables from every raw unit: it merges,
// deduplicates and reconciles the raw rows and rewrites one parquet file per
// entity type.
package compact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/jonathan/rank-tracker/internal/keys"
	"github.com/jonathan/rank-tracker/internal/ledger"
	"github.com/jonathan/rank-tracker/internal/rawcache"
	"github.com/jonathan/rank-tracker/internal/reconcile"
	"github.com/jonathan/rank-tracker/internal/series"
	"github.com/jonathan/rank-tracker/internal/types"
)

// Options configures a Compactor.
type Options struct {
	DataDir        string
	MaxGapDays     int
	MatchThreshold float64
	Verbose        bool
}

// Stats describes one compaction of one entity type.
type Stats struct {
	Kind       types.EntityKind
	Units      int
	Corrupt    int
	RowsIn     int
	RowsOut    int
	Duplicates int
	Dropped    int
	Stripped   int
	Markers    int
	Undated    int
	Unresolved int
	Columns    int
}

func (s Stats) String() string {
	return fmt.Sprintf("%s: %d units (%d corrupt), %d rows in, %d rows out, %d duplicates, %d dropped, %d stripped, %d gap markers, %d undated, %d unresolved names",
		s.Kind, s.Units, s.Corrupt, s.RowsIn, s.RowsOut, s.Duplicates, s.Dropped, s.Stripped, s.Markers, s.Undated, s.Unresolved)
}

// Compactor rewrites the compacted tables from the raw cache.
type Compactor struct {
	raw      *rawcache.Store
	profiles *rawcache.ProfileStore
	keys     *keys.Translator
	ledger   *ledger.Ledger
	engine   *reconcile.Engine
	opts     Options
}

// New creates a Compactor. The ledger may be nil, in which case the
// unresolved list is only logged.
func New(raw *rawcache.Store, profiles *rawcache.ProfileStore, tr *keys.Translator, l *ledger.Ledger, opts Options) *Compactor {
	if opts.MaxGapDays <= 0 {
		opts.MaxGapDays = series.DefaultMaxGapDays
	}
	return &Compactor{
		raw:      raw,
		profiles: profiles,
		keys:     tr,
		ledger:   l,
		engine:   reconcile.NewEngine(reconcile.Options{Threshold: opts.MatchThreshold}),
		opts:     opts,
	}
}

// Compact rebuilds the table of one entity type.
func (c *Compactor) Compact(ctx context.Context, kind types.EntityKind) (Stats, error) {
	var (
		stats Stats
		err   error
	)
	switch kind {
	case types.KindRankings:
		stats, err = c.compactRankings(ctx)
	case types.KindPlayers:
		stats, err = c.compactPlayers(ctx)
	case types.KindTournaments:
		stats, err = c.compactTournaments(ctx)
	default:
		return Stats{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	if err != nil {
		return stats, fmt.Errorf("failed to compact %s: %w", kind, err)
	}
	if c.opts.Verbose {
		log.Printf("[COMPACT] %s", stats)
	}
	return stats, nil
}

// CompactAll rebuilds every table: rankings, then players, then tournaments.
func (c *Compactor) CompactAll(ctx context.Context) ([]Stats, error) {
	var all []Stats
	for _, kind := range []types.EntityKind{types.KindRankings, types.KindPlayers, types.KindTournaments} {
		stats, err := c.Compact(ctx, kind)
		if err != nil {
			return all, err
		}
		all = append(all, stats)
	}
	return all, nil
}

// loadRankingRows concatenates every closed rankings unit. Corrupt units are
// skipped and counted.
func (c *Compactor) loadRankingRows(ctx context.Context, stats *Stats) ([]types.RankingRow, error) {
	unitKeys, err := c.raw.List(types.KindRankings)
	if err != nil {
		return nil, err
	}

	var rows []types.RankingRow
	for _, key := range unitKeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		unit, err := rawcache.Read[types.RankingRow](c.raw, key)
		if err != nil {
			if errors.Is(err, rawcache.ErrCorrupt) {
				log.Printf("[WARN] skipping %v", err)
				stats.Corrupt++
				continue
			}
			return nil, err
		}
		stats.Units++
		rows = append(rows, unit.Rows...)
	}
	return rows, nil
}

// assignKeys allocates player keys for ids in sorted order, so a fresh key
// database numbers players deterministically.
func (c *Compactor) assignKeys(ids map[string]bool) (map[string]int32, error) {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	return c.keys.Assign(sorted)
}

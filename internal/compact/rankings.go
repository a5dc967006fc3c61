package compact

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/rank-tracker/internal/reconcile"
	"github.com/jonathan/rank-tracker/internal/series"
	"github.com/jonathan/rank-tracker/internal/table"
	"github.com/jonathan/rank-tracker/internal/types"
)

func (c *Compactor) compactRankings(ctx context.Context) (Stats, error) {
	stats := Stats{Kind: types.KindRankings}

	rows, err := c.loadRankingRows(ctx, &stats)
	if err != nil {
		return stats, err
	}
	stats.RowsIn = len(rows)

	rows, stats.Duplicates = dropExactDuplicates(rows)

	profiles, err := c.profiles.All()
	if err != nil {
		return stats, err
	}
	rec := c.engine.ReconcileRankings(profiles, rows)
	stats.Dropped = rec.Stats.BadRank + rec.Stats.BadDate
	stats.Unresolved = len(rec.Unresolved)

	// Provisional IDs never reach the table.
	linked := make([]types.RankObservation, 0, len(rec.Observations))
	for _, o := range rec.Observations {
		if reconcile.IsProvisional(o.PlayerID) {
			stats.Stripped++
			continue
		}
		linked = append(linked, o)
	}

	kept, dupes := series.DedupeBestRank(linked)
	stats.Duplicates += dupes

	withMarkers, markers := series.WithMarkers(kept, c.opts.MaxGapDays)
	stats.Markers = markers

	ids := map[string]bool{}
	for _, o := range withMarkers {
		ids[o.PlayerID] = true
	}
	playerKeys, err := c.assignKeys(ids)
	if err != nil {
		return stats, err
	}

	records := make([]table.RankingRecord, len(withMarkers))
	for i, o := range withMarkers {
		records[i] = table.FromObservation(playerKeys[o.PlayerID], o)
	}
	if err := table.Write(table.Path(c.opts.DataDir, types.KindRankings), records); err != nil {
		return stats, err
	}
	stats.RowsOut = len(records)

	if c.ledger != nil {
		if err := c.ledger.ReplaceUnresolved(rec.Unresolved); err != nil {
			return stats, fmt.Errorf("failed to record unresolved names: %w", err)
		}
	}
	if c.opts.Verbose {
		log.Printf("[COMPACT] reconciled %d rows against %d known names", rec.Stats.Rows, rec.Stats.KnownNames)
		for _, u := range rec.Unresolved {
			log.Printf("[COMPACT] unresolved %q seen %d times", u.Name, u.Occurrences)
		}
	}
	return stats, nil
}

// dropExactDuplicates removes rows that repeat another row field for field,
// keeping the first.
func dropExactDuplicates(rows []types.RankingRow) ([]types.RankingRow, int) {
	seen := make(map[string]bool, len(rows))
	out := rows[:0:0]
	dropped := 0
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			out = append(out, row)
			continue
		}
		if seen[string(data)] {
			dropped++
			continue
		}
		seen[string(data)] = true
		out = append(out, row)
	}
	return out, dropped
}

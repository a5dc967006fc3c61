// Package series builds per-player rank time series: grouping, gap markers
// and reads over a sorted series.
package series

import (
	"sort"
	"time"

	"github.com/jonathan/rank-tracker/internal/types"
)

// DefaultMaxGapDays is the longest gap drawn as a continuous line.
const DefaultMaxGapDays = 180

// InsertGapMarkers returns the observations of one player with a gap marker
// (nil rank and points) at the midpoint of every gap longer than maxGapDays.
// The input must be sorted by date and is not modified. Fewer than two
// observations are returned unchanged.
func InsertGapMarkers(sorted []types.RankObservation, maxGapDays int) []types.RankObservation {
	if len(sorted) < 2 {
		return sorted
	}

	out := make([]types.RankObservation, 0, len(sorted))
	out = append(out, sorted[0])
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if gap := types.DaysBetween(prev.Date, cur.Date); gap > maxGapDays {
			out = append(out, types.RankObservation{
				PlayerID: prev.PlayerID,
				Date:     prev.Date.AddDate(0, 0, gap/2),
			})
		}
		out = append(out, cur)
	}
	return out
}

// ByPlayer groups observations per player, each series sorted by date.
func ByPlayer(obs []types.RankObservation) map[string][]types.RankObservation {
	grouped := map[string][]types.RankObservation{}
	for _, o := range obs {
		grouped[o.PlayerID] = append(grouped[o.PlayerID], o)
	}
	for _, s := range grouped {
		SortByDate(s)
	}
	return grouped
}

// SortByDate sorts a series in place, oldest first.
func SortByDate(obs []types.RankObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Date.Before(obs[j].Date)
	})
}

// DedupeBestRank collapses observations sharing (player, date), keeping the
// best (lowest) rank. Gap markers lose to real observations.
func DedupeBestRank(obs []types.RankObservation) (kept []types.RankObservation, dropped int) {
	type key struct {
		id   string
		date time.Time
	}
	best := map[key]int{}
	for _, o := range obs {
		k := key{o.PlayerID, o.Date}
		i, ok := best[k]
		if !ok {
			best[k] = len(kept)
			kept = append(kept, o)
			continue
		}
		dropped++
		if better(o, kept[i]) {
			kept[i] = o
		}
	}
	return kept, dropped
}

func better(a, b types.RankObservation) bool {
	switch {
	case a.Rank == nil:
		return false
	case b.Rank == nil:
		return true
	default:
		return *a.Rank < *b.Rank
	}
}

// WithMarkers groups obs per player, inserts gap markers and returns every
// series concatenated, ordered by player ID then date. It also returns the
// number of markers inserted.
func WithMarkers(obs []types.RankObservation, maxGapDays int) ([]types.RankObservation, int) {
	grouped := ByPlayer(obs)
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]types.RankObservation, 0, len(obs))
	markers := 0
	for _, id := range ids {
		s := InsertGapMarkers(grouped[id], maxGapDays)
		markers += len(s) - len(grouped[id])
		out = append(out, s...)
	}
	return out, markers
}

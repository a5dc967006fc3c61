package compact

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/jonathan/rank-tracker/internal/rawcache"
	"github.com/jonathan/rank-tracker/internal/table"
	"github.com/jonathan/rank-tracker/internal/types"
)

// columnSet is the union of the columns seen across tournament units. Units
// from older scrape runs lack some optional columns; those rows decode with
// the field nil, and the merge records which units drifted.
type columnSet struct {
	union   map[string]bool
	perUnit map[string][]string
}

func newColumnSet() *columnSet {
	return &columnSet{union: map[string]bool{}, perUnit: map[string][]string{}}
}

func (s *columnSet) add(key string, columns []string) {
	s.perUnit[key] = columns
	for _, c := range columns {
		s.union[c] = true
	}
}

// missing returns, per unit key, the union columns the unit does not carry.
func (s *columnSet) missing() map[string][]string {
	out := map[string][]string{}
	for key, cols := range s.perUnit {
		if len(cols) == 0 {
			continue
		}
		has := make(map[string]bool, len(cols))
		for _, c := range cols {
			has[c] = true
		}
		for c := range s.union {
			if !has[c] {
				out[key] = append(out[key], c)
			}
		}
		sort.Strings(out[key])
	}
	return out
}

type tournamentKey struct {
	year  int
	name  string
	start time.Time
}

type fetchedTournament struct {
	row       types.Tournament
	fetchedAt time.Time
}

func (c *Compactor) compactTournaments(ctx context.Context) (Stats, error) {
	stats := Stats{Kind: types.KindTournaments}

	unitKeys, err := c.raw.List(types.KindTournaments)
	if err != nil {
		return stats, err
	}

	columns := newColumnSet()
	latest := map[tournamentKey]fetchedTournament{}

	for _, key := range unitKeys {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		unit, err := rawcache.Read[types.TournamentRow](c.raw, key)
		if err != nil {
			if errors.Is(err, rawcache.ErrCorrupt) {
				log.Printf("[WARN] skipping %v", err)
				stats.Corrupt++
				continue
			}
			return stats, err
		}
		stats.Units++
		columns.add(unit.Key, unit.Columns)

		for _, row := range unit.Rows {
			stats.RowsIn++
			t, ok := toTournament(row)
			if !ok {
				stats.Undated++
				continue
			}
			k := tournamentKey{year: t.Year, name: t.Name, start: t.StartDate}
			if cur, seen := latest[k]; seen {
				stats.Duplicates++
				if !unit.FetchedAt.After(cur.fetchedAt) {
					continue
				}
			}
			latest[k] = fetchedTournament{row: t, fetchedAt: unit.FetchedAt}
		}
	}

	stats.Columns = len(columns.union)
	if c.opts.Verbose {
		for key, cols := range columns.missing() {
			log.Printf("[COMPACT] tournaments unit %s lacks columns %v", key, cols)
		}
	}

	merged := make([]types.Tournament, 0, len(latest))
	for _, t := range latest {
		merged = append(merged, t.row)
	}
	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		return a.Name < b.Name
	})

	records := make([]table.TournamentRecord, len(merged))
	for i, t := range merged {
		records[i] = table.FromTournament(t)
	}
	if err := table.Write(table.Path(c.opts.DataDir, types.KindTournaments), records); err != nil {
		return stats, err
	}
	stats.RowsOut = len(records)
	return stats, nil
}

// toTournament narrows a raw row. Rows without a parseable start date or a
// singles winner are rejected.
func toTournament(row types.TournamentRow) (types.Tournament, bool) {
	if row.StartDate == nil || len(row.SinglesWinnerNames) == 0 {
		return types.Tournament{}, false
	}
	start, err := types.ParseDate(*row.StartDate)
	if err != nil {
		return types.Tournament{}, false
	}

	t := types.Tournament{
		Year:               row.Year,
		Name:               row.Name,
		Type:               row.Type,
		StartDate:          start,
		Venue:              deref(row.Venue),
		CountryCode:        deref(row.CountryCode),
		SinglesWinnerNames: row.SinglesWinnerNames,
		SinglesWinnerURLs:  parallelURLs(row.SinglesWinnerNames, row.SinglesWinnerURLs),
	}
	if row.EndDate != nil {
		if end, err := types.ParseDate(*row.EndDate); err == nil {
			t.EndDate = &end
		}
	}
	return t, true
}

// parallelURLs pads or trims urls to the length of names, using "" for a
// missing URL.
func parallelURLs(names, urls []string) []string {
	out := make([]string, len(names))
	copy(out, urls)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

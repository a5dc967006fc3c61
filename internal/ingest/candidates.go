package ingest

import (
	"context"
	"errors"
	"log"
	"sort"

	"github.com/jonathan/rank-tracker/internal/rawcache"
	"github.com/jonathan/rank-tracker/internal/types"
)

// Candidate is a URL-linked player from the rankings whose profile may be
// fetched.
type Candidate struct {
	PlayerID  string
	Slug      string
	BestRank  int16
	FirstSeen string
}

// playerCandidates ranks every URL-linked player in the cached rankings by
// best rank, then earliest appearance, and returns at most limit of them.
// Players with a stored profile are left out unless Force is set.
func (d *Driver) playerCandidates(ctx context.Context, limit int) ([]Candidate, error) {
	known := map[string]bool{}
	if !d.opts.Force {
		ids, err := d.profiles.KnownIDs()
		if err != nil {
			return nil, err
		}
		known = ids
	}

	unitKeys, err := d.raw.List(types.KindRankings)
	if err != nil {
		return nil, err
	}

	byID := map[string]*Candidate{}
	for _, key := range unitKeys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		unit, err := rawcache.Read[types.RankingRow](d.raw, key)
		if err != nil {
			if errors.Is(err, rawcache.ErrCorrupt) {
				log.Printf("[WARN] skipping %v", err)
				continue
			}
			return nil, err
		}
		for _, row := range unit.Rows {
			if row.PlayerID == "" || row.Slug == "" || known[row.PlayerID] {
				continue
			}
			rank, err := types.ParseRank(row.Rank)
			if err != nil {
				continue
			}
			c, ok := byID[row.PlayerID]
			if !ok {
				byID[row.PlayerID] = &Candidate{PlayerID: row.PlayerID, Slug: row.Slug, BestRank: rank, FirstSeen: row.RankingDate}
				continue
			}
			if rank < c.BestRank {
				c.BestRank = rank
			}
			if row.RankingDate < c.FirstSeen {
				c.FirstSeen = row.RankingDate
			}
		}
	}

	return PrioritizeCandidates(byID, limit), nil
}

// PrioritizeCandidates orders candidates by best rank, then first seen date,
// then ID, and keeps at most limit. A limit of zero or less keeps all.
func PrioritizeCandidates(byID map[string]*Candidate, limit int) []Candidate {
	out := make([]Candidate, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BestRank != b.BestRank {
			return a.BestRank < b.BestRank
		}
		if a.FirstSeen != b.FirstSeen {
			return a.FirstSeen < b.FirstSeen
		}
		return a.PlayerID < b.PlayerID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

package reconcile

import (
	"sort"
	"time"

	"github.com/jonathan/rank-tracker/internal/types"
)

// Identity is what the rankings say about a URL-linked player.
type Identity struct {
	PlayerID string
	Name     string
	Slug     string
	LastSeen string
}

// Stats counts how rows were resolved.
type Stats struct {
	Rows       int
	BadRank    int
	BadDate    int
	ByMethod   map[Method]int
	Unresolved int
	KnownNames int
}

// Reconciled is the result of reconciling a batch of ranking rows.
type Reconciled struct {
	Observations []types.RankObservation
	Identities   map[string]Identity
	Unresolved   []types.UnresolvedIdentity
	Stats        Stats
}

// Engine resolves ranking rows against known players.
type Engine struct {
	opts Options
}

// NewEngine creates an engine with the given matching options.
func NewEngine(opts Options) *Engine {
	return &Engine{opts: opts}
}

// ReconcileRankings assigns a player ID to every row. Profiles and
// URL-linked rows are learned first, then name-only rows are resolved
// against them. Rows that stay unresolved keep a provisional ID and are
// reported in Unresolved. Rows whose rank or date does not parse are dropped
// and counted.
func (e *Engine) ReconcileRankings(profiles []types.PlayerProfile, rows []types.RankingRow) Reconciled {
	ix := NewNameIndex()
	identities := map[string]Identity{}

	for _, p := range profiles {
		ix.Learn(p.PlayerID, p.FullName)
	}
	for _, row := range rows {
		if row.PlayerID == "" {
			continue
		}
		ix.Learn(row.PlayerID, row.Name)
		if cur, ok := identities[row.PlayerID]; !ok || row.RankingDate >= cur.LastSeen {
			identities[row.PlayerID] = Identity{
				PlayerID: row.PlayerID,
				Name:     row.Name,
				Slug:     row.Slug,
				LastSeen: row.RankingDate,
			}
		}
	}

	out := Reconciled{
		Identities: identities,
		Stats:      Stats{Rows: len(rows), ByMethod: map[Method]int{}, KnownNames: ix.Len()},
	}

	memo := map[string]Resolution{}
	unresolved := map[string]*types.UnresolvedIdentity{}

	for _, row := range rows {
		rank, err := types.ParseRank(row.Rank)
		if err != nil {
			out.Stats.BadRank++
			continue
		}
		date, err := types.ParseDate(row.RankingDate)
		if err != nil {
			out.Stats.BadDate++
			continue
		}

		var res Resolution
		if row.PlayerID != "" {
			res = Resolve(ix, Ref{PlayerID: row.PlayerID, Name: row.Name}, e.opts)
		} else {
			normalized := Normalize(row.Name)
			cached, ok := memo[normalized]
			if !ok {
				cached = Resolve(ix, Ref{Name: row.Name}, e.opts)
				memo[normalized] = cached
			}
			res = cached
		}
		out.Stats.ByMethod[res.Method]++

		playerID := res.PlayerID
		if !res.Resolved() {
			playerID = ProvisionalID(row.Name)
			out.Stats.Unresolved++
			trackUnresolved(unresolved, row.Name, date)
		}

		obs := types.RankObservation{PlayerID: playerID, Date: date, Rank: &rank}
		if row.Points != nil {
			p := int32(*row.Points)
			obs.Points = &p
		}
		out.Observations = append(out.Observations, obs)
	}

	for _, u := range unresolved {
		out.Unresolved = append(out.Unresolved, *u)
	}
	sort.Slice(out.Unresolved, func(i, j int) bool {
		if out.Unresolved[i].Occurrences != out.Unresolved[j].Occurrences {
			return out.Unresolved[i].Occurrences > out.Unresolved[j].Occurrences
		}
		return out.Unresolved[i].Normalized < out.Unresolved[j].Normalized
	})

	return out
}

func trackUnresolved(m map[string]*types.UnresolvedIdentity, name string, date time.Time) {
	normalized := Normalize(name)
	u, ok := m[normalized]
	if !ok {
		m[normalized] = &types.UnresolvedIdentity{
			Name:        name,
			Normalized:  normalized,
			Occurrences: 1,
			FirstSeen:   date,
			LastSeen:    date,
		}
		return
	}
	u.Occurrences++
	if date.Before(u.FirstSeen) {
		u.FirstSeen = date
	}
	if date.After(u.LastSeen) {
		u.LastSeen = date
	}
}

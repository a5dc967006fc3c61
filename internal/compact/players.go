package compact

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jonathan/rank-tracker/internal/scrape"
	"github.com/jonathan/rank-tracker/internal/table"
	"github.com/jonathan/rank-tracker/internal/types"
)

var birthDateDetails = []string{"dob", "birthdate", "date_of_birth", "age"}

// compactPlayers writes the union of URL-linked ranking identities and
// scraped profiles. Profile data wins over names seen in the rankings.
func (c *Compactor) compactPlayers(ctx context.Context) (Stats, error) {
	stats := Stats{Kind: types.KindPlayers}

	rows, err := c.loadRankingRows(ctx, &stats)
	if err != nil {
		return stats, err
	}
	profiles, err := c.profiles.All()
	if err != nil {
		return stats, err
	}
	stats.RowsIn = len(profiles)

	players := map[string]*types.Player{}
	for id, ident := range c.engine.ReconcileRankings(nil, rows).Identities {
		first, last := types.SplitName(ident.Name)
		players[id] = &types.Player{
			PlayerID:    id,
			DisplayName: ident.Name,
			FirstName:   first,
			LastName:    last,
		}
	}
	stats.RowsIn += len(players)

	for _, p := range profiles {
		if existing, ok := players[p.PlayerID]; ok {
			stats.Duplicates++
			mergeProfile(existing, p)
			continue
		}
		player := &types.Player{PlayerID: p.PlayerID}
		mergeProfile(player, p)
		players[p.PlayerID] = player
	}

	ids := make(map[string]bool, len(players))
	for id := range players {
		ids[id] = true
	}
	playerKeys, err := c.assignKeys(ids)
	if err != nil {
		return stats, err
	}

	records := make([]table.PlayerRecord, 0, len(players))
	for id, p := range players {
		p.PlayerKey = playerKeys[id]
		records = append(records, table.FromPlayer(*p))
	}
	sort.Slice(records, func(i, j int) bool { return records[i].PlayerKey < records[j].PlayerKey })

	if err := table.Write(table.Path(c.opts.DataDir, types.KindPlayers), records); err != nil {
		return stats, err
	}
	stats.RowsOut = len(records)
	return stats, nil
}

func mergeProfile(dst *types.Player, p types.PlayerProfile) {
	if name := strings.TrimSpace(p.FullName); name != "" {
		dst.DisplayName = name
		dst.FirstName, dst.LastName = types.SplitName(name)
	}
	if p.CountryCode != "" {
		dst.CountryCode = strings.ToUpper(p.CountryCode)
	}
	if p.ProfileURL != "" {
		dst.ProfileURL = p.ProfileURL
	}
	if birth, ok := profileBirthDate(p); ok {
		dst.BirthDate = &birth
	}
}

func profileBirthDate(p types.PlayerProfile) (time.Time, bool) {
	if p.BirthDate != "" {
		if d, err := types.ParseDate(p.BirthDate); err == nil {
			return d, true
		}
	}
	for _, label := range birthDateDetails {
		if v, found := p.Details[label]; found {
			if d, ok := scrape.ExtractBirthDate(v); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

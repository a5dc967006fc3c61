// Package query is the read side of the store: typed access to the compacted
// tables and the typeahead search index built from the player table.
package query

import (
	"errors"
	"fmt"
	"log"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jonathan/rank-tracker/internal/reconcile"
	"github.com/jonathan/rank-tracker/internal/scrape"
	"github.com/jonathan/rank-tracker/internal/series"
	"github.com/jonathan/rank-tracker/internal/table"
	"github.com/jonathan/rank-tracker/internal/types"
)

// ErrNotIngested is returned when a compacted table has not been written yet.
var ErrNotIngested = errors.New("no compacted data: run ingestion and compaction first")

// Options configures a Facade.
type Options struct {
	DataDir     string
	PrefixRatio float64
	CacheSize   int
}

// Facade reads the compacted tables. The player snapshot behind Search and
// the key mapping is loaded at Open and refreshed by Reload.
type Facade struct {
	dataDir string
	index   *reconcile.Index

	mu    sync.RWMutex
	byID  map[string]types.Player
	byKey map[int32]string
}

// Open builds a facade over dataDir. A store that has not been compacted yet
// opens with an empty index.
func Open(opts Options) (*Facade, error) {
	f := &Facade{
		dataDir: opts.DataDir,
		index:   reconcile.NewIndex(reconcile.SearchOptions{PrefixRatio: opts.PrefixRatio, CacheSize: opts.CacheSize}),
		byID:    map[string]types.Player{},
		byKey:   map[int32]string{},
	}
	if err := f.Reload(); err != nil && !errors.Is(err, ErrNotIngested) {
		return nil, err
	}
	return f, nil
}

// Reload re-reads the player table and rebuilds the search index. Call it
// after every compaction.
func (f *Facade) Reload() error {
	players, err := f.Players()
	if err != nil {
		return err
	}

	byID := make(map[string]types.Player, len(players))
	byKey := make(map[int32]string, len(players))
	for _, p := range players {
		byID[p.PlayerID] = p
		byKey[p.PlayerKey] = p.PlayerID
	}

	f.mu.Lock()
	prev := f.byID
	f.byID = byID
	f.byKey = byKey
	f.mu.Unlock()

	if len(prev) == 0 || dropsPlayers(prev, byID) {
		f.index.Rebuild(players)
		return nil
	}
	// Compaction mostly appends players and refines names; update those in place.
	for _, p := range players {
		old, ok := prev[p.PlayerID]
		if !ok || !slices.Equal(reconcile.PlayerTokens(old), reconcile.PlayerTokens(p)) {
			f.index.Add(p)
		}
	}
	return nil
}

func dropsPlayers(prev, next map[string]types.Player) bool {
	for id := range prev {
		if _, ok := next[id]; !ok {
			return true
		}
	}
	return false
}

func readTable[T any](dataDir string, kind types.EntityKind) ([]T, error) {
	rows, err := table.Read[T](table.Path(dataDir, kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", kind, ErrNotIngested)
	}
	return rows, err
}

// Players returns every row of the player table.
func (f *Facade) Players() ([]types.Player, error) {
	records, err := readTable[table.PlayerRecord](f.dataDir, types.KindPlayers)
	if err != nil {
		return nil, err
	}
	players := make([]types.Player, len(records))
	for i, r := range records {
		players[i] = r.Player()
	}
	return players, nil
}

// Player returns one player from the loaded snapshot.
func (f *Facade) Player(id string) (types.Player, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.byID[id]
	return p, ok
}

// Rankings returns every observation in the rankings table, gap markers
// included, ordered by player then date.
func (f *Facade) Rankings() ([]types.RankObservation, error) {
	return f.rankings(nil)
}

// RankingsFor returns the observations of a player set, ordered by player
// then date.
func (f *Facade) RankingsFor(ids []string) ([]types.RankObservation, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return f.rankings(want)
}

func (f *Facade) rankings(want map[string]bool) ([]types.RankObservation, error) {
	records, err := readTable[table.RankingRecord](f.dataDir, types.KindRankings)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	byKey := f.byKey
	f.mu.RUnlock()

	// Rows cannot be attributed without the player table.
	if len(records) > 0 && len(byKey) == 0 {
		return nil, fmt.Errorf("%s: %w", types.KindPlayers, ErrNotIngested)
	}

	var out []types.RankObservation
	unknown := 0
	for _, r := range records {
		id, ok := byKey[r.PlayerKey]
		if !ok {
			unknown++
			continue
		}
		if want != nil && !want[id] {
			continue
		}
		out = append(out, r.Observation(id))
	}
	if unknown > 0 {
		log.Printf("[WARN] %d ranking rows reference players missing from the player table", unknown)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// Tournaments returns every compacted tournament.
func (f *Facade) Tournaments() ([]types.Tournament, error) {
	records, err := readTable[table.TournamentRecord](f.dataDir, types.KindTournaments)
	if err != nil {
		return nil, err
	}
	out := make([]types.Tournament, len(records))
	for i, r := range records {
		out[i] = r.Tournament()
	}
	return out, nil
}

// Search returns the players matching a typed query, in index order.
func (f *Facade) Search(q string) []types.Player {
	ids := f.index.Search(q)

	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]types.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// SearchStage reports which search stage answered q.
func (f *Facade) SearchStage(q string) reconcile.Stage {
	return f.index.Lookup(q).Stage
}

// InterpolatedRank estimates a player's rank at date from a sorted series.
func InterpolatedRank(obs []types.RankObservation, date time.Time) (float64, error) {
	return series.InterpolatedRank(obs, date)
}

// AgeAt returns the age in years at date for a birth date.
func AgeAt(birth, date time.Time) float64 {
	return series.AgeAt(birth, date)
}

// CareerBest returns the best rank of a sorted series and the first date it
// was reached.
func CareerBest(obs []types.RankObservation) (int16, time.Time, error) {
	return series.CareerBest(obs)
}

// TitlesFor returns the tournaments won by player in singles, matched on the
// winner URL's player ID and falling back to the normalized name.
func TitlesFor(tournaments []types.Tournament, player types.Player) []types.Tournament {
	names := map[string]bool{}
	for _, n := range []string{player.FullName(), player.DisplayName} {
		if norm := reconcile.Normalize(n); norm != "" {
			names[norm] = true
		}
	}

	var titles []types.Tournament
	for _, t := range tournaments {
		for i, name := range t.SinglesWinnerNames {
			url := ""
			if i < len(t.SinglesWinnerURLs) {
				url = t.SinglesWinnerURLs[i]
			}
			if wonBy(url, name, player.PlayerID, names) {
				titles = append(titles, t)
				break
			}
		}
	}
	return titles
}

func wonBy(url, name, playerID string, names map[string]bool) bool {
	if url != "" {
		if _, id, ok := scrape.ParsePlayerURL(url); ok {
			return id == playerID
		}
	}
	return names[reconcile.Normalize(name)]
}

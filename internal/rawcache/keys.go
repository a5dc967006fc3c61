package rawcache

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/jonathan/rank-tracker/internal/types"
)

// Key names one raw unit: a ranking date, or a tournament year and type.
type Key struct {
	Kind types.EntityKind
	Date time.Time
	Year int
	Type types.TournamentType
}

// RankingsKey returns the key of the rankings unit for date.
func RankingsKey(date time.Time) Key {
	return Key{Kind: types.KindRankings, Date: types.Day(date), Year: date.Year()}
}

// TournamentsKey returns the key of the tournaments unit for year and type.
func TournamentsKey(year int, typ types.TournamentType) Key {
	return Key{Kind: types.KindTournaments, Year: year, Type: typ}
}

// String renders the key as stored in the unit envelope: "2024-01-01" or
// "2024/atp".
func (k Key) String() string {
	if k.Kind == types.KindRankings {
		return types.FormatDate(k.Date)
	}
	return fmt.Sprintf("%d/%s", k.Year, k.Type.Code())
}

// Path returns the unit file path relative to the raw directory.
func (k Key) Path() string {
	year := strconv.Itoa(k.Year)
	if k.Kind == types.KindRankings {
		return filepath.Join(string(types.KindRankings), year, "rankings_"+k.Date.Format("20060102")+unitExt)
	}
	return filepath.Join(string(types.KindTournaments), year, fmt.Sprintf("tournaments_%s_%d%s", k.Type.Code(), k.Year, unitExt))
}

var (
	rankingsFilePattern    = regexp.MustCompile(`^rankings_(\d{8})\.json\.zst$`)
	tournamentsFilePattern = regexp.MustCompile(`^tournaments_([a-z]+)_(\d{4})\.json\.zst$`)
)

// keyFromFile parses a unit file name back into its key. Temp files and
// foreign files do not parse.
func keyFromFile(kind types.EntityKind, name string) (Key, bool) {
	switch kind {
	case types.KindRankings:
		m := rankingsFilePattern.FindStringSubmatch(name)
		if m == nil {
			return Key{}, false
		}
		date, err := time.Parse("20060102", m[1])
		if err != nil {
			return Key{}, false
		}
		return RankingsKey(date), true
	case types.KindTournaments:
		m := tournamentsFilePattern.FindStringSubmatch(name)
		if m == nil {
			return Key{}, false
		}
		typ, err := types.ParseTournamentType(m[1])
		if err != nil {
			return Key{}, false
		}
		year, _ := strconv.Atoi(m[2])
		return TournamentsKey(year, typ), true
	}
	return Key{}, false
}

package table

import (
	"time"

	"github.com/jonathan/rank-tracker/internal/types"
)

// PlayerRecord is one row of players.parquet.
type PlayerRecord struct {
	PlayerKey   int32   `parquet:"player_key"`
	PlayerID    string  `parquet:"player_id"`
	DisplayName string  `parquet:"display_name"`
	FirstName   string  `parquet:"first_name"`
	LastName    string  `parquet:"last_name"`
	CountryCode *string `parquet:"country_code,optional"`
	BirthDate   *int32  `parquet:"birth_date,optional"`
	ProfileURL  *string `parquet:"profile_url,optional"`
}

// RankingRecord is one row of rankings.parquet. A null rank is a gap marker.
type RankingRecord struct {
	PlayerKey   int32  `parquet:"player_key"`
	RankingDate int32  `parquet:"ranking_date,date"`
	Rank        *int16 `parquet:"rank,optional"`
	Points      *int32 `parquet:"points,optional"`
}

// TournamentRecord is one row of tournaments.parquet.
type TournamentRecord struct {
	Year               int32    `parquet:"year"`
	TournamentName     string   `parquet:"tournament_name"`
	TournamentType     string   `parquet:"tournament_type"`
	StartDate          int32    `parquet:"start_date,date"`
	EndDate            *int32   `parquet:"end_date,optional"`
	Venue              string   `parquet:"venue"`
	CountryCode        *string  `parquet:"country_code,optional"`
	SinglesWinnerNames []string `parquet:"singles_winner_names,list"`
	SinglesWinnerURLs  []string `parquet:"singles_winner_urls,list"`
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optDays(t *time.Time) *int32 {
	if t == nil {
		return nil
	}
	d := types.DaysSinceEpoch(*t)
	return &d
}

func optDate(d *int32) *time.Time {
	if d == nil {
		return nil
	}
	t := types.DateFromDays(*d)
	return &t
}

// FromPlayer converts a reconciled player to its record.
func FromPlayer(p types.Player) PlayerRecord {
	return PlayerRecord{
		PlayerKey:   p.PlayerKey,
		PlayerID:    p.PlayerID,
		DisplayName: p.DisplayName,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		CountryCode: optString(p.CountryCode),
		BirthDate:   optDays(p.BirthDate),
		ProfileURL:  optString(p.ProfileURL),
	}
}

// Player converts the record back to the domain type.
func (r PlayerRecord) Player() types.Player {
	return types.Player{
		PlayerKey:   r.PlayerKey,
		PlayerID:    r.PlayerID,
		DisplayName: r.DisplayName,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		CountryCode: derefString(r.CountryCode),
		BirthDate:   optDate(r.BirthDate),
		ProfileURL:  derefString(r.ProfileURL),
	}
}

// FromObservation converts an observation to its record under key.
func FromObservation(key int32, o types.RankObservation) RankingRecord {
	return RankingRecord{
		PlayerKey:   key,
		RankingDate: types.DaysSinceEpoch(o.Date),
		Rank:        o.Rank,
		Points:      o.Points,
	}
}

// Observation converts the record back, mapping the key to playerID.
func (r RankingRecord) Observation(playerID string) types.RankObservation {
	return types.RankObservation{
		PlayerID: playerID,
		Date:     types.DateFromDays(r.RankingDate),
		Rank:     r.Rank,
		Points:   r.Points,
	}
}

// FromTournament converts a compacted tournament to its record.
func FromTournament(t types.Tournament) TournamentRecord {
	return TournamentRecord{
		Year:               int32(t.Year),
		TournamentName:     t.Name,
		TournamentType:     string(t.Type),
		StartDate:          types.DaysSinceEpoch(t.StartDate),
		EndDate:            optDays(t.EndDate),
		Venue:              t.Venue,
		CountryCode:        optString(t.CountryCode),
		SinglesWinnerNames: t.SinglesWinnerNames,
		SinglesWinnerURLs:  t.SinglesWinnerURLs,
	}
}

// Tournament converts the record back to the domain type.
func (r TournamentRecord) Tournament() types.Tournament {
	return types.Tournament{
		Year:               int(r.Year),
		Name:               r.TournamentName,
		Type:               types.TournamentType(r.TournamentType),
		StartDate:          types.DateFromDays(r.StartDate),
		EndDate:            optDate(r.EndDate),
		Venue:              r.Venue,
		CountryCode:        derefString(r.CountryCode),
		SinglesWinnerNames: r.SinglesWinnerNames,
		SinglesWinnerURLs:  r.SinglesWinnerURLs,
	}
}

package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/rank-tracker/internal/types"
)

func date(s string) time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPlayerRows(t *testing.T) {
	born := date("1994-02-03")
	rows := PlayerRows([]types.Player{
		{PlayerKey: 1, PlayerID: "p1", DisplayName: "Jane Roe", FirstName: "Jane", LastName: "Roe", CountryCode: "USA", BirthDate: &born},
		{PlayerKey: 2, PlayerID: "p2", DisplayName: "Max Power", FirstName: "Max", LastName: "Power"},
	})
	require.Len(t, rows, 2)

	assert.Equal(t, int32(1), rows[0][0])
	assert.Equal(t, "USA", *rows[0][5].(*string))
	assert.Equal(t, born, rows[0][6])
	assert.Nil(t, rows[0][7].(*string))

	assert.Nil(t, rows[1][5].(*string))
	assert.Nil(t, rows[1][6])
}

func TestRankingRows(t *testing.T) {
	rank := int16(4)
	points := int32(2500)
	obs := []types.RankObservation{
		{PlayerID: "p1", Date: date("2024-01-01"), Rank: &rank, Points: &points},
		{PlayerID: "p1", Date: date("2024-01-08")},
		{PlayerID: "ghost", Date: date("2024-01-01"), Rank: &rank},
	}

	rows := RankingRows(obs, map[string]int32{"p1": 7})
	require.Len(t, rows, 2, "players without a key are left out")

	assert.Equal(t, []any{int32(7), date("2024-01-01"), int16(4), int32(2500)}, rows[0])
	assert.Equal(t, []any{int32(7), date("2024-01-08"), nil, nil}, rows[1])
}

func TestTournamentRows(t *testing.T) {
	end := date("2023-02-25")
	rows := TournamentRows([]types.Tournament{
		{Year: 2023, Name: "Doha", Type: types.Tour, StartDate: date("2023-02-20"), EndDate: &end,
			Venue: "Doha, Qatar", CountryCode: "QAT", SinglesWinnerNames: []string{"Daniil Medvedev"}},
	})
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, int32(2023), row[0])
	assert.Equal(t, "tour", row[2])
	assert.Equal(t, end, row[4])
	assert.Equal(t, []string{"Daniil Medvedev"}, row[7])
	assert.Equal(t, []string{}, row[8], "missing winner urls become an empty array")
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", *nullIfEmpty("x"))
}

package scrape

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/rank-tracker/internal/scrape/scrapetest"
	"github.com/jonathan/rank-tracker/internal/types"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestParseRankings_Rows(t *testing.T) {
	html := scrapetest.RankingsPage(
		scrapetest.RankingEntry{Rank: "1", Name: "Jane Roe", Slug: "jane-roe", ID: "p1", Points: "9,855"},
		scrapetest.RankingEntry{Rank: "12T", Name: "Ann Poe", Slug: "ann-poe", ID: "p2", Points: "1,200"},
		scrapetest.RankingEntry{Rank: "12T", Name: "Bea Zoe", Points: "1,200"},
	)

	rows, err := ParseRankings(html, jan1)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "2024-01-01", rows[0].RankingDate)
	assert.Equal(t, "1", rows[0].Rank)
	assert.Equal(t, "Jane Roe", rows[0].Name)
	assert.Equal(t, "p1", rows[0].PlayerID)
	assert.Equal(t, "jane-roe", rows[0].Slug)
	require.NotNil(t, rows[0].Points)
	assert.Equal(t, 9855, *rows[0].Points)
	require.NotNil(t, rows[0].RankChange)
	assert.Equal(t, "2", *rows[0].RankChange)

	// Tied rows keep the raw cell and parse to the same rank.
	for _, row := range rows[1:] {
		rank, err := types.ParseRank(row.Rank)
		require.NoError(t, err)
		assert.Equal(t, int16(12), rank)
	}

	// A row without a profile link carries only its name.
	assert.Equal(t, "Bea Zoe", rows[2].Name)
	assert.Empty(t, rows[2].PlayerID)
	assert.Empty(t, rows[2].Slug)
}

func TestParseRankings_DropsNonNumericRank(t *testing.T) {
	html := scrapetest.RankingsPage(
		scrapetest.RankingEntry{Rank: "1", Name: "Jane Roe", Slug: "jane-roe", ID: "p1"},
		scrapetest.RankingEntry{Rank: "-", Name: "Ghost", Slug: "ghost", ID: "g1"},
	)

	rows, err := ParseRankings(html, jan1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "p1", rows[0].PlayerID)
}

func TestParseRankings_NoTable(t *testing.T) {
	_, err := ParseRankings(`<html><body><p>No rankings for this week.</p></body></html>`, jan1)
	assert.ErrorIs(t, err, ErrNoContainer)
}

func TestParseRankings_EmptyTable(t *testing.T) {
	html := `<table class="mega-table desktop-table non-live"><tbody><tr><td>nothing</td></tr></tbody></table>`

	_, err := ParseRankings(html, jan1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoContainer)
}

func TestParsePlayerURL(t *testing.T) {
	tests := []struct {
		name string
		href string
		slug string
		id   string
		ok   bool
	}{
		{"relative", "/en/players/jane-roe/p1/overview", "jane-roe", "p1", true},
		{"absolute", "https://www.atptour.com/en/players/carlos-alcaraz/a0e2/overview", "carlos-alcaraz", "a0e2", true},
		{"no suffix", "/en/players/jane-roe/p1", "jane-roe", "p1", true},
		{"missing id", "/en/players/jane-roe", "", "", false},
		{"not a player", "/en/tournaments/x/1/overview", "", "", false},
		{"empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, id, ok := ParsePlayerURL(tt.href)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.slug, slug)
			assert.Equal(t, tt.id, id)
		})
	}
}

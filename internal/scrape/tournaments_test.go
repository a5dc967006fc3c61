package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/rank-tracker/internal/scrape/scrapetest"
	"github.com/jonathan/rank-tracker/internal/types"
)

const base = "https://www.atptour.com"

func TestParseTournaments_FinishedOnly(t *testing.T) {
	html := scrapetest.ArchivePage(
		scrapetest.Event{Name: "Brisbane", Venue: "Brisbane, Australia", Dates: "31 December, 2023 - 7 January, 2024", Flag: "aus",
			SinglesName: "Jane Roe", SinglesHref: "/en/players/jane-roe/p1/overview"},
		scrapetest.Event{Name: "Hong Kong", Venue: "Hong Kong", Dates: "1 - 7 January, 2024", Flag: "hkg",
			SinglesName: "Ann Poe"},
		scrapetest.Event{Name: "Future Open", Venue: "Nowhere", Dates: "1 - 7 December, 2024", Flag: "usa"},
	)

	rows, err := ParseTournaments(html, 2024, types.Tour, base)
	require.NoError(t, err)
	require.Len(t, rows, 2, "events without a singles winner are unfinished")

	brisbane := rows[0]
	assert.Equal(t, 2024, brisbane.Year)
	assert.Equal(t, types.Tour, brisbane.Type)
	assert.Equal(t, "Brisbane", brisbane.Name)
	require.NotNil(t, brisbane.Venue)
	assert.Equal(t, "Brisbane, Australia", *brisbane.Venue)
	require.NotNil(t, brisbane.CountryCode)
	assert.Equal(t, "AUS", *brisbane.CountryCode)
	require.NotNil(t, brisbane.StartDate)
	assert.Equal(t, "2023-12-31", *brisbane.StartDate)
	require.NotNil(t, brisbane.EndDate)
	assert.Equal(t, "2024-01-07", *brisbane.EndDate)
	assert.Equal(t, []string{"Jane Roe"}, brisbane.SinglesWinnerNames)
	assert.Equal(t, []string{base + "/en/players/jane-roe/p1/overview"}, brisbane.SinglesWinnerURLs)
	require.NotNil(t, brisbane.BadgeTitle)
	assert.Equal(t, "ATP 250", *brisbane.BadgeTitle)
	require.NoError(t, brisbane.Validate())

	// A winner without a profile URL is kept with an empty URL.
	hk := rows[1]
	assert.Equal(t, []string{"Ann Poe"}, hk.SinglesWinnerNames)
	assert.Equal(t, []string{""}, hk.SinglesWinnerURLs)
	require.NotNil(t, hk.StartDate)
	assert.Equal(t, "2024-01-01", *hk.StartDate)
	require.NoError(t, hk.Validate())
}

func TestParseTournaments_NoEventList(t *testing.T) {
	_, err := ParseTournaments(`<html><body>No events</body></html>`, 2024, types.GrandSlam, base)
	assert.ErrorIs(t, err, ErrNoContainer)
}

func TestParseTournaments_UnrecognizedEvents(t *testing.T) {
	html := `<ul class="events"><li><div class="something-else">?</div></li></ul>`

	_, err := ParseTournaments(html, 2024, types.GrandSlam, base)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoContainer)
}

func TestParseTournaments_AllUnfinished(t *testing.T) {
	html := scrapetest.ArchivePage(
		scrapetest.Event{Name: "Future Open", Dates: "1 - 7 December, 2024"},
	)

	rows, err := ParseTournaments(html, 2024, types.Challenger, base)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

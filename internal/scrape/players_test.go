package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/rank-tracker/internal/scrape/scrapetest"
)

const janeURL = "https://www.atptour.com/en/players/jane-roe/p1/overview"

func TestParsePlayerProfile(t *testing.T) {
	html := scrapetest.ProfilePage(scrapetest.Profile{Name: "Jane Roe", Country: "USA", Age: "37 (1987/05/22)"})

	profile, err := ParsePlayerProfile(html, janeURL)
	require.NoError(t, err)

	assert.Equal(t, "Jane Roe", profile.FullName)
	assert.Equal(t, "p1", profile.PlayerID)
	assert.Equal(t, "jane-roe", profile.Slug)
	assert.Equal(t, "USA", profile.CountryCode)
	assert.Equal(t, "1987-05-22", profile.BirthDate)
	assert.Equal(t, "37 (1987/05/22)", profile.Details["age"])
	assert.Equal(t, "70kg", profile.Details["weight"])
	assert.Equal(t, "USA", profile.Details["country"])
	assert.Contains(t, profile.Details, "coach")
	assert.Equal(t, "https://instagram.com/x", profile.SocialLinks["instagram"])
	assert.NoError(t, profile.Validate())
}

func TestParsePlayerProfile_NoPanel(t *testing.T) {
	html := `<html><head><title>Jane Roe | Overview</title></head><body>Loading...</body></html>`

	_, err := ParsePlayerProfile(html, janeURL)
	assert.ErrorIs(t, err, ErrNoContainer)
}

func TestParsePlayerProfile_BadURL(t *testing.T) {
	html := scrapetest.ProfilePage(scrapetest.Profile{Name: "Jane Roe", Country: "USA"})

	_, err := ParsePlayerProfile(html, "https://www.atptour.com/en/players")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no player id")
}

func TestParsePlayerProfile_NoBirthDate(t *testing.T) {
	html := scrapetest.ProfilePage(scrapetest.Profile{Name: "Jane Roe", Country: "USA", Age: "-"})

	profile, err := ParsePlayerProfile(html, janeURL)
	require.NoError(t, err)
	assert.Empty(t, profile.BirthDate)
}

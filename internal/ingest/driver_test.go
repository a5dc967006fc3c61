package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/rank-tracker/internal/fetch"
	"github.com/jonathan/rank-tracker/internal/ledger"
	"github.com/jonathan/rank-tracker/internal/rawcache"
	"github.com/jonathan/rank-tracker/internal/scrape"
	"github.com/jonathan/rank-tracker/internal/scrape/scrapetest"
	"github.com/jonathan/rank-tracker/internal/types"
)

const rankingsPath = "/en/rankings/singles?rankRange=0-5000&dateWeek="

func day(s string) time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

type env struct {
	raw      *rawcache.Store
	profiles *rawcache.ProfileStore
	ledger   *ledger.Ledger
	scraper  *scrape.Scraper
}

func newEnv(t *testing.T, baseURL string) *env {
	t.Helper()
	dir := t.TempDir()

	raw, err := rawcache.NewStore(filepath.Join(dir, "raw"))
	require.NoError(t, err)
	profiles, err := rawcache.OpenProfileStore(raw.Dir())
	require.NoError(t, err)
	l, err := ledger.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = profiles.Close()
		_ = l.Close()
	})

	client := fetch.NewClient(&fetch.Options{Timeout: 2 * time.Second})
	return &env{
		raw:      raw,
		profiles: profiles,
		ledger:   l,
		scraper:  scrape.New(client, scrape.Options{BaseURL: baseURL}),
	}
}

func (e *env) driver(opts Options) *Driver {
	if opts.Now == nil {
		opts.Now = func() time.Time { return day("2030-06-01") }
	}
	return New(e.scraper, e.raw, e.profiles, e.ledger, opts)
}

func registerWeeks(src *scrapetest.Source, dates ...string) {
	for i, d := range dates {
		src.Handle(rankingsPath+d, scrapetest.RankingsPage(
			scrapetest.RankingEntry{Rank: "1", Name: "Jane Roe", Slug: "jane-roe", ID: "p1", Points: "9,000"},
			scrapetest.RankingEntry{Rank: "2", Name: "Max Power", Slug: "max-power", ID: "p2", Points: "8,000"},
			scrapetest.RankingEntry{Rank: "3T", Name: "Week Player", Slug: "week-player", ID: "w" + string(rune('a'+i)), Points: "100"},
		))
	}
}

func TestRankings_SecondRunFetchesNothing(t *testing.T) {
	src := scrapetest.NewSource()
	defer src.Close()
	registerWeeks(src, "2024-01-01", "2024-01-08", "2024-01-15")

	e := newEnv(t, src.URL)
	d := e.driver(Options{})

	report, err := d.Rankings(context.Background(), day("2024-01-01"), day("2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Planned)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 9, report.Rows)
	assert.Equal(t, 3, src.TotalHits())
	assert.True(t, e.raw.Has(rawcache.RankingsKey(day("2024-01-08"))))

	report, err = d.Rankings(context.Background(), day("2024-01-01"), day("2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Fetched)
	assert.Equal(t, 3, report.Cached)
	assert.Equal(t, 3, src.TotalHits(), "second run makes zero fetches")

	runs, err := e.ledger.Runs(10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRankings_NotFoundIsSkippedAndRetried(t *testing.T) {
	src := scrapetest.NewSource()
	defer src.Close()
	registerWeeks(src, "2024-01-01")

	e := newEnv(t, src.URL)
	d := e.driver(Options{})

	report, err := d.Rankings(context.Background(), day("2024-01-01"), day("2024-01-08"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.NotFound)
	assert.False(t, e.raw.Has(rawcache.RankingsKey(day("2024-01-08"))))

	_, err = d.Rankings(context.Background(), day("2024-01-01"), day("2024-01-08"))
	require.NoError(t, err)
	assert.Equal(t, 1, src.Hits(rankingsPath+"2024-01-01"))
	assert.Equal(t, 2, src.Hits(rankingsPath+"2024-01-08"), "not-found units are not cached")
}

func TestRankings_CurrentWeekAlwaysRefetched(t *testing.T) {
	src := scrapetest.NewSource()
	defer src.Close()
	registerWeeks(src, "2024-01-01", "2024-01-08")

	e := newEnv(t, src.URL)
	d := e.driver(Options{Now: func() time.Time { return day("2024-01-10") }})

	for i := 0; i < 2; i++ {
		_, err := d.Rankings(context.Background(), day("2024-01-01"), day("2024-01-08"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.Hits(rankingsPath+"2024-01-01"))
	assert.Equal(t, 2, src.Hits(rankingsPath+"2024-01-08"))
}

func TestRankings_Force(t *testing.T) {
	src := scrapetest.NewSource()
	defer src.Close()
	registerWeeks(src, "2024-01-01")

	e := newEnv(t, src.URL)
	_, err := e.driver(Options{}).Rankings(context.Background(), day("2024-01-01"), day("2024-01-01"))
	require.NoError(t, err)

	report, err := e.driver(Options{Force: true}).Rankings(context.Background(), day("2024-01-01"), day("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 2, src.TotalHits())
}

func TestRankings_ParseErrorIsCounted(t *testing.T) {
	src := scrapetest.NewSource()
	defer src.Close()
	src.Handle(rankingsPath+"2024-01-01", `<html><table class="mega-table"><tbody></tbody></table></html>`)

	e := newEnv(t, src.URL)
	report, err := e.driver(Options{}).Rankings(context.Background(), day("2024-01-01"), day("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.ParseErrors)
	assert.Equal(t, 0, report.Fetched)
	assert.Contains(t, report.Summary(), "1 failed to parse")
}

func TestRankings_SourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := newEnv(t, srv.URL)
	d := e.driver(Options{MaxConsecutiveFailures: 3})

	report, err := d.Rankings(context.Background(), day("2024-01-01"), day("2024-02-26"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSourceUnreachable))
	assert.Equal(t, 3, report.Failed)
	assert.NotEmpty(t, report.Error)
}

func TestRankings_Cancelled(t *testing.T) {
	src := scrapetest.NewSource()
	defer src.Close()

	e := newEnv(t, src.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.driver(Options{}).Rankings(ctx, day("2024-01-01"), day("2024-01-15"))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, src.TotalHits())
}

func TestTournaments(t *testing.T) {
	src := scrapetest.NewSource()
	defer src.Close()
	src.Handle("/en/scores/results-archive?year=2023&tournamentType=atp", scrapetest.ArchivePage(
		scrapetest.Event{Name: "Doha", Venue: "Doha, Qatar", Dates: "20 - 25 February, 2023", Flag: "qat",
			SinglesName: "Daniil Medvedev", SinglesHref: "/en/players/daniil-medvedev/mm58/overview"},
		scrapetest.Event{Name: "Unfinished", Venue: "Somewhere", Dates: "1 - 7 March, 2023", Flag: "usa"},
	))

	e := newEnv(t, src.URL)
	d := e.driver(Options{})

	report, err := d.Tournaments(context.Background(), 2023, 2023, []types.TournamentType{types.Tour, types.Challenger})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Planned)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.NotFound)
	assert.Equal(t, 1, report.Rows)

	unit, err := rawcache.Read[types.TournamentRow](e.raw, rawcache.TournamentsKey(2023, types.Tour))
	require.NoError(t, err)
	require.Len(t, unit.Rows, 1)
	assert.Equal(t, "Doha", unit.Rows[0].Name)
}

func TestPlayers_BestRankedFirstAndSkipKnown(t *testing.T) {
	src := scrapetest.NewSource()
	defer src.Close()
	registerWeeks(src, "2024-01-01")
	src.Handle("/en/players/jane-roe/p1/overview", scrapetest.ProfilePage(scrapetest.Profile{Name: "Jane Roe", Country: "USA", Age: "30 (1994/02/03)"}))
	src.Handle("/en/players/max-power/p2/overview", scrapetest.ProfilePage(scrapetest.Profile{Name: "Max Power", Country: "GER", Age: "25"}))

	e := newEnv(t, src.URL)
	d := e.driver(Options{})
	_, err := d.Rankings(context.Background(), day("2024-01-01"), day("2024-01-01"))
	require.NoError(t, err)

	report, err := d.Players(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Planned)
	assert.Equal(t, 1, report.Fetched)

	p, err := e.profiles.Read(e.scraper.PlayerURL("jane-roe", "p1"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", p.FullName)
	assert.Equal(t, "USA", p.CountryCode)

	report, err = d.Players(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, src.Hits("/en/players/max-power/p2/overview"), "p1 is known, next best is fetched")
	assert.Equal(t, 1, src.Hits("/en/players/jane-roe/p1/overview"))
}

func TestPrioritizeCandidates(t *testing.T) {
	byID := map[string]*Candidate{
		"c": {PlayerID: "c", BestRank: 5, FirstSeen: "2020-01-06"},
		"a": {PlayerID: "a", BestRank: 1, FirstSeen: "2021-01-04"},
		"b": {PlayerID: "b", BestRank: 5, FirstSeen: "2019-01-07"},
		"d": {PlayerID: "d", BestRank: 9, FirstSeen: "2019-01-07"},
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{"all", 0, []string{"a", "b", "c", "d"}},
		{"limited", 2, []string{"a", "b"}},
		{"over", 10, []string{"a", "b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PrioritizeCandidates(byID, tt.limit)
			ids := make([]string, len(got))
			for i, c := range got {
				ids[i] = c.PlayerID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

package main

import (
	"bytes"
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/rank-tracker/internal/scrape/scrapetest"
	"github.com/jonathan/rank-tracker/internal/types"
)

func fakeSource() *scrapetest.Source {
	src := scrapetest.NewSource()
	src.Handle("/en/rankings/singles?rankRange=0-5000&dateWeek=2024-01-01", scrapetest.RankingsPage(
		scrapetest.RankingEntry{Rank: "1", Name: "Jane Roe", Slug: "jane-roe", ID: "p1", Points: "9,000"},
		scrapetest.RankingEntry{Rank: "2", Name: "Max Power", Slug: "max-power", ID: "p2", Points: "8,000"},
	))
	src.Handle("/en/rankings/singles?rankRange=0-5000&dateWeek=2024-01-08", scrapetest.RankingsPage(
		scrapetest.RankingEntry{Rank: "1", Name: "J. Roe", Points: "9,100"},
		scrapetest.RankingEntry{Rank: "2", Name: "Unknown Person", Points: "8,100"},
	))
	src.Handle("/en/scores/results-archive?year=2023&tournamentType=atp", scrapetest.ArchivePage(
		scrapetest.Event{Name: "Doha", Venue: "Doha, Qatar", Dates: "20 - 25 February, 2023", Flag: "qat",
			SinglesName: "Jane Roe", SinglesHref: "/en/players/jane-roe/p1/overview"},
	))
	src.Handle("/en/players/jane-roe/p1/overview", scrapetest.ProfilePage(scrapetest.Profile{Name: "Jane Roe", Country: "USA", Age: "30 (1994/02/03)"}))
	return src
}

func TestCommands_EndToEnd(t *testing.T) {
	src := fakeSource()
	defer src.Close()
	dir := t.TempDir()
	cfg := writeConfig(t, dir, src.URL)

	out, err := execute(t, "--config", cfg, "scrape-rankings", "--from", "2024-01-01", "--to", "2024-01-08")
	require.NoError(t, err)
	assert.Contains(t, out, "RANKINGS INGESTION")
	assert.Contains(t, out, "2 units (4 rows)")

	out, err = execute(t, "--config", cfg, "scrape-tournaments", "--from-year", "2023", "--to-year", "2023", "--types", "atp")
	require.NoError(t, err)
	assert.Contains(t, out, "TOURNAMENTS INGESTION")

	out, err = execute(t, "--config", cfg, "scrape-players", "--max", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "PLAYERS INGESTION")

	out, err = execute(t, "--config", cfg, "compact")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPACTION")

	out, err = execute(t, "--config", cfg, "search", "roe", "--at", "2024-01-04")
	require.NoError(t, err)
	assert.Contains(t, out, "Roe, Jane (USA)")
	assert.Contains(t, out, "career best: #1 on 2024-01-01")
	assert.Contains(t, out, "rank on 2024-01-04: 1.0")
	assert.Contains(t, out, "2023 Doha (tour)")

	out, err = execute(t, "--config", cfg, "unresolved")
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown Person")
	assert.NotContains(t, out, "J. Roe")

	// A second scrape of the same weeks is served from the cache.
	hits := src.TotalHits()
	_, err = execute(t, "--config", cfg, "scrape-rankings", "--from", "2024-01-01", "--to", "2024-01-08")
	require.NoError(t, err)
	assert.Equal(t, hits, src.TotalHits())
}

func TestRunCommand(t *testing.T) {
	src := fakeSource()
	defer src.Close()
	dir := t.TempDir()
	cfg := writeConfig(t, dir, src.URL)

	out, err := execute(t, "--config", cfg, "run",
		"--from", "2024-01-01", "--to", "2024-01-08",
		"--from-year", "2023", "--to-year", "2023", "--types", "atp", "--max-players", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "RANKINGS INGESTION")
	assert.Contains(t, out, "TOURNAMENTS INGESTION")
	assert.Contains(t, out, "PLAYERS INGESTION")
	assert.Contains(t, out, "COMPACTION")

	out, err = execute(t, "--data-dir", dir, "search", "jane")
	require.NoError(t, err)
	assert.Contains(t, out, "Roe, Jane (USA)")
}

func TestRunCommand_PublishRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	src := fakeSource()
	defer src.Close()
	cfg := writeConfig(t, t.TempDir(), src.URL)

	_, err := execute(t, "--config", cfg, "run", "--from", "2024-01-01", "--to", "2024-01-01", "--publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
	assert.Zero(t, src.TotalHits(), "nothing is fetched before the database is known")
}

func TestSearch_NotCompacted(t *testing.T) {
	_, err := execute(t, "--data-dir", t.TempDir(), "search", "roe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run compact first")
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	resetFlags()
	t.Cleanup(func() { rootCmd.SetContext(context.Background()) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--data-dir", t.TempDir(), "serve", "--port", "0"})
	assert.NoError(t, rootCmd.ExecuteContext(ctx))
}

func TestPublish_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	src := fakeSource()
	defer src.Close()
	dir := t.TempDir()
	cfg := writeConfig(t, dir, src.URL)

	_, err := execute(t, "--config", cfg, "scrape-rankings", "--from", "2024-01-01", "--to", "2024-01-01")
	require.NoError(t, err)
	_, err = execute(t, "--config", cfg, "compact")
	require.NoError(t, err)

	_, err = execute(t, "--config", cfg, "publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestRankingsRange(t *testing.T) {
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from, to string
		want     [2]string
		wantErr  string
	}{
		{"defaults", "", "", [2]string{"2025-01-01", "2025-03-12"}, ""},
		{"explicit", "2024-01-01", "2024-02-01", [2]string{"2024-01-01", "2024-02-01"}, ""},
		{"bad date", "2024-13-01", "", [2]string{}, "invalid --from"},
		{"reversed", "2024-02-01", "2024-01-01", [2]string{}, "before --from"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := rankingsRange(tt.from, tt.to, now)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want[0], types.FormatDate(from))
			assert.Equal(t, tt.want[1], types.FormatDate(to))
		})
	}
}

func TestYearRange(t *testing.T) {
	now := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	from, to, err := yearRange(0, 0, now)
	require.NoError(t, err)
	assert.Equal(t, 2025, from)
	assert.Equal(t, 2025, to)

	from, to, err = yearRange(2019, 2021, now)
	require.NoError(t, err)
	assert.Equal(t, 2019, from)
	assert.Equal(t, 2021, to)

	_, _, err = yearRange(2022, 2021, now)
	assert.Error(t, err)
}

func TestParseTypes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []types.TournamentType
		wantErr bool
	}{
		{"codes", "gs,atp", []types.TournamentType{types.GrandSlam, types.Tour}, false},
		{"names and spaces", " challenger , fu ", []types.TournamentType{types.Challenger, types.Futures}, false},
		{"duplicates", "atp,tour", []types.TournamentType{types.Tour}, false},
		{"unknown", "atp,wta", nil, true},
		{"empty", " , ", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTypes(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCommands_FlagsValidation(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		errorString string
	}{
		{"search without query", []string{"search"}, "requires at least 1 arg"},
		{"bad rankings date", []string{"scrape-rankings", "--from", "yesterday"}, "invalid --from"},
		{"bad tournament type", []string{"scrape-tournaments", "--types", "wta"}, "unknown tournament type"},
	}

	binaryPath := getBinaryPath(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			output, err := cmd.CombinedOutput()
			assert.Error(t, err)
			assert.Contains(t, string(output), tt.errorString)
		})
	}
}

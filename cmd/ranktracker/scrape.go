package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/rank-tracker/internal/observability"
	"github.com/jonathan/rank-tracker/internal/types"
)

var scrapeRankingsCmd = &cobra.Command{
	Use:   "scrape-rankings",
	Short: "Fetch weekly singles rankings into the raw cache",
	Long:  "Fetch the weekly singles rankings for every Monday between --from and --to. Weeks already cached are skipped unless --force is set; the current week is always refetched.",
	RunE:  runScrapeRankings,
}

var scrapeTournamentsCmd = &cobra.Command{
	Use:   "scrape-tournaments",
	Short: "Fetch tournament results archives into the raw cache",
	RunE:  runScrapeTournaments,
}

var scrapePlayersCmd = &cobra.Command{
	Use:   "scrape-players",
	Short: "Fetch player profiles for players seen in the cached rankings",
	Long:  "Fetch up to --max player profiles, best ranked players first. Players with a stored profile are skipped unless --force is set.",
	RunE:  runScrapePlayers,
}

var (
	rankingsFrom  string
	rankingsTo    string
	rankingsForce bool

	tournamentsFromYear int
	tournamentsToYear   int
	tournamentsTypes    string
	tournamentsForce    bool

	playersMax   int
	playersForce bool
)

func init() {
	scrapeRankingsCmd.Flags().StringVar(&rankingsFrom, "from", "", "First week, YYYY-MM-DD (default: January 1 of this year)")
	scrapeRankingsCmd.Flags().StringVar(&rankingsTo, "to", "", "Last week, YYYY-MM-DD (default: today)")
	scrapeRankingsCmd.Flags().BoolVar(&rankingsForce, "force", false, "Refetch weeks that are already cached")

	scrapeTournamentsCmd.Flags().IntVar(&tournamentsFromYear, "from-year", 0, "First year (default: this year)")
	scrapeTournamentsCmd.Flags().IntVar(&tournamentsToYear, "to-year", 0, "Last year (default: this year)")
	scrapeTournamentsCmd.Flags().StringVar(&tournamentsTypes, "types", "gs,atp,ch,fu", "Comma-separated tournament types")
	scrapeTournamentsCmd.Flags().BoolVar(&tournamentsForce, "force", false, "Refetch years that are already cached")

	scrapePlayersCmd.Flags().IntVar(&playersMax, "max", 100, "Maximum number of profiles to fetch (0 for all)")
	scrapePlayersCmd.Flags().BoolVar(&playersForce, "force", false, "Refetch profiles that are already stored")

	rootCmd.AddCommand(scrapeRankingsCmd, scrapeTournamentsCmd, scrapePlayersCmd)
}

// parseDateFlag parses a YYYY-MM-DD flag value, returning def when empty.
func parseDateFlag(name, value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	d, err := types.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}

// rankingsRange resolves the --from and --to flags.
func rankingsRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	start, err := parseDateFlag("from", from, time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDateFlag("to", to, types.Day(now))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", types.FormatDate(end), types.FormatDate(start))
	}
	return start, end, nil
}

// yearRange resolves the --from-year and --to-year flags.
func yearRange(from, to int, now time.Time) (int, int, error) {
	if from == 0 {
		from = now.Year()
	}
	if to == 0 {
		to = now.Year()
	}
	if to < from {
		return 0, 0, fmt.Errorf("--to-year %d is before --from-year %d", to, from)
	}
	return from, to, nil
}

// parseTypes parses a comma-separated list of tournament types or codes.
func parseTypes(s string) ([]types.TournamentType, error) {
	var out []types.TournamentType
	seen := map[types.TournamentType]bool{}
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := types.ParseTournamentType(part)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no tournament types given")
	}
	return out, nil
}

func runScrapeRankings(cmd *cobra.Command, _ []string) error {
	from, to, err := rankingsRange(rankingsFrom, rankingsTo, time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	report, err := e.driver(rankingsForce).Rankings(cmd.Context(), from, to)
	observability.NewPrinter(cmd.OutOrStdout()).PrintReport(report)
	return err
}

func runScrapeTournaments(cmd *cobra.Command, _ []string) error {
	fromYear, toYear, err := yearRange(tournamentsFromYear, tournamentsToYear, time.Now())
	if err != nil {
		return err
	}
	typs, err := parseTypes(tournamentsTypes)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	report, err := e.driver(tournamentsForce).Tournaments(cmd.Context(), fromYear, toYear, typs)
	observability.NewPrinter(cmd.OutOrStdout()).PrintReport(report)
	return err
}

func runScrapePlayers(cmd *cobra.Command, _ []string) error {
	if playersMax < 0 {
		return fmt.Errorf("--max must not be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	report, err := e.driver(playersForce).Players(cmd.Context(), playersMax)
	observability.NewPrinter(cmd.OutOrStdout()).PrintReport(report)
	return err
}

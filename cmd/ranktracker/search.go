package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/rank-tracker/internal/observability"
	"github.com/jonathan/rank-tracker/internal/query"
	"github.com/jonathan/rank-tracker/internal/series"
	"github.com/jonathan/rank-tracker/internal/types"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search players by name",
	Long:  "Search the compacted players table. With --details, print each match's career best, titles and, with --at, the interpolated rank on that date.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var (
	searchDetails bool
	searchAt      string
)

// maxDetailed bounds how many matches get the per-player details.
const maxDetailed = 5

func init() {
	searchCmd.Flags().BoolVar(&searchDetails, "details", false, "Print career best and titles for the top matches")
	searchCmd.Flags().StringVar(&searchAt, "at", "", "Also print the interpolated rank on this date, YYYY-MM-DD (implies --details)")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := strings.Join(args, " ")

	var at time.Time
	if searchAt != "" {
		d, err := parseDateFlag("at", searchAt, time.Time{})
		if err != nil {
			return err
		}
		at = d
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := openFacade(cfg)
	if err != nil {
		return err
	}
	if _, err := f.Players(); errors.Is(err, query.ErrNotIngested) {
		return fmt.Errorf("%w: run compact first", err)
	}

	out := cmd.OutOrStdout()
	found := f.Search(q)
	observability.NewPrinter(out).PrintSearchResults(q, f.SearchStage(q).String(), found)

	if len(found) == 0 || (!searchDetails && at.IsZero()) {
		return nil
	}
	return printDetails(out, f, found[:min(len(found), maxDetailed)], at)
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func printDetails(out io.Writer, f *query.Facade, players []types.Player, at time.Time) error {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.PlayerID
	}
	obs, err := f.RankingsFor(ids)
	if err != nil {
		return err
	}
	tournaments, err := f.Tournaments()
	if err != nil && !errors.Is(err, query.ErrNotIngested) {
		return err
	}
	byPlayer := series.ByPlayer(obs)

	for _, p := range players {
		fmt.Fprintf(out, "\n%s\n", p.Label())

		history := byPlayer[p.PlayerID]
		if rank, date, err := query.CareerBest(history); err == nil {
			fmt.Fprintf(out, "  career best: #%d on %s\n", rank, types.FormatDate(date))
		} else {
			fmt.Fprintf(out, "  career best: unranked\n")
		}

		if !at.IsZero() {
			if rank, err := query.InterpolatedRank(history, at); err == nil {
				fmt.Fprintf(out, "  rank on %s: %.1f\n", types.FormatDate(at), rank)
			}
		}

		titles := query.TitlesFor(tournaments, p)
		fmt.Fprintf(out, "  titles: %d\n", len(titles))
		for _, t := range titles {
			fmt.Fprintf(out, "    %d %s (%s)\n", t.Year, t.Name, t.Type)
		}
	}
	return nil
}

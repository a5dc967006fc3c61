package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/rank-tracker/internal/db"
	"github.com/jonathan/rank-tracker/internal/observability"
	"github.com/jonathan/rank-tracker/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every ingestion batch, compact, and optionally publish",
	Long:  "Fetch rankings and tournaments concurrently, then player profiles, then rebuild the compacted tables. With --publish, the tables are also copied to PostgreSQL.",
	RunE:  runRun,
}

var (
	runFrom        string
	runTo          string
	runFromYear    int
	runToYear      int
	runTypes       string
	runMaxPlayers  int
	runSkipPlayers bool
	runDoPublish   bool
	runForce       bool
	runDatabaseURL string
)

func init() {
	runCmd.Flags().StringVar(&runFrom, "from", "", "First rankings week, YYYY-MM-DD (default: January 1 of this year)")
	runCmd.Flags().StringVar(&runTo, "to", "", "Last rankings week, YYYY-MM-DD (default: today)")
	runCmd.Flags().IntVar(&runFromYear, "from-year", 0, "First tournament year (default: this year)")
	runCmd.Flags().IntVar(&runToYear, "to-year", 0, "Last tournament year (default: this year)")
	runCmd.Flags().StringVar(&runTypes, "types", "gs,atp,ch,fu", "Comma-separated tournament types")
	runCmd.Flags().IntVar(&runMaxPlayers, "max-players", 100, "Maximum number of profiles to fetch (0 for all)")
	runCmd.Flags().BoolVar(&runSkipPlayers, "skip-players", false, "Do not fetch player profiles")
	runCmd.Flags().BoolVar(&runDoPublish, "publish", false, "Publish the compacted tables to PostgreSQL")
	runCmd.Flags().BoolVar(&runForce, "force", false, "Refetch units that are already cached")
	runCmd.Flags().StringVar(&runDatabaseURL, "db-url", "", "Database URL for --publish")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	now := time.Now()
	from, to, err := rankingsRange(runFrom, runTo, now)
	if err != nil {
		return err
	}
	fromYear, toYear, err := yearRange(runFromYear, runToYear, now)
	if err != nil {
		return err
	}
	typs, err := parseTypes(runTypes)
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

	c, err := e.compactor()
	if err != nil {
		return err
	}
	f, err := openFacade(cfg)
	if err != nil {
		return err
	}

	var database *db.DB
	if runDoPublish {
		database, err = connectDB(cmd.Context(), cfg, runDatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
	}

	runner := &pipeline.Runner{Driver: e.driver(runForce), Compactor: c, Facade: f, DB: database}
	result, err := runner.Run(cmd.Context(), pipeline.RunOptions{
		From:            from,
		To:              to,
		FromYear:        fromYear,
		ToYear:          toYear,
		TournamentTypes: typs,
		MaxPlayers:      runMaxPlayers,
		SkipPlayers:     runSkipPlayers,
		Publish:         runDoPublish,
		Verbose:         cfg.Verbose,
	})

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if result != nil {
		for _, report := range result.Reports {
			printer.PrintReport(report)
		}
		printer.PrintCompaction(result.Compaction)
		if result.Published != nil {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Published %d players, %d rankings, %d tournaments\n",
				result.Published.Players, result.Published.Rankings, result.Published.Tournaments)
		}
	}
	return err
}

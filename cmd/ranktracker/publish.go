package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/rank-tracker/internal/config"
	"github.com/jonathan/rank-tracker/internal/db"
	"github.com/jonathan/rank-tracker/internal/pipeline"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the compacted tables to PostgreSQL",
	Long:  "Replace the players, rankings and tournaments tables in PostgreSQL with the current compacted tables, in one transaction.",
	RunE:  runPublish,
}

var publishDatabaseURL string

func init() {
	publishCmd.Flags().StringVar(&publishDatabaseURL, "db-url", "", "Database URL (overrides config and DATABASE_URL)")

	rootCmd.AddCommand(publishCmd)
}

// connectDB connects to the configured database, preferring an explicit URL.
func connectDB(ctx context.Context, cfg *config.Config, override string) (*db.DB, error) {
	url := override
	if url == "" {
		url = cfg.DatabaseURL
	}
	if url == "" {
		return nil, fmt.Errorf("database URL is required (set DATABASE_URL, database_url in config, or --db-url)")
	}
	return db.Connect(ctx, url)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f, err := openFacade(cfg)
	if err != nil {
		return err
	}
	snap, err := pipeline.Snapshot(f)
	if err != nil {
		return fmt.Errorf("failed to read compacted tables: %w", err)
	}

	database, err := connectDB(cmd.Context(), cfg, publishDatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := database.Publish(cmd.Context(), snap)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Published %d players, %d rankings, %d tournaments\n",
		stats.Players, stats.Rankings, stats.Tournaments)
	return nil
}

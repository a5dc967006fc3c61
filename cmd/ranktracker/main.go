// Package main provides the rank-tracker CLI: incremental ingestion of the
// ATP rankings, tournaments and player profiles, compaction into columnar
// tables, and queries over them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dataDir    string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "ranktracker",
	Short: "ATP rankings ingestion and query tool",
	Long: "ranktracker scrapes weekly ATP singles rankings, tournament results and player profiles into a " +
		"resumable raw cache, reconciles player identities and compacts everything into parquet tables.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to JSON config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed progress")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Interrupting leaves written units intact; the next run resumes.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/rank-tracker/internal/observability"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rebuild the compacted tables from the raw cache",
	Long:  "Reconcile player identities across every cached unit and rewrite the players, rankings and tournaments parquet tables. Safe to run at any time; the tables are rebuilt from scratch.",
	RunE:  runCompact,
}

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved",
	Short: "List ranking names that never resolved to a player ID",
	RunE:  runUnresolved,
}

var unresolvedLimit int

func init() {
	unresolvedCmd.Flags().IntVar(&unresolvedLimit, "limit", 0, "Show at most this many names (0 for all)")

	rootCmd.AddCommand(compactCmd, unresolvedCmd)
}

func runCompact(cmd *cobra.Command, _ []string) error {
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
	stats, err := c.CompactAll(cmd.Context())
	observability.NewPrinter(cmd.OutOrStdout()).PrintCompaction(stats)
	return err
}

func runUnresolved(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	list, err := e.ledger.Unresolved()
	if err != nil {
		return err
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintUnresolved(list, unresolvedLimit)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/rank-tracker/internal/db"
	"github.com/jonathan/rank-tracker/internal/pipeline"
	"github.com/jonathan/rank-tracker/internal/server"
)

var (
	servePort     int
	serveReadOnly bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query API",
	Long: `Start an HTTP server over the compacted tables. Unless --read-only is set,
POST /run/stream runs the pipeline and streams its progress; the server then
holds the player key store open, so compact and run cannot be used alongside it.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&serveReadOnly, "read-only", false, "Disable the run endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	f, err := openFacade(cfg)
	if err != nil {
		return err
	}

	var runner *pipeline.Runner
	if !serveReadOnly {
		c, err := e.compactor()
		if err != nil {
			return err
		}
		runner = &pipeline.Runner{Driver: e.driver(false), Compactor: c, Facade: f}

		// Runs can publish when a database is configured.
		if cfg.DatabaseURL != "" {
			database, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()
			runner.DB = database
		}
	}

	srv, err := server.New(server.Config{
		Port:   servePort,
		Facade: f,
		Ledger: e.ledger,
		Runner: runner,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(cmd.Context())
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag variable to its default between in-process
// executions of rootCmd.
func resetFlags() {
	configPath, dataDir, verbose = "", "", false
	rankingsFrom, rankingsTo, rankingsForce = "", "", false
	tournamentsFromYear, tournamentsToYear, tournamentsTypes, tournamentsForce = 0, 0, "gs,atp,ch,fu", false
	playersMax, playersForce = 100, false
	unresolvedLimit = 0
	searchDetails, searchAt = false, ""
	publishDatabaseURL = ""
	runFrom, runTo, runFromYear, runToYear, runTypes = "", "", 0, 0, "gs,atp,ch,fu"
	runMaxPlayers, runSkipPlayers, runDoPublish, runForce, runDatabaseURL = 100, false, false, false, ""
	servePort, serveReadOnly = 8080, false
}

// execute runs the CLI in process and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// writeConfig writes a config file pointing at baseURL with a short delay.
func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"data_dir":              dir,
		"base_url":              baseURL,
		"request_delay_seconds": 0.001,
		"fetch_timeout_seconds": 2,
	})
	require.NoError(t, err)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// getBinaryPath returns the path to the ranktracker binary for testing
func getBinaryPath(t *testing.T) string {
	binaryName := "ranktracker"
	if testing.Short() {
		t.Skip("Skipping CLI tests in short mode")
	}

	binaryPath := filepath.Join("..", "..", "bin", binaryName)
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		t.Skipf("Binary not found at %s, build it first with 'make build'", binaryPath)
	}

	return binaryPath
}

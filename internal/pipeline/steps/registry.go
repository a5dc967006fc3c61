// Package steps provides step definitions and dependency validation for a
// full rank-tracker run.
package steps

import (
	"fmt"
	"sort"
)

// Step categories
const (
	CategoryIngestion  = "ingestion"
	CategoryCompaction = "compaction"
	CategoryPublishing = "publishing"
)

// Step names
const (
	ScrapeRankings    = "scrape_rankings"
	ScrapeTournaments = "scrape_tournaments"
	ScrapePlayers     = "scrape_players"
	Compact           = "compact"
	Publish           = "publish"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name         string
	Category     string
	Dependencies []string
	// Optional steps are waited on when they are part of the run.
	Optional []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	ScrapeRankings: {
		Name:         ScrapeRankings,
		Category:     CategoryIngestion,
		Dependencies: []string{},
	},
	ScrapeTournaments: {
		Name:         ScrapeTournaments,
		Category:     CategoryIngestion,
		Dependencies: []string{},
	},
	ScrapePlayers: {
		Name:         ScrapePlayers,
		Category:     CategoryIngestion,
		Dependencies: []string{ScrapeRankings},
	},
	Compact: {
		Name:         Compact,
		Category:     CategoryCompaction,
		Dependencies: []string{ScrapeRankings, ScrapeTournaments},
		Optional:     []string{ScrapePlayers},
	},
	Publish: {
		Name:         Publish,
		Category:     CategoryPublishing,
		Dependencies: []string{Compact},
	},
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: missing dependencies: %v", e.Step, e.MissingDependencies)
}

// ValidateDependencies checks that every dependency of stepName is done.
// Skipped steps satisfy a dependency only when it is optional.
func ValidateDependencies(stepName string, done, skipped map[string]bool) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !done[dep] {
			missing = append(missing, dep)
		}
	}
	for _, dep := range def.Optional {
		if !done[dep] && !skipped[dep] {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}
	return nil
}

// GetAvailableSteps returns the steps that are neither done nor skipped and
// whose dependencies are met, sorted by name.
func GetAvailableSteps(done, skipped map[string]bool) []string {
	var available []string
	for stepName := range StepRegistry {
		if done[stepName] || skipped[stepName] {
			continue
		}
		if err := ValidateDependencies(stepName, done, skipped); err != nil {
			continue
		}
		available = append(available, stepName)
	}
	sort.Strings(available)
	return available
}

// GetBlockedSteps returns the pending steps whose dependencies are not met,
// sorted by name.
func GetBlockedSteps(done, skipped map[string]bool) []string {
	var blocked []string
	for stepName := range StepRegistry {
		if done[stepName] || skipped[stepName] {
			continue
		}
		if err := ValidateDependencies(stepName, done, skipped); err != nil {
			blocked = append(blocked, stepName)
		}
	}
	sort.Strings(blocked)
	return blocked
}

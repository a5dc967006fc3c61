package steps

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRegistry(t *testing.T) {
	expectedSteps := []string{ScrapeRankings, ScrapeTournaments, ScrapePlayers, Compact, Publish}

	require.Len(t, StepRegistry, len(expectedSteps))
	for _, stepName := range expectedSteps {
		def, ok := StepRegistry[stepName]
		require.True(t, ok, "Step %s should be in registry", stepName)
		assert.Equal(t, stepName, def.Name)
		assert.NotEmpty(t, def.Category)
		for _, dep := range append(def.Dependencies, def.Optional...) {
			_, ok := StepRegistry[dep]
			assert.True(t, ok, "%s depends on unknown step %s", stepName, dep)
		}
	}
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{
		Step:                "test_step",
		MissingDependencies: []string{"dep1", "dep2"},
	}

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing dependencies")
	assert.Contains(t, err.Error(), "test_step")
}

func TestValidateDependencies(t *testing.T) {
	tests := []struct {
		name    string
		step    string
		done    []string
		skipped []string
		missing []string
	}{
		{"no dependencies", ScrapeRankings, nil, nil, nil},
		{"players waits for rankings", ScrapePlayers, nil, nil, []string{ScrapeRankings}},
		{"compact waits for optional players", Compact, []string{ScrapeRankings, ScrapeTournaments}, nil, []string{ScrapePlayers}},
		{"skipped optional is satisfied", Compact, []string{ScrapeRankings, ScrapeTournaments}, []string{ScrapePlayers}, nil},
		{"skipped required is not", Compact, []string{ScrapeTournaments}, []string{ScrapeRankings, ScrapePlayers}, []string{ScrapeRankings}},
		{"publish after compact", Publish, []string{Compact}, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDependencies(tt.step, set(tt.done), set(tt.skipped))
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var depErr *DependencyError
			require.True(t, errors.As(err, &depErr))
			assert.Equal(t, tt.missing, depErr.MissingDependencies)
		})
	}
}

func TestValidateDependencies_UnknownStep(t *testing.T) {
	err := ValidateDependencies("unknown_step", nil, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestGetAvailableSteps_Waves(t *testing.T) {
	done := map[string]bool{}
	skipped := map[string]bool{}

	assert.Equal(t, []string{ScrapeRankings, ScrapeTournaments}, GetAvailableSteps(done, skipped))
	assert.Equal(t, []string{Compact, Publish, ScrapePlayers}, GetBlockedSteps(done, skipped))

	done[ScrapeRankings] = true
	done[ScrapeTournaments] = true
	assert.Equal(t, []string{ScrapePlayers}, GetAvailableSteps(done, skipped))

	done[ScrapePlayers] = true
	assert.Equal(t, []string{Compact}, GetAvailableSteps(done, skipped))

	done[Compact] = true
	assert.Equal(t, []string{Publish}, GetAvailableSteps(done, skipped))

	done[Publish] = true
	assert.Empty(t, GetAvailableSteps(done, skipped))
	assert.Empty(t, GetBlockedSteps(done, skipped))
}

func TestGetAvailableSteps_SkippedPlayers(t *testing.T) {
	done := set([]string{ScrapeRankings, ScrapeTournaments})
	skipped := set([]string{ScrapePlayers, Publish})

	assert.Equal(t, []string{Compact}, GetAvailableSteps(done, skipped))
}

func set(names []string) map[string]bool {
	m := map[string]bool{}
	for _, n := range names {
		m[n] = true
	}
	return m
}

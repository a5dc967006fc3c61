// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults for every tunable. The match threshold and prefix ratio are
// empirical values carried over from the first version of the scraper.
const (
	DefaultDataDir                = "data"
	DefaultBaseURL                = "https://www.atptour.com"
	DefaultUserAgent              = "Mozilla/5.0 (compatible; RankTracker/1.0)"
	DefaultRequestDelaySeconds    = 1.0
	DefaultFetchTimeoutSeconds    = 30.0
	DefaultMaxGapDays             = 180
	DefaultMatchThreshold         = 0.85
	DefaultSearchPrefixRatio      = 0.7
	DefaultSearchCacheSize        = 256
	DefaultMaxConsecutiveFailures = 5
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or CLI flags.
type Config struct {
	// Storage
	DataDir string `json:"data_dir,omitempty"`

	// Source
	BaseURL             string  `json:"base_url,omitempty" validate:"omitempty,url"`
	UserAgent           string  `json:"user_agent,omitempty"`
	RequestDelaySeconds float64 `json:"request_delay_seconds,omitempty" validate:"gte=0"`
	FetchTimeoutSeconds float64 `json:"fetch_timeout_seconds,omitempty" validate:"gte=0"`
	UseBrowser          bool    `json:"use_browser,omitempty"` // Render player profiles with headless Chrome

	// Ingestion
	MaxConsecutiveFailures int `json:"max_consecutive_failures,omitempty" validate:"gte=0"`

	// Compaction and reconciliation
	MaxGapDays        int     `json:"max_gap_days,omitempty" validate:"gte=0"`
	MatchThreshold    float64 `json:"match_threshold,omitempty" validate:"gte=0,lte=1"`
	SearchPrefixRatio float64 `json:"search_prefix_ratio,omitempty" validate:"gte=0,lte=1"`
	SearchCacheSize   int     `json:"search_cache_size,omitempty" validate:"gte=0"`

	// Behavior
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL for publish
}

// Default returns a configuration with every field set to its default.
func Default() Config {
	return Config{
		DataDir:                DefaultDataDir,
		BaseURL:                DefaultBaseURL,
		UserAgent:              DefaultUserAgent,
		RequestDelaySeconds:    DefaultRequestDelaySeconds,
		FetchTimeoutSeconds:    DefaultFetchTimeoutSeconds,
		MaxConsecutiveFailures: DefaultMaxConsecutiveFailures,
		MaxGapDays:             DefaultMaxGapDays,
		MatchThreshold:         DefaultMatchThreshold,
		SearchPrefixRatio:      DefaultSearchPrefixRatio,
		SearchCacheSize:        DefaultSearchCacheSize,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load reads the optional config file at path, fills unset fields from
// Default and the DATABASE_URL environment variable, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	merged := cfg.MergeWithDefaults(Default())
	if merged.DatabaseURL == "" {
		merged.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.DataDir != "" {
		if info, err := os.Stat(c.DataDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: data_dir is not a directory: %s", c.DataDir)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Numeric fields: use default if zero
	if result.RequestDelaySeconds == 0 {
		result.RequestDelaySeconds = defaults.RequestDelaySeconds
	}
	if result.FetchTimeoutSeconds == 0 {
		result.FetchTimeoutSeconds = defaults.FetchTimeoutSeconds
	}
	if result.MaxConsecutiveFailures == 0 {
		result.MaxConsecutiveFailures = defaults.MaxConsecutiveFailures
	}
	if result.MaxGapDays == 0 {
		result.MaxGapDays = defaults.MaxGapDays
	}
	if result.MatchThreshold == 0 {
		result.MatchThreshold = defaults.MatchThreshold
	}
	if result.SearchPrefixRatio == 0 {
		result.SearchPrefixRatio = defaults.SearchPrefixRatio
	}
	if result.SearchCacheSize == 0 {
		result.SearchCacheSize = defaults.SearchCacheSize
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// RequestDelay returns the pause enforced between outbound requests.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelaySeconds * float64(time.Second))
}

// FetchTimeout returns the per-request timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds * float64(time.Second))
}

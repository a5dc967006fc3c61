package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig allows Limit requests per Window to one method and path. A
// path ending in "/" matches every path below it. Burst defaults to Limit.
type EndpointConfig struct {
	Path   string
	Method string
	Limit  int
	Window time.Duration
	Burst  int
}

// LoadConfig reads RATE_LIMIT_* environment variables. Unset or unparsable
// values fall back to the defaults.
func LoadConfig() *Config {
	if !envValue("RATE_LIMIT_ENABLED", true, strconv.ParseBool) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    envValue("RATE_LIMIT_DEFAULT_LIMIT", 600, strconv.Atoi),
		DefaultWindow:   envValue("RATE_LIMIT_DEFAULT_WINDOW", time.Minute, time.ParseDuration),
		CleanupInterval: envValue("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute, time.ParseDuration),
		Whitelist:       parseIPList(os.Getenv("RATE_LIMIT_WHITELIST")),
		Blacklist:       parseIPList(os.Getenv("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint limits applied on top of
// the default limit.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// A run hits the upstream source; keep these rare.
		{Path: "/run/stream", Method: "POST", Limit: 6, Window: time.Hour, Burst: 1},

		// Search is typeahead traffic.
		{Path: "/search", Method: "GET", Limit: 1200, Window: time.Minute, Burst: 60},

		// Per-player reads decode the rankings table
		{Path: "/players/", Method: "GET", Limit: 300, Window: time.Minute, Burst: 30},
		{Path: "/tournaments", Method: "GET", Limit: 60, Window: time.Minute, Burst: 10},
	}
}

// envValue parses the environment variable key, or returns def.
func envValue[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

// parseIPList parses a comma-separated list of client IPs.
func parseIPList(list string) map[string]bool {
	ips := map[string]bool{}
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			ips[ip] = true
		}
	}
	return ips
}

package ratelimit

import (
	"strings"
)

// unlimited lists "METHOD path" pairs that are never limited.
var unlimited = map[string]bool{
	"GET /health": true,
}

// MatchEndpoint returns the configuration for a request, or nil when none
// matches. An exact path wins over a prefix; prefixes end with "/".
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if unlimited[method+" "+path] {
		return &EndpointConfig{Path: path, Method: method}
	}

	for i := range configs {
		if configs[i].Path == path && configs[i].Method == method {
			return &configs[i]
		}
	}

	for i := range configs {
		c := &configs[i]
		if c.Method == method && strings.HasSuffix(c.Path, "/") && strings.HasPrefix(path, c.Path) {
			return c
		}
	}
	return nil
}

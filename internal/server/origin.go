// Package server normalizes and validates HTTP origins for WebSocket requests
// to enforce configured access control.
package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// originPolicy is an immutable allow-list built once per configuration
// change. A "*" entry in the configured origins allows everything.
type originPolicy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	policy := originPolicy{allowed: make(map[string]struct{}, len(origins))}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			policy.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			slog.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		policy.allowed[normalized] = struct{}{}
	}
	return policy
}

func (p originPolicy) allow(r *http.Request) bool {
	header := r.Header.Get("Origin")
	if header == "" {
		return false
	}

	normalized, ok := normalizeOrigin(header)
	if !ok {
		return false
	}
	if p.allowAll {
		return true
	}

	_, exists := p.allowed[normalized]
	return exists
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func checkOrigin(r *http.Request) bool {
	if currentPolicy().allow(r) {
		return true
	}

	slog.Warn("blocked WebSocket connection from disallowed origin",
		"origin", r.Header.Get("Origin"))
	return false
}

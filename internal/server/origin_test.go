package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func requestWithOrigin(origin string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestOriginPolicyAllowsConfiguredOrigins(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:8080", " https://Chat.Example.com "})

	assert.True(t, policy.allow(requestWithOrigin("http://localhost:8080")))
	assert.True(t, policy.allow(requestWithOrigin("HTTPS://CHAT.EXAMPLE.COM")),
		"origin comparison is case-insensitive")
	assert.False(t, policy.allow(requestWithOrigin("http://evil.example.com")))
}

func TestOriginPolicyRejectsMissingOrMalformedOrigin(t *testing.T) {
	policy := newOriginPolicy([]string{"http://localhost:8080"})

	assert.False(t, policy.allow(requestWithOrigin("")))
	assert.False(t, policy.allow(requestWithOrigin("not a url")))
}

func TestOriginPolicyWildcardAllowsAll(t *testing.T) {
	policy := newOriginPolicy([]string{"*"})

	assert.True(t, policy.allow(requestWithOrigin("http://anything.example.com")))
	assert.False(t, policy.allow(requestWithOrigin("")), "a missing origin is still rejected")
}

func TestNormalizeOrigin(t *testing.T) {
	normalized, ok := normalizeOrigin("HTTP://LocalHost:8080")
	assert.True(t, ok)
	assert.Equal(t, "http://localhost:8080", normalized)

	_, ok = normalizeOrigin("://missing-scheme")
	assert.False(t, ok)
}

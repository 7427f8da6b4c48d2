// Package auth guards the websocket upgrade with API keys
package auth

import (
	"net/http"
	"strings"
)

// HeaderName carries the key on plain HTTP requests. Browsers cannot set
// headers on a websocket upgrade, so the apiKey query parameter is accepted too.
const HeaderName = "X-Api-Key"

// APIKeyAuth provides a simple API key authentication
type APIKeyAuth struct {
	validKeys map[string]struct{}
}

// NewAPIKeyAuth creates a new API key authentication middleware. Blank keys
// are ignored; with no keys at all authentication is disabled.
func NewAPIKeyAuth(keys []string) *APIKeyAuth {
	validKeys := make(map[string]struct{})
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			validKeys[key] = struct{}{}
		}
	}

	return &APIKeyAuth{
		validKeys: validKeys,
	}
}

// Enabled reports whether any key is configured
func (a *APIKeyAuth) Enabled() bool {
	return len(a.validKeys) > 0
}

// IsValidKey checks if a key is valid
func (a *APIKeyAuth) IsValidKey(key string) bool {
	_, valid := a.validKeys[key]
	return valid
}

// Allow checks the request's key, or lets everything through when disabled
func (a *APIKeyAuth) Allow(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}

	key := r.Header.Get(HeaderName)
	if key == "" {
		key = r.URL.Query().Get("apiKey")
	}

	return a.IsValidKey(key)
}

// Package apikey authenticates administrative callers by static API key.
//
// Keys are loaded once from the environment (comma-separated) and compared
// in constant time. This guards operational surfaces such as /metrics.
package apikey

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
)

const (
	// EnvKey is the env var holding the comma-separated admin API keys.
	// #nosec G101 -- not a credential; it's an environment variable name.
	EnvKey = "BALCAO_ADMIN_API_KEYS"

	// Header is the request header carrying the key.
	Header = "X-API-Key"
)

// Set holds the configured admin keys.
type Set struct {
	keys []string
}

// FromEnv loads the admin key set. Missing/blank env -> ErrNoKeys:
// the caller decides whether the guarded surface is disabled or fatal.
func FromEnv() (*Set, error) {
	raw := strings.TrimSpace(os.Getenv(EnvKey))
	if raw == "" {
		return nil, ErrNoKeys
	}

	var keys []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if len(k) < 16 {
			return nil, ErrKeyTooShort
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}

	return &Set{keys: keys}, nil
}

// Match reports whether the presented key equals any configured key.
// Every configured key is compared to keep timing independent of position.
func (s *Set) Match(presented string) bool {
	if s == nil || presented == "" {
		return false
	}
	ok := false
	for _, k := range s.keys {
		if len(k) == len(presented) &&
			subtle.ConstantTimeCompare([]byte(k), []byte(presented)) == 1 {
			ok = true
		}
	}
	return ok
}

// Middleware rejects requests lacking a valid X-API-Key header.
func (s *Set) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		presented := strings.TrimSpace(r.Header.Get(Header))
		if presented == "" {
			w.Header().Set("WWW-Authenticate", "ApiKey")
			http.Error(w, "missing API key", http.StatusUnauthorized)
			return
		}
		if !s.Match(presented) {
			http.Error(w, "invalid API key", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

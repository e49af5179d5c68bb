// Package auth provides the service's API-key authentication.
//
// gieplan is single-tenant: one shared service key, configured as a bcrypt
// hash, covers the whole API. When no hash is configured authentication is
// disabled, which is the local development mode.
package auth

import (
	"crypto/sha256"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/wisbric/gieplan/internal/httpserver"
)

// headerAPIKey is the request header carrying the raw key.
const headerAPIKey = "X-API-Key"

// Middleware validates the X-API-Key header against the configured bcrypt
// hash. An empty hash disables authentication.
func Middleware(apiKeyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKeyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw := r.Header.Get(headerAPIKey)
			if raw == "" {
				httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing API key")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(apiKeyHash), digest(raw)); err != nil {
				httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashAPIKey produces the bcrypt hash to store in configuration for a raw
// key. Used by the ops tooling and the tests.
func HashAPIKey(raw string) (string, error) {
	h, err := bcrypt.GenerateFromPassword(digest(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// digest pre-hashes the key so arbitrarily long inputs fit bcrypt's 72-byte
// limit.
func digest(raw string) []byte {
	sum := sha256.Sum256([]byte(raw))
	return sum[:]
}

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
)

// KeyValidator checks an API key, renewing session keys as a side
// effect.
type KeyValidator interface {
	Validate(key string) bool
}

// requestKey extracts the API key from X-API-KEY or a bearer token.
func requestKey(r *http.Request) string {
	if key := r.Header.Get("X-API-KEY"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}

// RequireKey guards every method with a validator-checked API key.
// enabled=false passes everything through.
func RequireKey(validator KeyValidator, enabled bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			if !validator.Validate(requestKey(r)) {
				WriteError(w, r, NewAuthenticationError("missing or invalid API key"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PredictAuth guards the predict surface: the dedicated predict key or
// any admin key is accepted. predictKey is read per request so a
// settings update applies immediately.
func PredictAuth(validator KeyValidator, predictKey func() string, enabled bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			key := requestKey(r)
			if pk := predictKey(); pk != "" && key == pk {
				next.ServeHTTP(w, r)
				return
			}
			if validator.Validate(key) {
				next.ServeHTTP(w, r)
				return
			}
			WriteError(w, r, NewAuthenticationError("missing or invalid predict key"), logger)
		})
	}
}

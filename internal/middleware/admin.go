package middleware

import (
	"crypto/subtle"
	"net/http"

	"ayudabesh-backend/internal/transport"
)

// SetupKey guards admin bootstrap endpoints with a shared X-Admin-Key.
func SetupKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				transport.WriteError(w, http.StatusServiceUnavailable, "admin signup not configured", nil)
				return
			}

			given := r.Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(given), []byte(key)) != 1 {
				transport.WriteError(w, http.StatusUnauthorized, "invalid admin setup key", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ABOUTME: CORS middleware for the JSON routes
// ABOUTME: Echoes allowed origins with credentials and answers preflight requests

package middleware

import (
	"net/http"
	"slices"
)

// CORS returns middleware that allows cross-origin calls from the listed
// origins only. An empty list blocks all cross-origin requests; same-origin
// requests are unaffected. Preflight OPTIONS requests are answered without
// calling the wrapped handler.
func CORS(allowedOrigins []string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origin != "" && (slices.Contains(allowedOrigins, origin) || slices.Contains(allowedOrigins, "*"))

			if origin != "" {
				w.Header().Add("Vary", "Origin")
			}
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token, X-Requested-With")
			}

			if r.Method == http.MethodOptions {
				if origin != "" && !allowed {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next(w, r)
		}
	}
}

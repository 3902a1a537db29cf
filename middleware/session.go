// ABOUTME: Session middleware attaching the visitor's session scope to the request
// ABOUTME: The scope loads the server-side session lazily from the session cookie

package middleware

import (
	"net/http"

	"github.com/markalston/acreditaciones-portal/services"
)

// Session attaches a services.SessionScope to every request. Handlers read
// it with services.ScopeFromContext.
func Session(sessions *services.SessionService, cookies services.CookieSettings) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			scope := services.NewSessionScope(sessions, w, r, cookies)
			next(w, r.WithContext(services.WithScope(r.Context(), scope)))
		}
	}
}

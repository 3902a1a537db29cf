// ABOUTME: CSRF protection middleware checking submitted tokens against the session
// ABOUTME: Accepts the token from the X-CSRF-Token header or the _csrf form field

package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/markalston/acreditaciones-portal/services"
)

const (
	csrfHeaderName = "X-CSRF-Token"
	// CSRFFormField is the hidden input rendered into every portal form.
	CSRFFormField = "_csrf"

	// base64url encoding of 32 bytes produces 44 characters (with padding)
	csrfTokenLength = 44

	csrfRejectedMsg = "CSRF token missing or invalid"
)

// CSRF returns middleware that validates CSRF tokens for state-changing requests.
// The submitted token must match the one stored in the visitor's session; when
// no session scope is attached it must match the CSRF cookie instead.
// Validation is skipped for:
//   - GET, HEAD, OPTIONS requests (safe methods)
//   - paths in skip (login forms must work with a stale session cookie)
//   - Requests without a session (no session to ride on)
func CSRF(skip ...string) func(http.HandlerFunc) http.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, path := range skip {
		skipped[path] = true
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next(w, r)
				return
			}

			if skipped[r.URL.Path] {
				slog.Debug("CSRF skipped", "path", sanitizePath(r.URL.Path))
				next(w, r)
				return
			}

			sessionCookie, err := r.Cookie(services.SessionCookieName)
			if err != nil || sessionCookie.Value == "" {
				next(w, r)
				return
			}

			var expected string
			if scope := services.ScopeFromContext(r.Context()); scope != nil {
				token, ok := scope.SessionCSRFToken(r.Context())
				if !ok {
					next(w, r)
					return
				}
				expected = token
			} else {
				csrfCookie, err := r.Cookie(services.CSRFCookieName)
				if err != nil || csrfCookie.Value == "" {
					slog.Debug("CSRF rejected: missing cookie", "path", sanitizePath(r.URL.Path))
					writeError(w, r, csrfRejectedMsg, http.StatusForbidden)
					return
				}
				expected = csrfCookie.Value
			}

			submitted := r.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = r.PostFormValue(CSRFFormField)
			}
			if submitted == "" {
				slog.Debug("CSRF rejected: missing token", "path", sanitizePath(r.URL.Path))
				writeError(w, r, csrfRejectedMsg, http.StatusForbidden)
				return
			}

			if len(expected) != csrfTokenLength || len(submitted) != csrfTokenLength {
				slog.Debug("CSRF rejected: invalid token length", "path", sanitizePath(r.URL.Path))
				writeError(w, r, csrfRejectedMsg, http.StatusForbidden)
				return
			}

			if subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) != 1 {
				slog.Debug("CSRF rejected: token mismatch", "path", sanitizePath(r.URL.Path))
				writeError(w, r, csrfRejectedMsg, http.StatusForbidden)
				return
			}

			next(w, r)
		}
	}
}

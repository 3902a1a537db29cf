// ABOUTME: Authentication gate for portal pages and JSON routes
// ABOUTME: Verifies the session's bearer token and exposes its claims to handlers

package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/markalston/acreditaciones-portal/models"
	"github.com/markalston/acreditaciones-portal/services"
)

const (
	// LoginPath is where unauthenticated page requests are sent.
	LoginPath = "/login"

	loginRequiredMsg = "Debe iniciar sesión para acceder a esta página"
	unauthorizedMsg  = "Usuario no autenticado"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey string

const userClaimsKey contextKey = "userClaims"

// Auth returns middleware that lets a request through only when the session
// holds a token the verifier accepts. Page requests are redirected to the
// login page with a flash message; JSON requests get a 401 envelope.
// Must run inside Session.
func Auth(verifier *services.TokenVerifier) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope := services.ScopeFromContext(ctx)

			var token string
			if scope != nil {
				token = scope.Token(ctx)
			}

			if token != "" {
				claims, err := verifier.Verify(token)
				if err == nil {
					next(w, r.WithContext(context.WithValue(ctx, userClaimsKey, claims)))
					return
				}
				slog.Debug("Auth rejected: invalid token", "path", sanitizePath(r.URL.Path), "error", err)
			} else {
				slog.Debug("Auth rejected: no token", "path", sanitizePath(r.URL.Path))
			}

			if WantsJSON(r) {
				writeJSONError(w, unauthorizedMsg, http.StatusUnauthorized)
				return
			}

			if scope != nil {
				scope.AddFlash(ctx, models.FlashError, loginRequiredMsg)
			}
			http.Redirect(w, r, LoginPath, http.StatusFound)
		}
	}
}

// GetUserClaims extracts the verified token claims from request context.
// Returns nil if no claims are present.
func GetUserClaims(r *http.Request) *services.TokenClaims {
	claims, ok := r.Context().Value(userClaimsKey).(*services.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// ABOUTME: Authentication state for one visitor against the accreditation API
// ABOUTME: Login, token validation and refresh, profile lookup, logout and account recovery

package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/markalston/acreditaciones-portal/cache"
	"github.com/markalston/acreditaciones-portal/models"
)

// AuthSession is built per request around the visitor's TokenStore.
// Login, email validation and password recovery return errors; the
// remaining operations log failures and report them as empty results.
type AuthSession struct {
	api       *APIClient
	verifier  *TokenVerifier
	tokens    TokenStore
	responses *cache.Cache
}

// NewAuthSession wires an auth session. responses may be nil, in which case
// fetched profiles are not cached.
func NewAuthSession(api *APIClient, verifier *TokenVerifier, tokens TokenStore, responses *cache.Cache) *AuthSession {
	return &AuthSession{api: api, verifier: verifier, tokens: tokens, responses: responses}
}

// Authenticate logs in with DNI and password and stores the issued token.
// A response without a token fails with ErrUnauthorized and leaves the
// token store untouched.
func (a *AuthSession) Authenticate(ctx context.Context, dni, password string) (*models.LoginResult, error) {
	body, err := a.api.Post(ctx, "/auth/login", models.LoginRequest{DNI: dni, Password: password})
	if err != nil {
		slog.Warn("Authentication failed", "dni", dni, "error", err)
		return nil, err
	}

	result, err := a.acceptToken(ctx, body, "/auth/login")
	if err != nil {
		slog.Warn("Authentication failed", "dni", dni, "error", err)
		return nil, err
	}

	slog.Info("User authenticated", "dni", dni)
	return result, nil
}

// ValidateEmail activates a first-time account. Same token rule as Authenticate.
func (a *AuthSession) ValidateEmail(ctx context.Context, dni, email, password string) (*models.LoginResult, error) {
	body, err := a.api.Post(ctx, "/auth/validate-email", models.ValidateEmailRequest{
		DNI:      dni,
		Email:    email,
		Password: password,
	})
	if err != nil {
		slog.Warn("Email validation failed", "dni", dni, "email", email, "error", err)
		return nil, err
	}

	result, err := a.acceptToken(ctx, body, "/auth/validate-email")
	if err != nil {
		slog.Warn("Email validation failed", "dni", dni, "email", email, "error", err)
		return nil, err
	}
	return result, nil
}

// RecoverPassword asks the API to send a reset email.
func (a *AuthSession) RecoverPassword(ctx context.Context, email string) error {
	if _, err := a.api.Post(ctx, "/auth/recover-password", models.RecoverPasswordRequest{Email: email}); err != nil {
		slog.Warn("Password recovery failed", "email", email, "error", err)
		return err
	}
	return nil
}

// acceptToken stores the token carried by a login-style response.
func (a *AuthSession) acceptToken(ctx context.Context, body []byte, path string) (*models.LoginResult, error) {
	token := stringField(body, "token")
	if token == "" {
		return nil, &APIError{
			Kind:       ErrUnauthorized,
			StatusCode: http.StatusUnauthorized,
			Message:    "No token in response",
			Method:     http.MethodPost,
			Path:       path,
		}
	}

	if err := a.storeToken(ctx, token); err != nil {
		return nil, err
	}

	result := &models.LoginResult{Token: token}
	var user models.User
	if decodeField(body, "user", &user) {
		result.User = &user
	}
	return result, nil
}

// storeToken moves the visitor to a new session, when the store supports
// it, before saving token.
func (a *AuthSession) storeToken(ctx context.Context, token string) error {
	if rotator, ok := a.tokens.(sessionRotator); ok {
		if err := rotator.Rotate(ctx); err != nil {
			return fmt.Errorf("rotating session: %w", err)
		}
	}
	if err := a.tokens.StoreToken(ctx, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	return nil
}

// ValidateToken verifies token, or the stored token when token is empty.
func (a *AuthSession) ValidateToken(ctx context.Context, token string) bool {
	if token == "" {
		token = a.tokens.Token(ctx)
	}
	if token == "" {
		return false
	}

	if _, err := a.verifier.Verify(token); err != nil {
		slog.Debug("Token validation failed", "error", err)
		return false
	}
	return true
}

func (a *AuthSession) IsAuthenticated(ctx context.Context) bool {
	return a.ValidateToken(ctx, "")
}

// Claims returns the verified claims of the stored token, or nil.
func (a *AuthSession) Claims(ctx context.Context) *TokenClaims {
	token := a.tokens.Token(ctx)
	if token == "" {
		return nil
	}
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return nil
	}
	return claims
}

// Token returns the stored bearer token.
func (a *AuthSession) Token(ctx context.Context) string {
	return a.tokens.Token(ctx)
}

// GetUser fetches the profile for the stored token. Nil means the user
// cannot be determined.
func (a *AuthSession) GetUser(ctx context.Context) *models.User {
	token := a.tokens.Token(ctx)
	if token == "" || !a.ValidateToken(ctx, token) {
		return nil
	}

	body, err := a.api.AuthenticatedRequest(ctx, http.MethodGet, "/user/profile", nil, token)
	if err != nil {
		slog.Error("Failed to get user data", "error", err)
		return nil
	}

	var user models.User
	if !decodeField(body, "user", &user) {
		slog.Warn("Profile response has no user")
		return nil
	}

	if a.responses != nil && user.ID != "" {
		a.responses.CacheUserData(ctx, user.ID.String(), user)
	}
	return &user
}

// RefreshToken exchanges the stored token for a new one. Returns "" on any
// failure.
func (a *AuthSession) RefreshToken(ctx context.Context) string {
	token := a.tokens.Token(ctx)
	if token == "" {
		return ""
	}

	body, err := a.api.AuthenticatedRequest(ctx, http.MethodPost, "/auth/refresh", nil, token)
	if err != nil {
		slog.Error("Token refresh failed", "error", err)
		return ""
	}

	fresh := stringField(body, "token")
	if fresh == "" {
		slog.Error("Token refresh failed", "error", "no token in response")
		return ""
	}

	if err := a.storeToken(ctx, fresh); err != nil {
		slog.Error("Token refresh failed", "error", err)
		return ""
	}
	return fresh
}

// Logout notifies the API when a token exists and always clears the
// stored token.
func (a *AuthSession) Logout(ctx context.Context) {
	if token := a.tokens.Token(ctx); token != "" {
		if _, err := a.api.AuthenticatedRequest(ctx, http.MethodPost, "/auth/logout", nil, token); err != nil {
			slog.Warn("Logout request failed", "error", err)
		}
	}

	if err := a.tokens.ClearToken(ctx); err != nil {
		slog.Error("Failed to clear token", "error", err)
	}
}

// ABOUTME: HTTP handlers for the accreditation portal pages and JSON endpoints
// ABOUTME: Holds shared services and the rendering, redirect and JSON envelope helpers

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/markalston/acreditaciones-portal/cache"
	"github.com/markalston/acreditaciones-portal/config"
	"github.com/markalston/acreditaciones-portal/models"
	"github.com/markalston/acreditaciones-portal/services"
	"github.com/markalston/acreditaciones-portal/views"
)

const internalErrorMsg = "Error interno del servidor"

type Handler struct {
	cfg         *config.Config
	api         *services.APIClient
	verifier    *services.TokenVerifier
	responses   *cache.Cache
	sessions    *services.SessionService
	cookies     services.CookieSettings
	portal      *services.Portal
	qr          *services.QRService
	diagnostics *services.Diagnostics
	views       views.Renderer
}

// NewHandler builds the upstream client and services from cfg. responses
// caches API data; sessions holds visitor state.
func NewHandler(cfg *config.Config, responses *cache.Cache, sessions *services.SessionService, renderer views.Renderer) (*Handler, error) {
	verifier, err := services.NewTokenVerifier(services.TokenVerifierConfig{
		Secret:    cfg.JWTSecret,
		Algorithm: cfg.JWTAlgorithm,
		Leeway:    time.Duration(cfg.JWTLeeway) * time.Second,
		Issuer:    cfg.JWTIssuer,
		TestTTL:   time.Duration(cfg.JWTTestTokenTTL) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}

	api := services.NewAPIClient(services.APIClientConfig{
		BaseURL:      cfg.APIBaseURL,
		Timeout:      cfg.Timeout(),
		RetryEnabled: cfg.APIRetryEnabled,
		MaxAttempts:  cfg.APIRetryMaxAttempts,
		RetryDelay:   cfg.RetryDelay(),
		AllProxy:     cfg.APIAllProxy,
	})
	qr := services.NewQRService(cfg.QRImageBaseURL)

	return &Handler{
		cfg:         cfg,
		api:         api,
		verifier:    verifier,
		responses:   responses,
		sessions:    sessions,
		cookies:     services.CookieSettings{Secure: cfg.CookieSecure, MaxAge: cfg.SessionLifetime()},
		portal:      services.NewPortal(api, responses, qr),
		qr:          qr,
		diagnostics: services.NewDiagnostics(api, cfg.TestDNI, cfg.TestPassword),
		views:       renderer,
	}, nil
}

// Verifier is shared with the auth middleware.
func (h *Handler) Verifier() *services.TokenVerifier {
	return h.verifier
}

// scope returns the session scope attached by the session middleware,
// creating one when the route is served without it.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) *services.SessionScope {
	if scope := services.ScopeFromContext(r.Context()); scope != nil {
		return scope
	}
	return services.NewSessionScope(h.sessions, w, r, h.cookies)
}

func (h *Handler) auth(w http.ResponseWriter, r *http.Request) *services.AuthSession {
	return services.NewAuthSession(h.api, h.verifier, h.scope(w, r), h.responses)
}

// currentUser resolves the signed-in user and the bearer token for API calls.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, string) {
	auth := h.auth(w, r)
	return h.portal.CurrentUser(r.Context(), auth), auth.Token(r.Context())
}

// render writes page inside the layout with the queued flashes. extra
// flashes are shown on this render only.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, user *models.User, data any, extra ...models.Flash) {
	ctx := r.Context()
	scope := h.scope(w, r)

	p := views.Page{
		Title:     title,
		User:      user,
		Flashes:   append(scope.PopFlashes(ctx), extra...),
		CSRFToken: scope.CSRFToken(ctx),
		Data:      data,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.views.Render(w, page, p); err != nil {
		slog.Error("Failed to render page", "page", page, "error", err)
		http.Error(w, internalErrorMsg, http.StatusInternalServerError)
	}
}

// redirect queues a flash and sends the browser to path.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path string, level models.FlashLevel, message string) {
	if message != "" {
		h.scope(w, r).AddFlash(r.Context(), level, message)
	}
	http.Redirect(w, r, path, http.StatusFound)
}

func errorFlash(message string) models.Flash {
	return models.Flash{Level: models.FlashError, Message: message}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}

// writeData answers with the success envelope.
func (h *Handler) writeData(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, models.APIResponse{Success: true, Data: data})
}

// writeError answers with the failure envelope.
func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	h.writeJSON(w, code, models.APIResponse{Success: false, Message: message})
}

// decodeJSON reads a JSON request body into dest.
func decodeJSON(r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// validationMessage returns the user-facing message of a form validation
// failure.
func validationMessage(err error) (string, bool) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	return "", false
}

// isUnauthorized reports an upstream credential rejection.
func isUnauthorized(err error) bool {
	return errors.Is(err, services.ErrUnauthorized)
}

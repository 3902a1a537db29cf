// ABOUTME: Per-request view of the visitor's server-side session
// ABOUTME: Loads the session lazily, starts one on first write, and holds the bearer token and flashes

package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/markalston/acreditaciones-portal/models"
)

const (
	SessionCookieName = "ACRED_SESSION"
	CSRFCookieName    = "ACRED_CSRF"
)

// TokenStore keeps the bearer token for the current visitor.
type TokenStore interface {
	StoreToken(ctx context.Context, token string) error
	Token(ctx context.Context) string
	ClearToken(ctx context.Context) error
}

// CookieSettings controls the cookies a SessionScope writes.
type CookieSettings struct {
	Secure bool
	MaxAge time.Duration
}

// SessionScope is created once per request. Reads never create a session;
// the first write does, and sets the session and CSRF cookies.
type SessionScope struct {
	sessions *SessionService
	w        http.ResponseWriter
	cookieID string
	cookies  CookieSettings

	loaded  bool
	session *models.Session
}

// sessionRotator is implemented by token stores that can move the visitor
// to a new session before a token is stored.
type sessionRotator interface {
	Rotate(ctx context.Context) error
}

var (
	_ TokenStore     = (*SessionScope)(nil)
	_ sessionRotator = (*SessionScope)(nil)
)

func NewSessionScope(sessions *SessionService, w http.ResponseWriter, r *http.Request, cookies CookieSettings) *SessionScope {
	scope := &SessionScope{sessions: sessions, w: w, cookies: cookies}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		scope.cookieID = cookie.Value
	}
	return scope
}

// current returns the existing session or nil.
func (s *SessionScope) current(ctx context.Context) *models.Session {
	if s.loaded {
		return s.session
	}
	s.loaded = true

	if s.cookieID == "" {
		return nil
	}

	session, err := s.sessions.Get(ctx, s.cookieID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			slog.Error("Failed to load session", "error", err)
		}
		return nil
	}
	s.session = session
	return session
}

// ensure returns the current session, starting one if needed.
func (s *SessionScope) ensure(ctx context.Context) (*models.Session, error) {
	if session := s.current(ctx); session != nil {
		return session, nil
	}

	session, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, err
	}
	s.session = session
	s.setCookies(session)
	slog.Debug("Session started")
	return session, nil
}

// update applies fn to the session and saves it.
func (s *SessionScope) update(ctx context.Context, fn func(*models.Session)) error {
	session, err := s.ensure(ctx)
	if err != nil {
		return err
	}
	fn(session)
	return s.sessions.Save(ctx, session)
}

func (s *SessionScope) StoreToken(ctx context.Context, token string) error {
	return s.update(ctx, func(session *models.Session) {
		session.JWTToken = token
	})
}

func (s *SessionScope) Token(ctx context.Context) string {
	if session := s.current(ctx); session != nil {
		return session.JWTToken
	}
	return ""
}

// ClearToken is a no-op when there is no session.
func (s *SessionScope) ClearToken(ctx context.Context) error {
	session := s.current(ctx)
	if session == nil || session.JWTToken == "" {
		return nil
	}
	session.JWTToken = ""
	return s.sessions.Save(ctx, session)
}

func (s *SessionScope) SetTestToken(ctx context.Context, token string) error {
	return s.update(ctx, func(session *models.Session) {
		session.TestToken = token
	})
}

func (s *SessionScope) TestToken(ctx context.Context) string {
	if session := s.current(ctx); session != nil {
		return session.TestToken
	}
	return ""
}

func (s *SessionScope) ClearTestToken(ctx context.Context) error {
	session := s.current(ctx)
	if session == nil || session.TestToken == "" {
		return nil
	}
	session.TestToken = ""
	return s.sessions.Save(ctx, session)
}

// ClearTokens drops both the bearer and the diagnostics token.
func (s *SessionScope) ClearTokens(ctx context.Context) error {
	session := s.current(ctx)
	if session == nil {
		return nil
	}
	session.JWTToken = ""
	session.TestToken = ""
	return s.sessions.Save(ctx, session)
}

// AddFlash queues a message for the next rendered page.
func (s *SessionScope) AddFlash(ctx context.Context, level models.FlashLevel, message string) {
	err := s.update(ctx, func(session *models.Session) {
		session.Flashes = append(session.Flashes, models.Flash{Level: level, Message: message})
	})
	if err != nil {
		slog.Error("Failed to store flash message", "error", err)
	}
}

// PopFlashes returns and clears queued messages.
func (s *SessionScope) PopFlashes(ctx context.Context) []models.Flash {
	session := s.current(ctx)
	if session == nil || len(session.Flashes) == 0 {
		return nil
	}

	flashes := session.Flashes
	session.Flashes = nil
	if err := s.sessions.Save(ctx, session); err != nil {
		slog.Error("Failed to clear flash messages", "error", err)
	}
	return flashes
}

// Rotate moves the visitor to a new session id and CSRF token. Queued
// flashes carry over and the previous record is deleted, so an id issued
// before login never becomes an authenticated one.
func (s *SessionScope) Rotate(ctx context.Context) error {
	previous := s.current(ctx)

	fresh, err := s.sessions.Create(ctx)
	if err != nil {
		return err
	}

	if previous != nil {
		if len(previous.Flashes) > 0 {
			fresh.Flashes = previous.Flashes
			if err := s.sessions.Save(ctx, fresh); err != nil {
				return err
			}
		}
		if err := s.sessions.Delete(ctx, previous.ID); err != nil {
			slog.Warn("Failed to delete previous session", "error", err)
		}
	}

	s.session = fresh
	s.cookieID = fresh.ID
	s.setCookies(fresh)
	slog.Debug("Session rotated")
	return nil
}

// SessionCSRFToken returns the CSRF token of the existing session without
// starting one.
func (s *SessionScope) SessionCSRFToken(ctx context.Context) (string, bool) {
	session := s.current(ctx)
	if session == nil {
		return "", false
	}
	return session.CSRFToken, true
}

// CSRFToken returns the token forms must echo back, starting a session if
// needed so the matching cookie is set.
func (s *SessionScope) CSRFToken(ctx context.Context) string {
	session, err := s.ensure(ctx)
	if err != nil {
		slog.Error("Failed to start session", "error", err)
		return ""
	}
	return session.CSRFToken
}

func (s *SessionScope) setCookies(session *models.Session) {
	maxAge := int(s.cookies.MaxAge / time.Second)

	http.SetCookie(s.w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   maxAge,
	})

	// Readable by scripts so fetch calls can send it as X-CSRF-Token
	http.SetCookie(s.w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    session.CSRFToken,
		HttpOnly: false,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   maxAge,
	})
}

type scopeKey struct{}

// WithScope attaches a scope to ctx.
func WithScope(ctx context.Context, scope *SessionScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the scope attached by WithScope, or nil.
func ScopeFromContext(ctx context.Context) *SessionScope {
	scope, _ := ctx.Value(scopeKey{}).(*SessionScope)
	return scope
}

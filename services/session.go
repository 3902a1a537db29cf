// ABOUTME: Server-side session storage for the portal
// ABOUTME: Persists session records JSON-encoded in a cache store keyed by a random ID

package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/markalston/acreditaciones-portal/cache"
	"github.com/markalston/acreditaciones-portal/models"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// SessionService manages server-side sessions. The TTL is refreshed on every
// Save, so active sessions slide forward.
type SessionService struct {
	store cache.Store
	ttl   time.Duration
}

// NewSessionService creates a new session service
func NewSessionService(store cache.Store, ttl time.Duration) *SessionService {
	return &SessionService{store: store, ttl: ttl}
}

// Create generates a new empty session and stores it.
func (s *SessionService) Create(ctx context.Context) (*models.Session, error) {
	sessionID, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	csrfToken, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generating csrf token: %w", err)
	}

	session := &models.Session{
		ID:        sessionID,
		CSRFToken: csrfToken,
		CreatedAt: time.Now(),
	}

	if err := s.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get retrieves a session by ID
func (s *SessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	data, found, err := s.store.Get(ctx, sessionKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("invalid session data: %w", err)
	}
	return &session, nil
}

// Save writes the session and restarts its TTL.
func (s *SessionService) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.store.Set(ctx, sessionKey(session.ID), data, s.ttl); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Delete removes a session
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionKey(sessionID)); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// randomToken returns 32 bytes of cryptographically secure random data,
// base64url encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// sessionKey returns the store key for a session ID
func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

// ABOUTME: Tests for the authentication gate
// ABOUTME: Verifies redirects with flash for pages, 401 envelopes for JSON and claims extraction

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/markalston/acreditaciones-portal/cache"
	"github.com/markalston/acreditaciones-portal/models"
	"github.com/markalston/acreditaciones-portal/services"
)

func testVerifier(t *testing.T) *services.TokenVerifier {
	t.Helper()
	v, err := services.NewTokenVerifier(services.TokenVerifierConfig{Secret: "test-secret", Algorithm: "HS256"})
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	return v
}

func testSessions() *services.SessionService {
	return services.NewSessionService(cache.NewMemory(0), time.Hour)
}

// sessionWithToken stores a session holding token and returns its cookie.
func sessionWithToken(t *testing.T, sessions *services.SessionService, token string) *http.Cookie {
	t.Helper()
	session, err := sessions.Create(context.Background())
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	session.JWTToken = token
	if err := sessions.Save(context.Background(), session); err != nil {
		t.Fatalf("Save session: %v", err)
	}
	return &http.Cookie{Name: services.SessionCookieName, Value: session.ID}
}

func gated(t *testing.T, sessions *services.SessionService, next http.HandlerFunc) http.HandlerFunc {
	return Chain(next, Session(sessions, services.CookieSettings{MaxAge: time.Hour}), Auth(testVerifier(t)))
}

func TestAuth_ValidTokenPassesClaims(t *testing.T) {
	sessions := testSessions()
	token, err := testVerifier(t).Issue(services.TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "42"}})
	if err != nil {
		t.Fatal(err)
	}

	var claims *services.TokenClaims
	handler := gated(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		claims = GetUserClaims(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(sessionWithToken(t, sessions, token))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", rec.Code)
	}
	if claims == nil || claims.Subject != "42" {
		t.Errorf("claims = %+v, want subject 42", claims)
	}
}

func TestAuth_PageWithoutSessionRedirects(t *testing.T) {
	sessions := testSessions()
	handler := gated(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called without a token")
	})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("Status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	// The flash travels in the freshly started session.
	var sessionID string
	for _, c := range rec.Result().Cookies() {
		if c.Name == services.SessionCookieName {
			sessionID = c.Value
		}
	}
	session, err := sessions.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("expected a session carrying the flash: %v", err)
	}
	if len(session.Flashes) != 1 || session.Flashes[0].Message != "Debe iniciar sesión para acceder a esta página" {
		t.Errorf("Flashes = %+v", session.Flashes)
	}
	if session.Flashes[0].Level != models.FlashError {
		t.Errorf("Flash level = %q, want error", session.Flashes[0].Level)
	}
}

func TestAuth_ExpiredTokenRedirects(t *testing.T) {
	sessions := testSessions()
	expired, err := testVerifier(t).Issue(services.TokenClaims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}})
	if err != nil {
		t.Fatal(err)
	}

	handler := gated(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called with an expired token")
	})

	req := httptest.NewRequest(http.MethodGet, "/team", nil)
	req.AddCookie(sessionWithToken(t, sessions, expired))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusFound {
		t.Errorf("Status = %d, want 302", rec.Code)
	}
}

func TestAuth_JSONWithoutTokenReturns401(t *testing.T) {
	handler := gated(t, testSessions(), func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called without a token")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/user/status", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("Status = %d, want 401", rec.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Message != "Usuario no autenticado" {
		t.Errorf("body = %+v", body)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("JSON rejections should not start a session")
	}
}

func TestGetUserClaims_NoClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetUserClaims(req) != nil {
		t.Error("Expected nil claims")
	}
}

// ABOUTME: Shared fixtures for handler tests
// ABOUTME: Stub accreditation API, route mux with session and auth middleware, and session helpers

package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/markalston/acreditaciones-portal/cache"
	"github.com/markalston/acreditaciones-portal/config"
	"github.com/markalston/acreditaciones-portal/middleware"
	"github.com/markalston/acreditaciones-portal/models"
	"github.com/markalston/acreditaciones-portal/services"
	"github.com/markalston/acreditaciones-portal/views"
)

const profileBody = `{"success":true,"data":{"user":{"id":42,"dni":"12345678","name":"Ana Pérez","email":"ana@example.com","team_id":7,"status":"approved"}}}`

// stubAPI answers "METHOD /path" keys and counts every call.
type stubAPI struct {
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  map[string]int
	bodies map[string]string
}

func (s *stubAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.calls[key]++
	s.bodies[key] = string(body)
	handler, ok := s.routes[key]
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"No encontrado"}`))
		return
	}
	handler(w, r)
}

func (s *stubAPI) on(key string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[key] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

func (s *stubAPI) count(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[key]
}

func (s *stubAPI) body(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[key]
}

type testEnv struct {
	h         *Handler
	api       *stubAPI
	sessions  *services.SessionService
	responses *cache.Cache
	mux       *http.ServeMux
}

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		APIBaseURL:          apiURL,
		APITimeout:          2,
		APIRetryEnabled:     false,
		APIRetryMaxAttempts: 1,
		QRImageBaseURL:      "https://qr.test/create/",
		JWTSecret:           "test-secret",
		JWTAlgorithm:        "HS256",
		JWTTestTokenTTL:     3600,
		CacheBackend:        "memory",
		SessionTTL:          3600,
		DiagnosticsEnabled:  true,
		TestDNI:             "12345678",
		TestPassword:        "password123",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	api := &stubAPI{
		routes: make(map[string]http.HandlerFunc),
		calls:  make(map[string]int),
		bodies: make(map[string]string),
	}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	renderer, err := views.New()
	if err != nil {
		t.Fatalf("views.New: %v", err)
	}

	sessions := services.NewSessionService(cache.NewMemory(0), time.Hour)
	responses := cache.New(cache.NewMemory(0))
	h, err := NewHandler(testConfig(server.URL), responses, sessions, renderer)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	for _, route := range h.Routes() {
		mws := []middleware.Middleware{middleware.Session(sessions, h.cookies)}
		if !route.Public {
			mws = append(mws, middleware.Auth(h.Verifier()))
		}
		mux.HandleFunc(route.Pattern(), middleware.Chain(route.Handler, mws...))
	}

	return &testEnv{h: h, api: api, sessions: sessions, responses: responses, mux: mux}
}

// login returns a session cookie holding a valid token for user 42.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := e.h.Verifier().Issue(services.TokenClaims{
		DNI: "12345678",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	session, err := e.sessions.Create(context.Background())
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}
	session.JWTToken = token
	if err := e.sessions.Save(context.Background(), session); err != nil {
		t.Fatalf("Save session: %v", err)
	}
	return &http.Cookie{Name: services.SessionCookieName, Value: session.ID}
}

func (e *testEnv) serve(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	return e.serve(httptest.NewRequest(http.MethodGet, path, nil), cookies...)
}

func (e *testEnv) getJSON(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	return e.serve(req, cookies...)
}

func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.serve(req, cookies...)
}

// session loads the session the response belongs to: the one it started,
// or the one the request carried.
func (e *testEnv) session(t *testing.T, rec *httptest.ResponseRecorder, sent *http.Cookie) *models.Session {
	t.Helper()
	id := ""
	if sent != nil {
		id = sent.Value
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == services.SessionCookieName {
			id = c.Value
		}
	}
	if id == "" {
		t.Fatal("response has no session")
	}
	session, err := e.sessions.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get session %s: %v", id, err)
	}
	return session
}

func hasFlash(session *models.Session, level models.FlashLevel, message string) bool {
	for _, f := range session.Flashes {
		if f.Level == level && f.Message == message {
			return true
		}
	}
	return false
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("Status = %d, want 302; body: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

func assertBodyContains(t *testing.T, rec *httptest.ResponseRecorder, want ...string) {
	t.Helper()
	body := rec.Body.String()
	for _, w := range want {
		if !strings.Contains(body, w) {
			t.Errorf("body does not contain %q:\n%s", w, body)
		}
	}
}

// ABOUTME: Test helpers for e2e tests
// ABOUTME: Starts a mock accreditation API and a portal server built from environment configuration

package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/markalston/acreditaciones-portal/cache"
	"github.com/markalston/acreditaciones-portal/config"
	"github.com/markalston/acreditaciones-portal/handlers"
	"github.com/markalston/acreditaciones-portal/services"
	"github.com/markalston/acreditaciones-portal/views"
)

const testSecret = "e2e-secret"

// mockAPI imitates the accreditation API. Tokens it issues are signed with
// testSecret so the portal accepts them.
type mockAPI struct {
	t      *testing.T
	secret string

	mu        sync.Mutex
	failing   bool
	broken    map[string]bool
	overrides map[string]string
	calls     map[string]int
}

func newMockAPI(t *testing.T) (*mockAPI, *httptest.Server) {
	t.Helper()
	m := &mockAPI{t: t, secret: testSecret, broken: map[string]bool{}, overrides: map[string]string{}, calls: map[string]int{}}
	server := httptest.NewServer(m)
	t.Cleanup(server.Close)
	return m, server
}

// setFailing makes every endpoint answer 503.
func (m *mockAPI) setFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// breakEndpoint makes "METHOD /path" answer 500.
func (m *mockAPI) breakEndpoint(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broken[key] = true
}

// override replaces the body served for "METHOD /path".
func (m *mockAPI) override(key, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[key] = body
}

func (m *mockAPI) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[key]
}

func (m *mockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	m.mu.Lock()
	m.calls[key]++
	failing := m.failing || m.broken[key]
	body, overridden := m.overrides[key]
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"success":false,"message":"Mantenimiento"}`))
		return
	}
	if overridden {
		w.Write([]byte(body))
		return
	}

	switch key {
	case "POST /auth/login":
		var req struct {
			DNI      string `json:"dni"`
			Password string `json:"password"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"Credenciales inválidas"}`))
			return
		}
		m.writeData(w, map[string]any{"token": m.token(m.secret)})
	case "POST /auth/logout":
		m.writeData(w, nil)
	case "GET /user/profile":
		m.writeData(w, map[string]any{"user": map[string]any{
			"id": 42, "dni": "12345678", "name": "Ana Pérez", "email": "ana@example.com", "team_id": 7, "status": "approved",
		}})
	case "GET /user/status":
		m.writeData(w, map[string]any{"status": map[string]any{"status": "approved", "message": "Acreditación vigente"}})
	case "GET /user/promotions", "GET /promotions/active":
		m.writeData(w, map[string]any{"promotions": []map[string]any{
			{"id": 9, "title": "Paddock Pass", "description": "Acceso libre", "discount": "10%", "valid_until": "2025-12-31", "type": "benefit", "active": true},
		}})
	case "GET /user/history":
		m.writeData(w, map[string]any{"history": []map[string]any{
			{"event": "Fecha 1", "circuit": "Autódromo Norte", "date": "2025-03-02", "status": "approved"},
		}})
	case "GET /user/statistics":
		m.writeData(w, map[string]any{"statistics": map[string]any{"total_races": 12, "attendance_percentage": 75}})
	case "PUT /user/profile":
		m.writeData(w, nil)
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"No encontrado"}`))
	}
}

func (m *mockAPI) writeData(w http.ResponseWriter, data any) {
	json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func (m *mockAPI) token(secret string) string {
	m.t.Helper()
	verifier, err := services.NewTokenVerifier(services.TokenVerifierConfig{Secret: secret})
	if err != nil {
		m.t.Fatalf("NewTokenVerifier: %v", err)
	}
	token, err := verifier.Issue(services.TokenClaims{
		DNI: "12345678",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	if err != nil {
		m.t.Fatalf("Issue: %v", err)
	}
	return token
}

// newPortal starts the portal against apiURL. extra overrides environment
// variables on top of the test defaults.
func newPortal(t *testing.T, apiURL string, extra map[string]string) *httptest.Server {
	t.Helper()

	env := map[string]string{
		"ENV_FILE":            t.TempDir() + "/missing.env",
		"API_BASE_URL":        apiURL,
		"API_TIMEOUT":         "2",
		"API_RETRY_ENABLED":   "false",
		"JWT_SECRET":          testSecret,
		"COOKIE_SECURE":       "false",
		"CACHE_BACKEND":       "memory",
		"DIAGNOSTICS_ENABLED": "false",
		"RATE_LIMIT_ENABLED":  "true",
		"RATE_LIMIT_AUTH":     "100",
		"RATE_LIMIT_DEFAULT":  "1000",
	}
	for key, value := range extra {
		env[key] = value
	}
	for key, value := range env {
		t.Setenv(key, value)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}

	renderer, err := views.New()
	if err != nil {
		t.Fatalf("views.New: %v", err)
	}

	responses := cache.New(cache.NewMemory(0))
	sessions := services.NewSessionService(cache.NewMemory(0), cfg.SessionLifetime())
	h, err := handlers.NewHandler(cfg, responses, sessions, renderer)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	server := httptest.NewServer(h.Router())
	t.Cleanup(server.Close)
	return server
}

// browser keeps cookies and does not follow redirects so tests can check them.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &browser{t: t, base: base, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(req *http.Request) *http.Response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	if err != nil {
		b.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	b.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (b *browser) get(path string) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	if err != nil {
		b.t.Fatal(err)
	}
	return b.do(req)
}

func (b *browser) postForm(path string, form url.Values) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		b.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postJSON(path, body string, header map[string]string) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(body))
	if err != nil {
		b.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	return b.do(req)
}

func (b *browser) cookie(name string) string {
	u, _ := url.Parse(b.base)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// login signs in through the login form.
func (b *browser) login() {
	b.t.Helper()
	resp := b.postForm("/login", url.Values{"dni": {"12345678"}, "password": {"secret"}})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		b.t.Fatalf("login: status %d, location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(body)
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want)
	}
}

func expectRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	expectStatus(t, resp, http.StatusFound)
	if got := resp.Header.Get("Location"); got != location {
		t.Errorf("Location = %q, want %q", got, location)
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig_RequiredFields(t *testing.T) {
	t.Cleanup(withCleanAPIEnv(t))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.APIBaseURL != "https://api.acreditaciones.test" {
		t.Errorf("Expected APIBaseURL https://api.acreditaciones.test, got %s", cfg.APIBaseURL)
	}
	if cfg.JWTSecret != "test-secret" {
		t.Errorf("Expected JWTSecret test-secret, got %s", cfg.JWTSecret)
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"missing base url", "API_BASE_URL"},
		{"missing jwt secret", "JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(withCleanAPIEnv(t))
			os.Unsetenv(tt.unset)

			if _, err := Load(); err == nil {
				t.Errorf("Expected error when %s is unset, got nil", tt.unset)
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Cleanup(withCleanAPIEnv(t))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", cfg.Timeout())
	}
	if cfg.APIRetryMaxAttempts != 3 {
		t.Errorf("Expected default retry attempts 3, got %d", cfg.APIRetryMaxAttempts)
	}
	if cfg.RetryDelay() != time.Second {
		t.Errorf("Expected default retry delay 1s, got %v", cfg.RetryDelay())
	}
	if cfg.SessionLifetime() != 2*time.Hour {
		t.Errorf("Expected default session lifetime 2h, got %v", cfg.SessionLifetime())
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("Expected default cache backend memory, got %s", cfg.CacheBackend)
	}
	if cfg.JWTAlgorithm != "HS256" {
		t.Errorf("Expected default algorithm HS256, got %s", cfg.JWTAlgorithm)
	}
	if cfg.DiagnosticsEnabled {
		t.Error("Expected diagnostics disabled by default")
	}
	if !cfg.CookieSecure {
		t.Error("Expected secure cookies by default")
	}
	if cfg.TestDNI != "12345678" || cfg.TestPassword != "password123" {
		t.Errorf("Unexpected diagnostics credentials %s/%s", cfg.TestDNI, cfg.TestPassword)
	}
}

func TestLoadConfig_BaseURLNormalized(t *testing.T) {
	t.Cleanup(withCleanAPIEnvAndExtra(t, map[string]string{
		"API_BASE_URL": "api.acreditaciones.test/v1/",
	}))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.APIBaseURL != "https://api.acreditaciones.test/v1" {
		t.Errorf("Expected normalized base URL, got %s", cfg.APIBaseURL)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name  string
		extra map[string]string
	}{
		{"unsupported algorithm", map[string]string{"JWT_ALGORITHM": "RS256"}},
		{"unknown cache backend", map[string]string{"CACHE_BACKEND": "memcached"}},
		{"too many retries", map[string]string{"API_RETRY_MAX_ATTEMPTS": "5"}},
		{"zero retries", map[string]string{"API_RETRY_MAX_ATTEMPTS": "0"}},
		{"zero timeout", map[string]string{"API_TIMEOUT": "0"}},
		{"short session", map[string]string{"SESSION_TTL": "10"}},
		{"auth rate limit zero", map[string]string{"RATE_LIMIT_AUTH": "0"}},
		{"default rate limit too high", map[string]string{"RATE_LIMIT_DEFAULT": "10001"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(withCleanAPIEnvAndExtra(t, tt.extra))

			if _, err := Load(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestLoadConfig_AlgorithmCaseInsensitive(t *testing.T) {
	t.Cleanup(withCleanAPIEnvAndExtra(t, map[string]string{"JWT_ALGORITHM": "hs512"}))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.JWTAlgorithm != "HS512" {
		t.Errorf("Expected HS512, got %s", cfg.JWTAlgorithm)
	}
}

func TestLoadConfig_RedisBackend(t *testing.T) {
	t.Cleanup(withCleanAPIEnvAndExtra(t, map[string]string{
		"CACHE_BACKEND": "Redis",
		"REDIS_ADDR":    "redis:6379",
		"REDIS_DB":      "2",
	}))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !cfg.RedisConfigured() {
		t.Error("Expected redis backend to be configured")
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Errorf("Unexpected redis settings %s/%d", cfg.RedisAddr, cfg.RedisDB)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	t.Cleanup(withCleanAPIEnv(t))
	os.Unsetenv("API_BASE_URL")
	os.Unsetenv("JWT_SECRET")
	os.Setenv("ENV_FILE", "testdata/portal.env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.APIBaseURL != "https://api.from-dotenv.test" {
		t.Errorf("Expected base URL from env file, got %s", cfg.APIBaseURL)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port from env file, got %s", cfg.Port)
	}
}

func TestLoadConfig_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	t.Cleanup(withCleanAPIEnvAndExtra(t, map[string]string{
		"ENV_FILE": "testdata/portal.env",
		"PORT":     "7000",
	}))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("Expected environment to win over env file, got %s", cfg.Port)
	}
}

func TestGetEnvStringList(t *testing.T) {
	t.Cleanup(withCleanAPIEnvAndExtra(t, map[string]string{
		"CORS_ALLOWED_ORIGINS": " https://a.test, ,https://b.test ",
	}))

	got := getEnvStringList("CORS_ALLOWED_ORIGINS")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Errorf("Unexpected list %v", got)
	}
}

// ABOUTME: Configuration loader for the accreditation portal
// ABOUTME: Loads settings from an optional .env file and environment variables with defaults

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port               string
	CORSAllowedOrigins []string // allowed CORS origins (empty = block all cross-origin)
	CookieSecure       bool     // Set Secure flag on session cookies (default: true)
	SessionTTL         int      // seconds, sliding session lifetime (default 7200)
	DiagnosticsEnabled bool     // expose /test diagnostics pages (default: false)

	// Upstream API
	APIBaseURL          string
	APITimeout          int // seconds
	APIRetryEnabled     bool
	APIRetryMaxAttempts int
	APIRetryDelayMS     int
	APIAllProxy         string // ssh+socks5://user@host:port?private-key=/path
	QRImageBaseURL      string

	// Token verification
	JWTSecret       string
	JWTAlgorithm    string
	JWTLeeway       int // seconds
	JWTIssuer       string
	JWTTestTokenTTL int // seconds, lifetime of diagnostics test tokens

	// Cache
	CacheBackend   string // memory or redis
	CacheKeyPrefix string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// Rate Limiting
	RateLimitEnabled bool // Enable rate limiting (default: true)
	RateLimitAuth    int  // Requests per minute for login endpoints (default: 5)
	RateLimitDefault int  // Requests per minute for all other endpoints (default: 100)

	// Diagnostics credentials
	TestDNI      string
	TestPassword string
}

// Timeout returns the upstream per-call timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}

// RetryDelay returns the initial retry delay.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.APIRetryDelayMS) * time.Millisecond
}

// SessionLifetime returns the sliding session TTL.
func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}

// RedisConfigured returns true if the redis backend is selected
func (c *Config) RedisConfigured() bool {
	return c.CacheBackend == "redis"
}

func Load() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	} else if err == nil {
		slog.Debug("Loaded env file")
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: getEnvStringList("CORS_ALLOWED_ORIGINS"),
		CookieSecure:       getEnvBool("COOKIE_SECURE", true),
		SessionTTL:         getEnvInt("SESSION_TTL", 7200),
		DiagnosticsEnabled: getEnvBool("DIAGNOSTICS_ENABLED", false),

		APIBaseURL:          strings.TrimRight(ensureScheme(os.Getenv("API_BASE_URL")), "/"),
		APITimeout:          getEnvInt("API_TIMEOUT", 30),
		APIRetryEnabled:     getEnvBool("API_RETRY_ENABLED", true),
		APIRetryMaxAttempts: getEnvInt("API_RETRY_MAX_ATTEMPTS", 3),
		APIRetryDelayMS:     getEnvInt("API_RETRY_DELAY_MS", 1000),
		APIAllProxy:         os.Getenv("API_ALL_PROXY"),
		QRImageBaseURL:      getEnv("QR_IMAGE_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTAlgorithm:    strings.ToUpper(getEnv("JWT_ALGORITHM", "HS256")),
		JWTLeeway:       getEnvInt("JWT_LEEWAY", 30),
		JWTIssuer:       os.Getenv("JWT_ISSUER"),
		JWTTestTokenTTL: getEnvInt("JWT_TEST_TOKEN_TTL", 3600),

		CacheBackend:   strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
		CacheKeyPrefix: getEnv("CACHE_KEY_PREFIX", "acred:"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitAuth:    getEnvInt("RATE_LIMIT_AUTH", 5),
		RateLimitDefault: getEnvInt("RATE_LIMIT_DEFAULT", 100),

		TestDNI:      getEnv("API_TEST_DNI", "12345678"),
		TestPassword: getEnv("API_TEST_PASSWORD", "password123"),
	}

	// Validate required fields
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("JWT_ALGORITHM must be one of HS256, HS384, HS512, got %q", cfg.JWTAlgorithm)
	}

	switch cfg.CacheBackend {
	case "memory", "redis":
	default:
		return nil, fmt.Errorf("CACHE_BACKEND must be memory or redis, got %q", cfg.CacheBackend)
	}

	if cfg.APIRetryMaxAttempts < 1 || cfg.APIRetryMaxAttempts > 3 {
		return nil, fmt.Errorf("API_RETRY_MAX_ATTEMPTS must be between 1 and 3, got %d", cfg.APIRetryMaxAttempts)
	}
	if cfg.APITimeout < 1 {
		return nil, fmt.Errorf("API_TIMEOUT must be positive, got %d", cfg.APITimeout)
	}
	if cfg.SessionTTL < 60 {
		return nil, fmt.Errorf("SESSION_TTL must be at least 60, got %d", cfg.SessionTTL)
	}

	// Validate rate limit values
	for _, rl := range []struct {
		name  string
		value int
	}{
		{"RATE_LIMIT_AUTH", cfg.RateLimitAuth},
		{"RATE_LIMIT_DEFAULT", cfg.RateLimitDefault},
	} {
		if rl.value < 1 || rl.value > 10000 {
			return nil, fmt.Errorf("%s must be between 1 and 10000, got %d", rl.name, rl.value)
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvStringList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}

// ABOUTME: Structured logging configuration using log/slog.
// ABOUTME: Configures the default logger from the environment and redacts secrets in logged payloads.

package logger

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
)

// redacted replaces the value of any sensitive field in a logged payload.
const redacted = "[REDACTED]"

// sensitiveFields are matched case-insensitively as substrings of a key.
var sensitiveFields = []string{"password", "token", "secret"}

// Init configures the default slog logger based on environment variables.
// LOG_LEVEL: debug, info, warn, error (default: info)
// LOG_FORMAT: text, json (default: text)
func Init() {
	slog.SetDefault(New(os.Stdout, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))
}

// New builds a logger writing to w. Unknown levels fall back to info and
// unknown formats to text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Redact returns a copy of a request payload safe to log. Maps and structs
// are walked through their JSON form; sensitive keys at any depth are masked.
// Values that cannot be encoded are replaced entirely.
func Redact(payload any) any {
	if payload == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return redacted
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return redacted
	}
	return redactValue(decoded)
}

func redactValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for key, inner := range val {
			if isSensitive(key) {
				val[key] = redacted
				continue
			}
			val[key] = redactValue(inner)
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = redactValue(inner)
		}
		return val
	default:
		return val
	}
}

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

// ABOUTME: HTTP request logging middleware with correlation IDs
// ABOUTME: Logs request start and end with sanitized path, status and latency, and counts requests

package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/markalston/acreditaciones-portal/metrics"
)

const requestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LogRequest logs HTTP requests with timing and a correlation ID. route is
// the registered pattern used as the metrics label.
func LogRequest(route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(requestIDHeader)
			if !validRequestID(requestID) {
				requestID = generateRequestID()
			}
			w.Header().Set(requestIDHeader, requestID)

			path := sanitizePath(r.URL.Path)
			slog.Debug("Request started",
				"request_id", requestID,
				"method", r.Method,
				"path", path,
			)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(wrapped, r)

			slog.Info("Request completed",
				"request_id", requestID,
				"method", r.Method,
				"path", path,
				"status", wrapped.statusCode,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			metrics.RecordHTTPRequest(r.Method, route, wrapped.statusCode)
		}
	}
}

// sanitizePath strips control characters so a crafted path cannot forge
// log lines.
func sanitizePath(path string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, path)
}

// validRequestID accepts short alphanumeric IDs from an upstream proxy.
func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

// generateRequestID creates a short random hex ID.
func generateRequestID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

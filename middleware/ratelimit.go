// ABOUTME: Fixed-window rate limiting for login attempts and portal requests
// ABOUTME: Counters are keyed by client IP, session cookie or authenticated user

package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/markalston/acreditaciones-portal/metrics"
	"github.com/markalston/acreditaciones-portal/services"
)

const (
	rateLimitedMsg = "Demasiadas solicitudes. Intente nuevamente más tarde."
	sweepEvery     = 100
)

type window struct {
	count     int
	expiresAt time.Time
}

// RateLimiter allows limit requests per key in each window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	created int // windows opened since the last sweep
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
	}
}

// Allow records a request for key. When the limit is reached it returns
// false and the time until the window closes.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]

	// The boundary instant opens a new window, so a denied request always
	// has a positive retry delay.
	if !ok || !now.Before(w.expiresAt) {
		rl.windows[key] = &window{count: 1, expiresAt: now.Add(rl.period)}

		rl.created++
		if rl.created >= sweepEvery {
			rl.sweep(now)
			rl.created = 0
		}
		return true, 0
	}

	if w.count < rl.limit {
		w.count++
		return true, 0
	}
	return false, w.expiresAt.Sub(now)
}

// sweep drops expired windows. Caller holds rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, w := range rl.windows {
		if !now.Before(w.expiresAt) {
			delete(rl.windows, key)
		}
	}
}

// ClientIP returns the leftmost X-Forwarded-For address when it parses as an
// IP, otherwise the connection's remote address. The header is trusted, so
// the portal must sit behind a proxy that sets it.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return "ip:" + ip
		}
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return "ip:" + host
}

// SessionKey keys by session cookie, falling back to ClientIP.
func SessionKey(r *http.Request) string {
	if cookie, err := r.Cookie(services.SessionCookieName); err == nil && cookie.Value != "" {
		return "session:" + cookie.Value
	}
	return ClientIP(r)
}

// UserOrIP keys by the token subject set by Auth, falling back to ClientIP.
func UserOrIP(r *http.Request) string {
	if claims := GetUserClaims(r); claims != nil && claims.Subject != "" {
		return "user:" + claims.Subject
	}
	return ClientIP(r)
}

// RateLimit returns middleware enforcing limiter per keyFunc. A nil limiter
// disables it; an empty key lets the request through.
func RateLimit(limiter *RateLimiter, keyFunc func(*http.Request) string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || keyFunc == nil {
				next(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(key)
			if allowed {
				next(w, r)
				return
			}

			retrySeconds := int(math.Ceil(retryAfter.Seconds()))
			slog.Warn("Rate limit exceeded", "key", key, "path", sanitizePath(r.URL.Path), "retry_after", retrySeconds)
			metrics.RecordRateLimited(r.URL.Path)

			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
			writeError(w, r, rateLimitedMsg, http.StatusTooManyRequests)
		}
	}
}

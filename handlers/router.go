// ABOUTME: Assembles the route table and middleware into the portal's HTTP handler
// ABOUTME: Adds CORS preflight handling for the JSON routes and the Prometheus endpoint

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/markalston/acreditaciones-portal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wraps every route in, outermost first: request logging, CORS for
// /api routes, the session scope, rate limiting, CSRF validation and, for
// non-public routes, the authentication gate.
func (h *Handler) Router() http.Handler {
	var authLimiter, defaultLimiter *middleware.RateLimiter
	if h.cfg.RateLimitEnabled {
		authLimiter = middleware.NewRateLimiter(h.cfg.RateLimitAuth, time.Minute)
		defaultLimiter = middleware.NewRateLimiter(h.cfg.RateLimitDefault, time.Minute)
	}

	cors := middleware.CORS(h.cfg.CORSAllowedOrigins)
	session := middleware.Session(h.sessions, h.cookies)
	csrf := middleware.CSRF("/login", "/api/auth/login")
	gate := middleware.Auth(h.verifier)

	mux := http.NewServeMux()
	for _, route := range h.Routes() {
		mws := []middleware.Middleware{middleware.LogRequest(route.Path)}
		if strings.HasPrefix(route.Path, "/api/") {
			mws = append(mws, cors)
		}
		mws = append(mws, session)

		switch {
		case route.Login:
			mws = append(mws, middleware.RateLimit(authLimiter, middleware.ClientIP), csrf)
		case route.Public:
			mws = append(mws, middleware.RateLimit(defaultLimiter, middleware.ClientIP), csrf)
		default:
			mws = append(mws, csrf, gate, middleware.RateLimit(defaultLimiter, middleware.UserOrIP))
		}

		mux.HandleFunc(route.Pattern(), middleware.Chain(route.Handler, mws...))
	}

	// Preflight requests never reach a handler.
	mux.HandleFunc("OPTIONS /api/", middleware.Chain(func(w http.ResponseWriter, r *http.Request) {}, cors))
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

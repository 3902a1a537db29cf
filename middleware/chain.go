// ABOUTME: Middleware chaining utility for composing HTTP middleware
// ABOUTME: Applies middleware in declaration order (first is outermost)

package middleware

import "net/http"

// Middleware wraps a handler.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Chain applies middleware functions to a handler in order.
// Chain(h, logging, session, auth) runs as logging(session(auth(h))).
func Chain(h http.HandlerFunc, middlewares ...Middleware) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			h = middlewares[i](h)
		}
	}
	return h
}

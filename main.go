// ABOUTME: Entry point for the accreditation portal web server
// ABOUTME: Wires configuration, cache and session stores, handlers and graceful shutdown

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markalston/acreditaciones-portal/cache"
	"github.com/markalston/acreditaciones-portal/config"
	"github.com/markalston/acreditaciones-portal/handlers"
	"github.com/markalston/acreditaciones-portal/logger"
	"github.com/markalston/acreditaciones-portal/services"
	"github.com/markalston/acreditaciones-portal/views"
)

const (
	memoryCleanupInterval = time.Minute
	shutdownTimeout       = 10 * time.Second
)

func main() {
	// Initialize structured logging
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting Acreditaciones portal")
	slog.Info("API configured", "url", cfg.APIBaseURL, "timeout", cfg.Timeout(), "retry", cfg.APIRetryEnabled)
	if cfg.APIAllProxy != "" {
		slog.Info("API traffic routed through SSH proxy")
	}
	if cfg.DiagnosticsEnabled {
		slog.Warn("Diagnostics pages enabled at /test")
	}

	responseStore, sessionStore, closeStores, err := openStores(cfg)
	if err != nil {
		slog.Error("Failed to open cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	defer closeStores()
	slog.Info("Cache initialized", "backend", cfg.CacheBackend)

	renderer, err := views.New()
	if err != nil {
		slog.Error("Failed to parse templates", "error", err)
		os.Exit(1)
	}

	responses := cache.New(responseStore)
	sessions := services.NewSessionService(sessionStore, cfg.SessionLifetime())

	h, err := handlers.NewHandler(cfg, responses, sessions, renderer)
	if err != nil {
		slog.Error("Failed to initialize handlers", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Timeout()*time.Duration(cfg.APIRetryMaxAttempts) + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	slog.Info("Server stopped")
}

// openStores returns the response cache store and the session store. With
// redis both share one connection under separate key prefixes.
func openStores(cfg *config.Config) (cache.Store, cache.Store, func(), error) {
	if !cfg.RedisConfigured() {
		responses := cache.NewMemory(memoryCleanupInterval)
		sessions := cache.NewMemory(memoryCleanupInterval)
		return responses, sessions, func() {
			responses.Close()
			sessions.Close()
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := cache.DialRedis(ctx, cache.RedisOptions{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	return cache.NewRedis(client, cfg.CacheKeyPrefix+"cache:"),
		cache.NewRedis(client, cfg.CacheKeyPrefix+"session:"),
		func() { closeQuietly(client) },
		nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("Failed to close cache connection", "error", err)
	}
}

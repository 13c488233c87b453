// Package server constructs and starts the CityChat HTTP service with
// helpers that apply sensible production defaults.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/citychat/citychat/internal/chat"
	"github.com/citychat/citychat/internal/geocode"
)

var (
	hub     *Hub
	manager *chat.Manager
)

// InitCore wires the registry, hub, geocode provider, and session manager
// from the active configuration. It must run after SetConfig and before the
// HTTP server starts accepting upgrades.
func InitCore(logger *slog.Logger) {
	cfg := currentConfig()

	registry := chat.NewRegistry(logger)
	hub = NewHub(logger)
	provider := geocode.NewGoogleProvider(cfg.GoogleAPIKey)
	manager = chat.NewManager(registry, provider, hub, cfg.GeocodeTimeout, logger)
	hub.BindManager(manager)
}

// CreateServer creates an HTTP server with the specified port and handler,
// with reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartHub starts the hub event loop on its own goroutine. It must be called
// before the HTTP server starts.
func StartHub() {
	go hub.Run()
	slog.Info("hub started and ready to manage WebSocket connections")
}

// StartServer starts the HTTP server and blocks until it exits.
func StartServer(server *http.Server) error {
	slog.Info("server listening", "addr", server.Addr)
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	slog.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
		return err
	}

	slog.Info("HTTP server shutdown completed")
	return nil
}

// GetHub returns the process-wide hub instance for shutdown coordination.
func GetHub() *Hub {
	return hub
}

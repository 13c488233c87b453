package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/citychat/citychat/internal/server"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "citychat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if cfg.GoogleAPIKey == "" {
		return exitConfig, fmt.Errorf("GOOGLE_API_KEY is required")
	}
	server.SetConfig(cfg)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	server.InitCore(logger)
	server.StartHub()

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitRuntime, fmt.Errorf("server error: %w", err)
		}
	case sig := <-stop:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := server.GetHub().Shutdown(cfg.ShutdownTimeout); err != nil {
		logger.Warn("hub shutdown incomplete", "error", err)
	}

	return exitOK, nil
}

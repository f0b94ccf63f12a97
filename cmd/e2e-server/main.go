// Package main provides a standalone HTTP server for E2E testing.
// It runs the same routes and handlers as the real server, but every upstream
// market data API is served by an in-process mock, so browser tests get
// deterministic quotes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"stockwatch/e2e"
	"stockwatch/e2e/mocks"
	"stockwatch/internal/api"
	"stockwatch/internal/app"
	"stockwatch/observability"
)

func main() {
	// Initialize logger in development mode for tests
	observability.InitLogger(false)
	observability.InitMetrics()

	port := os.Getenv("E2E_SERVER_PORT")
	if port == "" {
		port = "9090"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		observability.Fatal("invalid E2E_SERVER_PORT", "port", port, "error", err)
	}

	mockServer := mocks.NewMockServer()
	defer mockServer.Close()
	observability.Info("upstream mock started", "url", mockServer.URL())

	cfg := e2e.MockConfig(mockServer.URL())
	cfg.HTTP.Port = portNum

	// Watchlists go to the E2E database when one is given, otherwise to a temp file
	if databaseURL := os.Getenv(e2e.DatabaseURLEnv); databaseURL != "" {
		cfg.Database.URL = databaseURL
	} else {
		dir, err := os.MkdirTemp("", "stockwatch-e2e-*")
		if err != nil {
			observability.Fatal("failed to create temp dir", "error", err)
		}
		defer os.RemoveAll(dir)
		cfg.Watchlist.FilePath = filepath.Join(dir, "watchlists.json")
	}

	ctx := context.Background()

	application, err := app.Build(ctx, cfg)
	if err != nil {
		observability.Fatal("failed to build application", "error", err)
	}
	application.Startup(ctx)

	handler := api.NewHandler(application, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		observability.Info("starting E2E test server", "port", port, "url", fmt.Sprintf("http://localhost:%s", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			observability.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down E2E test server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("E2E test server stopped")
}

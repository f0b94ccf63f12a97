package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockwatch/internal/api"
	"stockwatch/observability"

	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				c.cfg.HTTP.Port = port
			}
			return c.serve(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides PORT)")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	application, err := c.build(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	application.Startup(ctx)

	handler := api.NewHandler(application, c.cfg)
	router := api.NewRouter(handler, c.cfg)

	requestTimeout := time.Duration(c.cfg.HTTP.RequestTimeoutSeconds) * time.Second
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", c.cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Info("starting server",
			"port", c.cfg.HTTP.Port,
			"url", fmt.Sprintf("http://localhost:%d", c.cfg.HTTP.Port),
			"providers", application.Resolver().Providers())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-errCh:
		application.Shutdown(context.Background())
		return fmt.Errorf("server error: %w", err)
	}

	observability.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("server stopped")
	return nil
}

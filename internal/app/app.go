// Package app wires the tools index components together: the generation Pipeline used by
// the generate command and the ServerApp behind the serve command.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/projectenv/tools-index/internal/config"
)

// ServerApp encapsulates all components needed to serve the index.
// It provides lifecycle management and graceful shutdown capabilities.
type ServerApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the HTTP server and, when enabled, background generation.
// This method blocks until the HTTP server stops or encounters an error.
func (app *ServerApp) Start() error {
	if app.components.Coordinator != nil {
		go func() {
			if err := app.components.Coordinator.Start(app.ctx); err != nil {
				slog.Error("Index coordinator failed", "error", err)
			}
		}()
	}

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// It stops background generation and then shuts down the HTTP server.
func (app *ServerApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server")

	if app.components.Coordinator != nil {
		if err := app.components.Coordinator.Stop(); err != nil {
			slog.Error("Failed to stop index coordinator", "error", err)
		}
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *ServerApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *ServerApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

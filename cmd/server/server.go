package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
)

// readHeaderTimeout bounds how long a client may take to send headers.
const readHeaderTimeout = 10 * time.Second

// Run starts the scheduler and the HTTP server and blocks until a shutdown
// signal has been handled. It returns the process exit code.
func (app *application) Run(ctx context.Context) (int, error) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if app.config.Scheduler.Enabled {
		if err := app.scheduler.Start(); err != nil {
			return 1, fmt.Errorf("failed to start snapshot scheduler: %w", err)
		}
	} else {
		app.logger.Warn("Snapshot scheduler disabled; snapshots only run on demand")
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("Starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// One operation so the server drains before the stores close.
	wait := gfshutdown.GracefulShutdown(ctx, app.config.Server.ShutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			app.logger.Info("Shutting down server...")
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return app.cleanup(ctx)
		},
	})

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			app.logger.Error("Server failed", "error", err)
			_ = app.cleanup(context.Background())
			return 1, fmt.Errorf("server error: %w", err)
		}
		return <-wait, nil
	case code := <-wait:
		app.logger.Info("Server shutdown completed", "exit_code", code)
		return code, nil
	}
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasklog/internal/api"
	apiMiddleware "github.com/phrazzld/tasklog/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.NewRequestLogger(app.metrics))
	r.Use(apiMiddleware.NewRateLimiter(app.config.RateLimit.RequestsPerSecond, app.config.RateLimit.Burst).Handler)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokens)
	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	importHandler := api.NewImportHandler(app.importer, app.logger)
	snapshotHandler := api.NewSnapshotHandler(app.queryService, app.logger)
	adminHandler := api.NewAdminHandler(app.scheduler, app.clock, app.logger)
	healthHandler := api.NewHealthHandler(map[string]api.Pinger{
		"database": api.PingFunc(app.db.PingContext),
		"cache":    app.cacheStore,
	}, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/tasks", taskHandler.CreateTask)
		r.Post("/tasks/import", importHandler.ImportTasks)
		r.Get("/tasks/{id}", taskHandler.GetTask)
		r.Patch("/tasks/{id}", taskHandler.UpdateTask)
		r.Delete("/tasks/{id}", taskHandler.DeleteTask)
		r.Get("/tasks/{id}/history", taskHandler.GetTaskHistory)

		r.Get("/snapshots", snapshotHandler.ListSnapshots)
		r.Get("/snapshots/{id}", snapshotHandler.GetSnapshot)

		r.Post("/admin/snapshots/run", adminHandler.RunSnapshot)
	})

	r.Get("/health", healthHandler.Health)
	r.Handle("/metrics", app.metrics.Handler())

	return r
}

// Package ui exposes the estimation service over a JSON HTTP API.
package ui

import (
	"net/http"

	"enemtri/app"
	"enemtri/internal"
	"enemtri/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// App is the HTTP application: router plus the services behind it.
type App struct {
	router  *chi.Mux
	service *app.SimulationService
	reports *report.Builder
	logger  *internal.Logger
}

// NewApp creates the HTTP application and mounts all routes.
func NewApp(service *app.SimulationService, reports *report.Builder, logger *internal.Logger) *App {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	a := &App{
		router:  chi.NewRouter(),
		service: service,
		reports: reports,
		logger:  logger.WithComponent("http"),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)

	a.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/simulations", a.handleCreateSimulation)
		r.Get("/simulations/report", a.handleSimulationReport)

		r.Get("/areas/{area}/score", a.handleAreaScore)
		r.Get("/areas/{area}/interval", a.handleAreaInterval)
		r.Get("/areas/{area}/factors", a.handleAreaFactors)

		r.Get("/statistics/{year}", a.handleStatistics)
	})
}

// ServeHTTP makes the app a http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Router returns the underlying chi router.
func (a *App) Router() *chi.Mux { return a.router }

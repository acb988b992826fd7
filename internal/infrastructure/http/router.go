package http

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"

	"github.com/electrix/tracker/internal/infrastructure/http/handlers"
)

// RegisterOps mounts the probes and the metrics endpoint on e. objects is
// nil unless the self-hosted backend serves its own public files.
func RegisterOps(e *echo.Echo, objects handlers.ObjectOpener, checks ...handlers.Checker) {
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(checks...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	if objects != nil {
		e.GET("/storage/v1/object/public/:bucket/*", handlers.NewObjectHandler(objects).Serve)
	}
}

package routes

import (
	"net/http"

	"socialprobe/internal/api/handlers"
	"socialprobe/internal/api/middleware"
	"socialprobe/internal/background"
	"socialprobe/internal/config"
	"socialprobe/internal/provider"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// Dependencies are the services the HTTP API is built on
type Dependencies struct {
	Analyzer    handlers.Analyzer
	TaskManager background.TaskManager
	Registry    *provider.Registry
	Guard       *provider.Guard
	Checks      map[string]handlers.Check
}

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, deps Dependencies) {
	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.RequestLogger())
	// synchronous analysis waits on remote jobs and gets the longer budget
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, cfg.Server.RequestTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(deps.Checks))
		health.GET("/live", handlers.LivenessHandler)
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		profiles := v1.Group("/profiles")
		{
			profiles.POST("/analyze", handlers.AnalyzeHandler(deps.Analyzer))
			profiles.POST("/analyze/async", handlers.AnalyzeAsyncHandler(deps.TaskManager))
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", handlers.ListTasksHandler(deps.TaskManager))
			tasks.GET("/:processId", handlers.TaskStatusHandler(deps.TaskManager))
		}

		v1.GET("/providers", handlers.ProvidersHandler(deps.Registry, deps.Guard))
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"service": "socialprobe",
			"version": handlers.Version,
			"status":  "running",
		})
	})
}

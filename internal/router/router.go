package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/courseloop/coursework-api/internal/config"
	"github.com/courseloop/coursework-api/internal/handler"
	"github.com/courseloop/coursework-api/internal/middleware"
	"github.com/courseloop/coursework-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TaskHandler       *handler.TaskHandler
	SubmissionHandler *handler.SubmissionHandler
	AnalyticsHandler  *handler.AnalyticsHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Guard the business prefixes only; the health endpoint stays open.
	rateLimit := middleware.RateLimit("api", 120, time.Minute)
	for _, prefix := range []string{"/api/v1/tasks", "/api/v1/submissions", "/api/v1/analytics"} {
		app.Use(prefix, jwtMiddleware, rateLimit)
	}

	// Staff guard is attached per route, not per group: student submission
	// routes share the /tasks path prefix and must stay reachable.
	staffOnly := middleware.RequireRole("teacher", "admin")

	if deps.TaskHandler != nil {
		tasks := app.Group("/api/v1/tasks")
		deps.TaskHandler.Register(tasks, staffOnly)
	}

	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(app.Group("/api/v1"), staffOnly)
	}

	if deps.AnalyticsHandler != nil {
		analytics := app.Group("/api/v1/analytics")
		deps.AnalyticsHandler.Register(analytics, staffOnly)
	}
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/seniku-go-api/internal/config"
	"github.com/noah-isme/seniku-go-api/internal/handler"
	"github.com/noah-isme/seniku-go-api/internal/middleware"
	"github.com/noah-isme/seniku-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	ClassHandler        *handler.ClassHandler
	CategoryHandler     *handler.CategoryHandler
	AssignmentHandler   *handler.AssignmentHandler
	SubmissionHandler   *handler.SubmissionHandler
	AchievementHandler  *handler.AchievementHandler
	NotificationHandler *handler.NotificationHandler
	DashboardHandler    *handler.DashboardHandler
	ExportHandler       *handler.ExportHandler
	ActivityHandler     *handler.ActivityHandler
	HealthProbes        map[string]handler.HealthProbe
	JWTMiddleware       fiber.Handler
	LoginLimiter        fiber.Handler
	ExposeMetrics       bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))
	if deps.ExposeMetrics {
		app.Get("/metrics", observability.MetricsHandler())
	}

	// Use provided JWT middleware, or a no-op if nil
	protect := deps.JWTMiddleware
	if protect == nil {
		protect = func(c *fiber.Ctx) error { return c.Next() }
	}
	limiter := deps.LoginLimiter
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"), protect, limiter)
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/users", protect))
		deps.UserHandler.RegisterProfile(api.Group("/profile", protect))
	}

	if deps.ClassHandler != nil {
		deps.ClassHandler.Register(api.Group("/classes", protect))
	}
	if deps.CategoryHandler != nil {
		deps.CategoryHandler.Register(api.Group("/categories", protect))
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(api.Group("/assignments", protect))
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(api.Group("/submissions", protect))
	}

	if deps.AchievementHandler != nil {
		deps.AchievementHandler.Register(api.Group("/achievements", protect))
	}
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", protect))
	}

	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(api.Group("/dashboard", protect))
		deps.DashboardHandler.RegisterPortfolio(api.Group("/portfolio", protect))
	}
	if deps.ExportHandler != nil {
		deps.ExportHandler.Register(api.Group("/exports", protect))
	}

	if deps.ActivityHandler != nil {
		activity := api.Group("/activity", protect, middleware.RequireRole("teacher", "admin"))
		deps.ActivityHandler.Register(activity)
	}
}

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bilgisen/newswatch/internal/middleware"
)

// SetupRoutes configures the ops routes of the service
func SetupRoutes(app *fiber.App, handlers *Handlers, adminKey string) {
	// API group with versioning
	api := app.Group("/api/v1")

	api.Get("/health", handlers.HealthCheck)
	api.Get("/status", handlers.Status)

	admin := api.Group("/admin", middleware.AdminOnly(adminKey))
	admin.Post("/cycle", handlers.TriggerCycle)

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}

// NewApp builds the fiber app with the shared middleware stack and routes
func NewApp(cfg fiber.Config, handlers *Handlers, adminKey string) *fiber.App {
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = middleware.ErrorHandler
	}
	cfg.DisableStartupMessage = true

	app := fiber.New(cfg)
	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	SetupRoutes(app, handlers, adminKey)
	return app
}

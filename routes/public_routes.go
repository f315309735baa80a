package routes

import (
	config "github.com/anjiri1684/agency_messaging/configs"
	"github.com/anjiri1684/agency_messaging/metrics"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App, cfg config.MetricsConfig) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to the Agency Messaging API",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	if cfg.Enabled {
		app.Get(cfg.Path, metrics.Handler())
	}
}

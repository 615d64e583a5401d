package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/isp-routing-engine/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Webhook *handlers.WebhookHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	app.Post("/webhook/message", cfg.Webhook.ReceiveMessage)
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/contact-inbox/internal/api/http/handlers"
	"github.com/spec-kit/contact-inbox/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Contacts       *handlers.ContactsHandler
	Webhooks       *handlers.WebhooksHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	webhooks := app.Group("/webhooks")
	webhooks.Post("/email", cfg.Webhooks.IncomingEmail)

	contacts := app.Group("/contacts")
	// Submission is public; everything else is operator-only.
	contacts.Post("/", cfg.Contacts.Submit)
	contacts.Get("/", cfg.AuthMiddleware.Handle, cfg.Contacts.List)
	contacts.Get("/:id", cfg.AuthMiddleware.Handle, cfg.Contacts.Get)
	contacts.Post("/:id/reply", cfg.AuthMiddleware.Handle, cfg.Contacts.Reply)
	contacts.Post("/:id/archive", cfg.AuthMiddleware.Handle, cfg.Contacts.Archive)
}

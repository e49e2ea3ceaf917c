package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campuscare/triage-service/internal/api/http/handlers"
	"github.com/campuscare/triage-service/internal/auth"
	"github.com/campuscare/triage-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/responses", cfg.Tickets.AddResponse)
	tickets.Get("/:id/responses", cfg.Tickets.ListResponses)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.AssignTicket)
	tickets.Post("/:id/tags", auth.RequireStaff(), cfg.Tickets.ManageTags)

	api.Get("/attachments/:id", cfg.Tickets.DownloadAttachment)
}

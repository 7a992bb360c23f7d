package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/woreda-portal/compliance-service/internal/api/http/handlers"
	"github.com/woreda-portal/compliance-service/internal/auth"
	"github.com/woreda-portal/compliance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	PublicReports  *handlers.PublicReportsHandler
	StaffReports   *handlers.StaffReportsHandler
	Users          *handlers.UsersHandler
	Auth           *handlers.AuthHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	public := app.Group("/public")
	public.Post("/reports", cfg.PublicReports.Submit)

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Auth.Login)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	staff.Get("/me", cfg.Users.Me)

	view := auth.RequireCapability(domain.CapViewReports)
	reports := staff.Group("/reports")
	reports.Get("/", view, cfg.StaffReports.List)
	reports.Get("/stats", view, cfg.StaffReports.Stats)
	reports.Get("/:id", view, cfg.StaffReports.Get)
	reports.Patch("/:id/status", auth.RequireCapability(domain.CapTransitionStatus), cfg.StaffReports.UpdateStatus)
	reports.Patch("/:id/urgency", auth.RequireCapability(domain.CapSetUrgency), cfg.StaffReports.UpdateUrgency)
	reports.Post("/:id/assign", auth.RequireCapability(domain.CapAssignReport), cfg.StaffReports.Assign)
	reports.Post("/:id/notes", auth.RequireCapability(domain.CapAddNote), cfg.StaffReports.AddNote)
	reports.Get("/:id/notes", view, cfg.StaffReports.ListNotes)
	reports.Get("/:id/history", view, cfg.StaffReports.ListHistory)

	users := staff.Group("/users", auth.RequireCapability(domain.CapManageUsers))
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)
	users.Get("/:id", cfg.Users.Get)
	users.Patch("/:id/role", cfg.Users.UpdateRole)
	users.Patch("/:id/status", cfg.Users.UpdateStatus)

	staff.Get("/metrics", auth.RequireCapability(domain.CapViewMetrics), cfg.Metrics.Get)
}

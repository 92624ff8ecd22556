package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Role gates on the groups are coarse;
// anything depending on the target resource is decided in the services.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/auth", limiter.New(limiter.Config{
		Max:        30,
		Expiration: 15 * time.Minute,
	}))
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/verify", cfg.Auth.Verify)
	authGroup.Post("/resend", cfg.Auth.ResendVerification)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/my", cfg.Tickets.ListMyTickets)

	operators := auth.RequireRoles(domain.RoleITStaff, domain.RoleManager)
	tickets.Get("", operators, cfg.Tickets.ListTickets)
	tickets.Get("/stats", operators, cfg.Tickets.TicketStats)
	tickets.Get("/sla/breaches", operators, cfg.Tickets.SLABreaches)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id/status", operators, cfg.Tickets.UpdateStatus)
	tickets.Put("/:id/priority", operators, cfg.Tickets.UpdatePriority)
	tickets.Put("/:id/assign", operators, cfg.Tickets.AssignTicket)
	tickets.Delete("/:id", auth.RequireRoles(domain.RoleManager), cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, operators)
	users.Get("", cfg.Users.ListUsers)
	users.Get("/stats", auth.RequireRoles(domain.RoleManager), cfg.Users.UserStats)
	users.Post("", cfg.Users.CreateUser)
	users.Get("/:id", cfg.Users.GetUser)
	users.Put("/:id/role", auth.RequireRoles(domain.RoleManager), cfg.Users.UpdateRole)
	users.Put("/:id/status", cfg.Users.UpdateStatus)
	users.Put("/:id/department", cfg.Users.UpdateDepartment)
	users.Delete("/:id", auth.RequireRoles(domain.RoleManager), cfg.Users.DeleteUser)
	users.Post("/:id/resend", cfg.Users.ResendVerification)
}

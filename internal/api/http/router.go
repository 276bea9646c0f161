package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dtcstudio/taskboard/internal/api/http/handlers"
	"github.com/dtcstudio/taskboard/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Tasks          *handlers.TasksHandler
	Reports        *handlers.ReportsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Staff.Login)
	authGroup.Post("/password/reset/request", cfg.Staff.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Staff.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	authProtected.Get("/me", cfg.Staff.Me)
	authProtected.Post("/password/change", cfg.Staff.ChangePassword)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	staff.Get("/", cfg.Staff.ListStaff)
	staff.Get("/:id", cfg.Staff.GetStaff)
	staff.Put("/:id", cfg.Staff.UpdateStaff)
	staff.Post("/", auth.RequireManager(), cfg.Staff.CreateStaff)

	tasks := app.Group("/tasks", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	tasks.Get("/", cfg.Tasks.ListTasks)
	tasks.Get("/assignable", cfg.Tasks.ListAssignable)
	tasks.Get("/:id", cfg.Tasks.GetTask)
	tasks.Put("/:id", cfg.Tasks.UpdateTask)
	tasks.Patch("/:id/status", cfg.Tasks.UpdateStatus)
	tasks.Post("/:id/comments", cfg.Tasks.AddComment)
	tasks.Post("/", auth.RequireManager(), cfg.Tasks.CreateTask)
	tasks.Delete("/:id", auth.RequireManager(), cfg.Tasks.DeleteTask)

	reports := app.Group("/reports", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	reports.Post("/", cfg.Reports.SubmitReport)
	reports.Get("/", cfg.Reports.ListReports)
	reports.Get("/export", auth.RequireManager(), cfg.Reports.ExportReports)
	reports.Get("/templates", cfg.Reports.ListTemplates)
	reports.Post("/templates/:id/activate", cfg.Reports.ActivateTemplate)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	notifications.Get("/", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}

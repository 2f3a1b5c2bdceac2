package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskflow/api/handler"
	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/middleware"
)

type Handlers struct {
	Auth     *apiHandler.AuthHandler
	Profile  *apiHandler.ProfileHandler
	Task     *apiHandler.TaskHandler
	Activity *apiHandler.ActivityHandler
	Admin    *apiHandler.AdminHandler
	Health   *apiHandler.HealthHandler
}

// ExposeErrors makes every handler report the details of internal errors.
func (h Handlers) ExposeErrors() {
	h.Auth.ExposeErrors(true)
	h.Profile.ExposeErrors(true)
	h.Task.ExposeErrors(true)
	h.Activity.ExposeErrors(true)
	h.Admin.ExposeErrors(true)
	h.Health.ExposeErrors(true)
}

// New builds the route table. authMiddleware guards every route except
// health, register and login.
func New(handlers Handlers, authMiddleware middleware.Middleware) *router.Router {
	r := router.New()

	auth := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return authMiddleware(h)
	}
	admin := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return middleware.Chain(h, authMiddleware, middleware.RequireRole(domain.RoleAdmin))
	}

	r.GET("/health", handlers.Health.Check)

	// Auth routes
	r.POST("/api/v1/auth/register", handlers.Auth.Register)
	r.POST("/api/v1/auth/login", handlers.Auth.Login)
	r.POST("/api/v1/auth/refresh", auth(handlers.Auth.Refresh))
	r.POST("/api/v1/auth/logout", auth(handlers.Auth.Logout))
	r.GET("/api/v1/auth/me", auth(handlers.Profile.GetProfile))
	r.PUT("/api/v1/auth/profile", auth(handlers.Profile.UpdateProfile))
	r.PUT("/api/v1/auth/change-password", auth(handlers.Profile.ChangePassword))

	// Task routes; static segments are registered before {id}.
	r.GET("/api/v1/tasks", auth(handlers.Task.ListTasks))
	r.POST("/api/v1/tasks", auth(handlers.Task.CreateTask))
	r.GET("/api/v1/tasks/stats/summary", auth(handlers.Task.Stats))
	r.DELETE("/api/v1/tasks/bulk", auth(handlers.Task.BulkDelete))
	r.PUT("/api/v1/tasks/bulk/status", auth(handlers.Task.BulkUpdateStatus))
	r.GET("/api/v1/tasks/{id}", auth(handlers.Task.GetTask))
	r.PUT("/api/v1/tasks/{id}", auth(handlers.Task.UpdateTask))
	r.DELETE("/api/v1/tasks/{id}", auth(handlers.Task.DeleteTask))
	r.POST("/api/v1/tasks/{id}/comments", auth(handlers.Task.AddComment))
	r.GET("/api/v1/tasks/{id}/activity", auth(handlers.Activity.GetLog))

	// Admin routes
	r.GET("/api/v1/admin/users", admin(handlers.Admin.ListUsers))
	r.PUT("/api/v1/admin/users/{id}/role", admin(handlers.Admin.UpdateRole))
	r.PUT("/api/v1/admin/users/{id}/status", admin(handlers.Admin.UpdateStatus))
	r.GET("/api/v1/admin/stats", admin(handlers.Admin.Stats))

	return r
}

package router

import (
	"github.com/labstack/echo/v4"

	"github.com/SuyogBora/picode-server/internal/handler"
	"github.com/SuyogBora/picode-server/internal/middleware"
)

// RegisterRBAC registers role, permission and user administration under
// /v1.  Reads need "<resource>:read"; writes need "<resource>:manage".
func RegisterRBAC(e *echo.Echo, auth echo.MiddlewareFunc, r *handler.RoleHandler, p *handler.PermissionHandler, u *handler.UserHandler) {
	g := e.Group("/v1", auth)

	// ---- Permissions ----
	g.GET("/permissions", p.List, middleware.RequirePermission("permissions:read"))
	g.POST("/permissions", p.Create, middleware.RequirePermission("permissions:manage"))
	g.DELETE("/permissions/:id", p.Delete, middleware.RequirePermission("permissions:manage"))

	// ---- Roles ----
	g.GET("/roles", r.List, middleware.RequirePermission("roles:read"))
	g.GET("/roles/:id", r.Get, middleware.RequirePermission("roles:read"))
	g.POST("/roles", r.Create, middleware.RequirePermission("roles:manage"))
	g.PUT("/roles/:id", r.Update, middleware.RequirePermission("roles:manage"))
	g.PUT("/roles/:id/default", r.SetDefault, middleware.RequirePermission("roles:manage"))
	g.DELETE("/roles/:id", r.Delete, middleware.RequirePermission("roles:manage"))

	// ---- Users ----
	g.GET("/users", u.List, middleware.RequirePermission("users:read"))
	g.GET("/users/:id", u.Get, middleware.RequirePermission("users:read"))
	g.PUT("/users/:id/roles", u.SetRoles, middleware.RequirePermission("users:manage"))
	g.PATCH("/users/:id/status", u.SetStatus, middleware.RequirePermission("users:manage"))
}

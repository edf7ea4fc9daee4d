package router

import (
	"github.com/labstack/echo/v4"

	"github.com/SuyogBora/picode-server/internal/handler"
	"github.com/SuyogBora/picode-server/internal/middleware"
	"github.com/SuyogBora/picode-server/internal/service"
)

// Admin groups the back-office handlers.
type Admin struct {
	Blogs        *handler.BlogHandler
	Careers      *handler.CareerHandler
	Applications *handler.ApplicationHandler
	Inquiries    *handler.InquiryHandler
	Files        *handler.FileHandler
	Dashboard    *handler.DashboardHandler
}

// RegisterAdmin registers the content, HR and CRM endpoints under /v1.
// Every route requires a valid JWT plus the permission named next to it.
func RegisterAdmin(e *echo.Echo, auth echo.MiddlewareFunc, a Admin) {
	g := e.Group("/v1", auth)
	perm := middleware.RequirePermission

	// ---- Blogs ----
	g.GET("/blogs", a.Blogs.List, perm("blogs:read"))
	g.GET("/blogs/:id", a.Blogs.Get, perm("blogs:read"))
	g.POST("/blogs", a.Blogs.Create, perm("blogs:create"))
	g.PUT("/blogs/:id", a.Blogs.Update, perm("blogs:update"))
	g.PATCH("/blogs/:id/publish", a.Blogs.Publish, perm("blogs:publish"))
	g.DELETE("/blogs/:id", a.Blogs.Delete, perm("blogs:delete"))

	// ---- Careers ----
	g.GET("/careers", a.Careers.List, perm("careers:read"))
	g.GET("/careers/:id", a.Careers.Get, perm("careers:read"))
	g.POST("/careers", a.Careers.Create, perm("careers:create"))
	g.PUT("/careers/:id", a.Careers.Update, perm("careers:update"))
	g.DELETE("/careers/:id", a.Careers.Delete, perm("careers:delete"))

	// ---- Applications ----
	g.GET("/applications", a.Applications.List, perm("applications:read"))
	g.GET("/applications/:id", a.Applications.Get, perm("applications:read"))
	g.PATCH("/applications/:id/status", a.Applications.UpdateStatus, perm("applications:update"))

	// ---- Inquiries ----
	g.GET("/inquiries", a.Inquiries.List, perm("inquiries:read"))
	g.GET("/inquiries/:id", a.Inquiries.Get, perm("inquiries:read"))
	g.PATCH("/inquiries/:id", a.Inquiries.Update, perm("inquiries:update"))

	// ---- Files ----
	g.POST("/files/presign", a.Files.Presign, perm("files:upload"))
	g.GET("/files/url", a.Files.URL, perm("files:read"))

	// The dashboard is open to every back-office role.
	g.GET("/dashboard", a.Dashboard.Get, middleware.RequireRole(
		service.RoleAdmin, service.RoleContentManager, service.RoleHRManager, service.RoleSupportAgent))
}

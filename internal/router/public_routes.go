package router

import "github.com/labstack/echo/v4"

// RegisterPublic registers the unauthenticated website API under
// /v1/public.  Reads go through read (the per-IP API bucket) and cache;
// form submissions go through limit, the stricter per-IP bucket.
func RegisterPublic(e *echo.Echo, a Admin, cache, read, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/public")

	g.GET("/blogs", a.Blogs.PublicList, read, cache)
	g.GET("/blogs/:slug", a.Blogs.PublicGet, read, cache)
	g.GET("/careers", a.Careers.PublicList, read, cache)
	g.GET("/careers/:id", a.Careers.PublicGet, read, cache)

	g.POST("/careers/:id/apply", a.Applications.Apply, limit)
	g.POST("/files/resume", a.Files.PresignResume, limit)
	g.POST("/inquiries", a.Inquiries.Submit, limit)
}

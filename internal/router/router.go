// Package router registers every HTTP route of the API.  Handlers and
// middleware are built in cmd/server and passed in.
package router

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/SuyogBora/picode-server/internal/handler"
)

// RegisterRoutes registers the unauthenticated infrastructure endpoints:
// the health probe and the notification socket.  The socket performs its
// own token check on the first frame.
func RegisterRoutes(e *echo.Echo, db *sql.DB, sock http.Handler, sockPath string) {
	e.GET("/healthz", handler.Health(db))
	if sock != nil {
		e.GET(sockPath, echo.WrapHandler(sock))
	}
}

// RegisterAuth registers session endpoints under /v1/auth and the
// authenticated /v1/me.  limit guards the anonymous endpoints, which
// carry no access token to key a user bucket on.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// /refresh rotates the refresh token; /refresh-access keeps it.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, auth)
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/SuyogBora/picode-server/internal/rbac"
)

// RequireRole lets the request through when the principal holds one of
// roles (SuperAdmin always passes).  It must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d := rbac.Authorize(PrincipalFrom(c), roles); !d.Allowed() {
				return deny(c, d)
			}
			return next(c)
		}
	}
}

// RequirePermission lets the request through when the principal holds
// any of codes directly, through "<resource>:manage", or through
// "all:manage".  It must run after JWTAuth.
func RequirePermission(codes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if d := rbac.AuthorizePermission(PrincipalFrom(c), codes); !d.Allowed() {
				return deny(c, d)
			}
			return next(c)
		}
	}
}

func deny(c echo.Context, d rbac.Decision) error {
	if d == rbac.DenyUnauthenticated {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
}

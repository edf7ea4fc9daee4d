package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/utils"
)

// Context keys written by JWTAuth.
const (
	ctxPrincipal = "principal"
	ctxUserID    = "user_id"
)

// PrincipalLoader loads a user together with its roles and permissions.
// *repository.UserRepo satisfies it.
type PrincipalLoader interface {
	GetPrincipal(ctx context.Context, id uint64) (*model.Principal, error)
}

// JWTAuth validates a Bearer access token, loads the user it names with
// roles and permissions resolved, and stores the result in the request
// context.  Unknown and deactivated users are rejected with 401 so a
// disabled account loses access as soon as its current request ends.
func JWTAuth(secret string, users PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c.Request())
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			uid, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			p, err := users.GetPrincipal(ctx, uid)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "user not found"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			if !p.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account disabled"})
			}

			c.Set(ctxPrincipal, p)
			c.Set(ctxUserID, strconv.FormatUint(p.ID, 10))
			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// PrincipalFrom returns the principal stored by JWTAuth, or nil on
// unauthenticated routes.
func PrincipalFrom(c echo.Context) *model.Principal {
	p, _ := c.Get(ctxPrincipal).(*model.Principal)
	return p
}

package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/service"
)

// dbTimeout bounds every repository call made from a handler.
const dbTimeout = 5 * time.Second

func dbCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	return parseUint(c.Param(name))
}

func parseUint(raw string) (uint64, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil && id > 0
}

// bindValid binds the body into req and runs its validate tags.  The
// returned error is already the 400 response.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return true, nil
}

// repoError maps repository sentinels to the status codes the API uses.
// Anything unknown is logged and reported as 500 with fallback.
func repoError(c echo.Context, log *zap.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "database timeout"})
	}
	if log != nil {
		log.Error(fallback, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
}

// notify sends the event on a detached context so that a client hanging up
// right after a write does not cancel delivery to everyone else.
func notify(c echo.Context, n service.Notifier, roles []string, event string, payload any) {
	if n == nil {
		return
	}
	ctx := context.WithoutCancel(c.Request().Context())
	n.Notify(ctx, roles, event, payload)
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}

func orNopNotifier(n service.Notifier) service.Notifier {
	if n == nil {
		return service.Nop{}
	}
	return n
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string, def, max int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v < 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

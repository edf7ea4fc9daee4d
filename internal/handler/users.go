package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/middleware"
	"github.com/SuyogBora/picode-server/internal/repository"
)

// UserHandler exposes account administration.
type UserHandler struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Log    *zap.Logger
}

func NewUserHandler(u *repository.UserRepo, t *repository.TokenRepo, log *zap.Logger) *UserHandler {
	return &UserHandler{Users: u, Tokens: t, Log: orNop(log).Named("users")}
}

type setRolesReq struct {
	RoleIDs []uint64 `json:"role_ids" validate:"required"`
}

type setStatusReq struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return repoError(c, h.Log, err, "list users failed")
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Users.GetPrincipal(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load user failed")
	}
	return c.JSON(http.StatusOK, p)
}

// SetRoles replaces the user's role set.  Open sockets keep the roles
// they authenticated with until they reconnect.
func (h *UserHandler) SetRoles(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req setRolesReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.SetRoles(ctx, id, req.RoleIDs); err != nil {
		return repoError(c, h.Log, err, "set roles failed")
	}
	p, err := h.Users.GetPrincipal(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load user failed")
	}
	h.Log.Info("user roles changed", zap.Uint64("user_id", id), zap.Strings("roles", p.RoleNames()))
	return c.JSON(http.StatusOK, p)
}

// SetStatus enables or disables an account.  Disabling also revokes every
// refresh token; callers cannot disable themselves.
func (h *UserHandler) SetStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req setStatusReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if me := middleware.PrincipalFrom(c); me != nil && me.ID == id && !*req.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot disable your own account"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Users.SetActive(ctx, id, *req.IsActive); err != nil {
		return repoError(c, h.Log, err, "set status failed")
	}
	if !*req.IsActive {
		if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
			return repoError(c, h.Log, err, "revoke sessions failed")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

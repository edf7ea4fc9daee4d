package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
)

// RoleHandler manages roles and their permission sets.
type RoleHandler struct {
	Roles *repository.RoleRepo
	Log   *zap.Logger
}

func NewRoleHandler(r *repository.RoleRepo, log *zap.Logger) *RoleHandler {
	return &RoleHandler{Roles: r, Log: orNop(log).Named("roles")}
}

type roleReq struct {
	Name          string   `json:"name" validate:"required,max=64"`
	Description   string   `json:"description" validate:"max=255"`
	IsDefault     bool     `json:"is_default"`
	PermissionIDs []uint64 `json:"permission_ids"`
}

func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	roles, err := h.Roles.List(ctx)
	if err != nil {
		return repoError(c, h.Log, err, "list roles failed")
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *RoleHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load role failed")
	}
	return c.JSON(http.StatusOK, role)
}

// Create inserts a role.  Unknown permission ids are a 409 through the
// foreign key; a taken name is a 409 through the unique index.
func (h *RoleHandler) Create(c echo.Context) error {
	var req roleReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	role := &model.Role{
		Name:          req.Name,
		Description:   req.Description,
		IsDefault:     req.IsDefault,
		PermissionIDs: req.PermissionIDs,
	}
	if err := h.Roles.Create(ctx, role); err != nil {
		return repoError(c, h.Log, err, "create role failed")
	}
	created, err := h.Roles.GetByID(ctx, role.ID)
	if err != nil {
		return repoError(c, h.Log, err, "load role failed")
	}
	h.Log.Info("role created", zap.Uint64("role_id", role.ID), zap.String("name", role.Name))
	return c.JSON(http.StatusCreated, created)
}

// Update replaces name, description and permission set.  The default flag
// is changed through SetDefault only.
func (h *RoleHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roleReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	role := &model.Role{ID: id, Name: req.Name, Description: req.Description, PermissionIDs: req.PermissionIDs}
	if err := h.Roles.Update(ctx, role); err != nil {
		return repoError(c, h.Log, err, "update role failed")
	}
	updated, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load role failed")
	}
	return c.JSON(http.StatusOK, updated)
}

// SetDefault flags the role assigned at self-registration and clears the
// flag everywhere else in the same transaction.
func (h *RoleHandler) SetDefault(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Roles.SetDefault(ctx, id); err != nil {
		return repoError(c, h.Log, err, "set default role failed")
	}
	h.Log.Info("default role changed", zap.Uint64("role_id", id))
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a role that no user holds.
func (h *RoleHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Roles.Delete(ctx, id); err != nil {
		return repoError(c, h.Log, err, "delete role failed")
	}
	return c.NoContent(http.StatusNoContent)
}

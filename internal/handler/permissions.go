package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
)

// PermissionHandler manages the (resource, action) catalogue.
type PermissionHandler struct {
	Perms *repository.PermissionRepo
	Log   *zap.Logger
}

func NewPermissionHandler(p *repository.PermissionRepo, log *zap.Logger) *PermissionHandler {
	return &PermissionHandler{Perms: p, Log: orNop(log).Named("permissions")}
}

type permissionReq struct {
	Resource    string `json:"resource" validate:"required,max=64,excludesall=:"`
	Action      string `json:"action" validate:"required,max=64,excludesall=:"`
	Description string `json:"description" validate:"max=255"`
}

func (h *PermissionHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	perms, err := h.Perms.List(ctx)
	if err != nil {
		return repoError(c, h.Log, err, "list permissions failed")
	}
	return c.JSON(http.StatusOK, perms)
}

// Create adds a permission.  The pair is unique; a repeat is 409.
func (h *PermissionHandler) Create(c echo.Context) error {
	var req permissionReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p := &model.Permission{Resource: req.Resource, Action: req.Action, Description: req.Description}
	if err := h.Perms.Create(ctx, p); err != nil {
		return repoError(c, h.Log, err, "create permission failed")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PermissionHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Perms.Delete(ctx, id); err != nil {
		return repoError(c, h.Log, err, "delete permission failed")
	}
	return c.NoContent(http.StatusNoContent)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/repository"
)

const dashboardRecent = 5

type DashboardHandler struct {
	Stats *repository.DashboardRepo
	Log   *zap.Logger
}

func NewDashboardHandler(r *repository.DashboardRepo, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{Stats: r, Log: orNop(log).Named("dashboard")}
}

// Get returns per-status counts and the latest applications and inquiries.
func (h *DashboardHandler) Get(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	s, err := h.Stats.Stats(ctx, dashboardRecent)
	if err != nil {
		return repoError(c, h.Log, err, "load dashboard failed")
	}
	return c.JSON(http.StatusOK, s)
}

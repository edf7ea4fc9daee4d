package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/middleware"
	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/service"
)

// CareerHandler manages job postings.
type CareerHandler struct {
	Careers  *repository.CareerRepo
	Notifier service.Notifier
	Cache    *middleware.CacheInvalidator
	Log      *zap.Logger
}

func NewCareerHandler(r *repository.CareerRepo, n service.Notifier, cache *middleware.CacheInvalidator, log *zap.Logger) *CareerHandler {
	return &CareerHandler{Careers: r, Notifier: orNopNotifier(n), Cache: cache, Log: orNop(log).Named("careers")}
}

type careerReq struct {
	Title          string `json:"title" validate:"required,max=200"`
	Department     string `json:"department" validate:"max=120"`
	Location       string `json:"location" validate:"max=120"`
	EmploymentType string `json:"employment_type" validate:"max=40"`
	Description    string `json:"description" validate:"required"`
	Requirements   string `json:"requirements"`
	Status         string `json:"status" validate:"omitempty,oneof=open closed"`
}

// PublicList returns open postings.
func (h *CareerHandler) PublicList(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Careers.List(ctx, model.CareerOpen)
	if err != nil {
		return repoError(c, h.Log, err, "list careers failed")
	}
	return c.JSON(http.StatusOK, list)
}

// PublicGet returns an open posting; closed ones are hidden.
func (h *CareerHandler) PublicGet(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	career, err := h.Careers.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load career failed")
	}
	if career.Status != model.CareerOpen {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	return c.JSON(http.StatusOK, career)
}

// List returns every posting, optionally filtered by ?status=.
func (h *CareerHandler) List(c echo.Context) error {
	status := strings.ToLower(c.QueryParam("status"))
	if status != "" && status != model.CareerOpen && status != model.CareerClosed {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Careers.List(ctx, status)
	if err != nil {
		return repoError(c, h.Log, err, "list careers failed")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *CareerHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	career, err := h.Careers.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load career failed")
	}
	return c.JSON(http.StatusOK, career)
}

func (h *CareerHandler) Create(c echo.Context) error {
	var req careerReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	career := fromCareerReq(req)
	if p := middleware.PrincipalFrom(c); p != nil {
		career.CreatedBy = p.ID
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Careers.Create(ctx, career); err != nil {
		return repoError(c, h.Log, err, "create career failed")
	}
	created, err := h.Careers.GetByID(ctx, career.ID)
	if err != nil {
		return repoError(c, h.Log, err, "load career failed")
	}
	h.changed(c, created)
	return c.JSON(http.StatusCreated, created)
}

func (h *CareerHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req careerReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	existing, err := h.Careers.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load career failed")
	}
	career := fromCareerReq(req)
	career.ID = id
	if req.Status == "" {
		career.Status = existing.Status
	}
	if err := h.Careers.Update(ctx, career); err != nil {
		return repoError(c, h.Log, err, "update career failed")
	}
	updated, err := h.Careers.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load career failed")
	}
	h.changed(c, updated)
	return c.JSON(http.StatusOK, updated)
}

// Delete removes a posting.  Postings with applications are kept (409);
// close them instead.
func (h *CareerHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Careers.Delete(ctx, id); err != nil {
		return repoError(c, h.Log, err, "delete career failed")
	}
	h.Cache.Invalidate(ctx)
	return c.NoContent(http.StatusNoContent)
}

func (h *CareerHandler) changed(c echo.Context, career *model.Career) {
	h.Cache.Invalidate(c.Request().Context())
	notify(c, h.Notifier, service.Audience(service.RoleHRManager), service.EventCareer, career)
}

func fromCareerReq(req careerReq) *model.Career {
	return &model.Career{
		Title:          strings.TrimSpace(req.Title),
		Department:     req.Department,
		Location:       req.Location,
		EmploymentType: req.EmploymentType,
		Description:    req.Description,
		Requirements:   req.Requirements,
		Status:         req.Status,
	}
}

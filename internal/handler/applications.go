package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/service"
	"github.com/SuyogBora/picode-server/internal/storage"
)

// ApplicationHandler takes candidate submissions and lets HR move them
// through the pipeline.
type ApplicationHandler struct {
	Applications *repository.ApplicationRepo
	Notifier     service.Notifier
	Log          *zap.Logger
}

func NewApplicationHandler(r *repository.ApplicationRepo, n service.Notifier, log *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{Applications: r, Notifier: orNopNotifier(n), Log: orNop(log).Named("applications")}
}

type applyReq struct {
	FullName    string `json:"full_name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email,max=190"`
	Phone       string `json:"phone" validate:"max=40"`
	ResumeKey   string `json:"resume_key" validate:"required,max=512"`
	CoverLetter string `json:"cover_letter" validate:"max=5000"`
}

type applicationStatusReq struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes" validate:"max=2000"`
}

// Apply records a submission against the career in the path.  The resume
// must already be uploaded under resumes/.
func (h *ApplicationHandler) Apply(c echo.Context) error {
	careerID, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req applyReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if !storage.ValidKey(req.ResumeKey) || !strings.HasPrefix(req.ResumeKey, "resumes/") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resume_key"})
	}

	a := &model.Application{
		CareerID:    careerID,
		FullName:    strings.TrimSpace(req.FullName),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       req.Phone,
		ResumeKey:   req.ResumeKey,
		CoverLetter: req.CoverLetter,
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Applications.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "career is closed"})
		}
		return repoError(c, h.Log, err, "create application failed")
	}
	created, err := h.Applications.GetByID(ctx, a.ID)
	if err != nil {
		return repoError(c, h.Log, err, "load application failed")
	}
	notify(c, h.Notifier, service.Audience(service.RoleHRManager), service.EventApplication, created)
	return c.JSON(http.StatusCreated, echo.Map{"id": created.ID, "status": created.Status})
}

// List accepts ?career_id=, ?status= and ?limit=.
func (h *ApplicationHandler) List(c echo.Context) error {
	f := repository.ApplicationFilter{
		Status: strings.ToLower(c.QueryParam("status")),
		Limit:  queryInt(c, "limit", 100, 500),
	}
	if f.Status != "" && !contains(model.ApplicationStatuses, f.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if raw := c.QueryParam("career_id"); raw != "" {
		id, ok := parseUint(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid career_id"})
		}
		f.CareerID = id
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Applications.List(ctx, f)
	if err != nil {
		return repoError(c, h.Log, err, "list applications failed")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *ApplicationHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Applications.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load application failed")
	}
	return c.JSON(http.StatusOK, a)
}

// UpdateStatus moves a submission to any pipeline status.
func (h *ApplicationHandler) UpdateStatus(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req applicationStatusReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	status := strings.ToLower(req.Status)
	if !contains(model.ApplicationStatuses, status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Applications.UpdateStatus(ctx, id, status, req.Notes); err != nil {
		return repoError(c, h.Log, err, "update application failed")
	}
	a, err := h.Applications.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load application failed")
	}
	notify(c, h.Notifier, service.Audience(service.RoleHRManager), service.EventApplication, a)
	return c.JSON(http.StatusOK, a)
}

package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/model"
	"github.com/SuyogBora/picode-server/internal/repository"
	"github.com/SuyogBora/picode-server/internal/service"
)

type InquiryHandler struct {
	Inquiries *repository.InquiryRepo
	Notifier  service.Notifier
	Log       *zap.Logger
}

func NewInquiryHandler(r *repository.InquiryRepo, n service.Notifier, log *zap.Logger) *InquiryHandler {
	return &InquiryHandler{Inquiries: r, Notifier: orNopNotifier(n), Log: orNop(log).Named("inquiries")}
}

type inquiryReq struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=190"`
	Phone   string `json:"phone" validate:"max=40"`
	Company string `json:"company" validate:"max=120"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// inquiryUpdateReq leaves fields it does not carry unchanged.  Unassign
// clears the assignee.
type inquiryUpdateReq struct {
	Status     string  `json:"status"`
	AssignedTo *uint64 `json:"assigned_to"`
	Unassign   bool    `json:"unassign"`
}

// Submit stores a contact request from the public site.
func (h *InquiryHandler) Submit(c echo.Context) error {
	var req inquiryReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	in := &model.Inquiry{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:   req.Phone,
		Company: req.Company,
		Subject: strings.TrimSpace(req.Subject),
		Message: req.Message,
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Inquiries.Create(ctx, in); err != nil {
		return repoError(c, h.Log, err, "create inquiry failed")
	}
	created, err := h.Inquiries.GetByID(ctx, in.ID)
	if err != nil {
		return repoError(c, h.Log, err, "load inquiry failed")
	}
	notify(c, h.Notifier, service.Audience(service.RoleSupportAgent), service.EventInquiry, created)
	return c.JSON(http.StatusCreated, echo.Map{"id": created.ID, "status": created.Status})
}

func (h *InquiryHandler) List(c echo.Context) error {
	status := strings.ToLower(c.QueryParam("status"))
	if status != "" && !contains(model.InquiryStatuses, status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	list, err := h.Inquiries.List(ctx, status, queryInt(c, "limit", 100, 500))
	if err != nil {
		return repoError(c, h.Log, err, "list inquiries failed")
	}
	return c.JSON(http.StatusOK, list)
}

func (h *InquiryHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	in, err := h.Inquiries.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load inquiry failed")
	}
	return c.JSON(http.StatusOK, in)
}

// Update changes status and/or assignee.  Assigning to an unknown user is
// a 409 through the foreign key.
func (h *InquiryHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req inquiryUpdateReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	status := strings.ToLower(req.Status)
	if status != "" && !contains(model.InquiryStatuses, status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := dbCtx(c)
	defer cancel()
	in, err := h.Inquiries.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load inquiry failed")
	}
	if status == "" {
		status = in.Status
	}
	assignee := in.AssignedTo
	switch {
	case req.Unassign:
		assignee = nil
	case req.AssignedTo != nil:
		assignee = req.AssignedTo
	}
	if err := h.Inquiries.Update(ctx, id, status, assignee); err != nil {
		return repoError(c, h.Log, err, "update inquiry failed")
	}
	updated, err := h.Inquiries.GetByID(ctx, id)
	if err != nil {
		return repoError(c, h.Log, err, "load inquiry failed")
	}
	notify(c, h.Notifier, service.Audience(service.RoleSupportAgent), service.EventInquiry, updated)
	return c.JSON(http.StatusOK, updated)
}

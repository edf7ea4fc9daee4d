package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/storage"
)

// Presigner is the slice of *storage.Presigner the file endpoints use.
type Presigner interface {
	PresignUpload(ctx context.Context, folder, filename, contentType string, size int64) (*storage.Upload, error)
	PresignDownload(ctx context.Context, key string) (*storage.Download, error)
}

// FileHandler hands out presigned S3 URLs; bytes never pass through the
// API.  A nil Files means storage is not configured and every call is 503.
type FileHandler struct {
	Files Presigner
	Log   *zap.Logger
}

func NewFileHandler(p Presigner, log *zap.Logger) *FileHandler {
	return &FileHandler{Files: p, Log: orNop(log).Named("files")}
}

type presignReq struct {
	Folder      string `json:"folder" validate:"required"`
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=120"`
	Size        int64  `json:"size" validate:"gte=0"`
}

// Presign signs an upload into any known folder.
func (h *FileHandler) Presign(c echo.Context) error {
	var req presignReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	return h.presign(c, req)
}

// PresignResume is the public variant used by applicants; the folder is
// fixed to resumes.
func (h *FileHandler) PresignResume(c echo.Context) error {
	req := presignReq{Folder: "resumes"}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Folder = "resumes"
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return h.presign(c, req)
}

func (h *FileHandler) presign(c echo.Context, req presignReq) error {
	if h.Files == nil {
		return storageError(c, h.Log, storage.ErrDisabled)
	}
	up, err := h.Files.PresignUpload(c.Request().Context(), req.Folder, req.Filename, req.ContentType, req.Size)
	if err != nil {
		return storageError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, up)
}

// URL signs a download for ?key=.
func (h *FileHandler) URL(c echo.Context) error {
	if h.Files == nil {
		return storageError(c, h.Log, storage.ErrDisabled)
	}
	key := c.QueryParam("key")
	if key == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "key is required"})
	}
	dl, err := h.Files.PresignDownload(c.Request().Context(), key)
	if err != nil {
		return storageError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, dl)
}

func storageError(c echo.Context, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, storage.ErrDisabled):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrTooLarge),
		errors.Is(err, storage.ErrInvalidFolder),
		errors.Is(err, storage.ErrInvalidKey):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	log.Error("presign failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "presign failed"})
}

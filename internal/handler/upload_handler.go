package handler

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/civreg/personnel-api/pkg/errors"
	"github.com/civreg/personnel-api/pkg/response"
	"github.com/civreg/personnel-api/pkg/storage"
)

// UploadHandler serves stored attachment files.
type UploadHandler struct {
	store *storage.UploadStore
}

// NewUploadHandler constructs the handler.
func NewUploadHandler(store *storage.UploadStore) *UploadHandler {
	return &UploadHandler{store: store}
}

// Serve godoc
// @Summary Serve an uploaded file
// @Description Stream a stored photo, fingerprint or avatar image
// @Tags Uploads
// @Produce octet-stream
// @Param filepath path string true "Stored file path"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /uploads/{filepath} [get]
func (h *UploadHandler) Serve(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("filepath"), "/")
	if rel == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file path required"))
		return
	}

	path, err := h.store.Path(rel)
	if err != nil {
		if errors.Is(err, storage.ErrOutsideRoot) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid file path"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve file"))
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}

	c.Header("Cache-Control", "private, max-age=3600")
	http.ServeFile(c.Writer, c.Request, path)
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civreg/personnel-api/internal/middleware"
	"github.com/civreg/personnel-api/internal/models"
	"github.com/civreg/personnel-api/internal/service"
	appErrors "github.com/civreg/personnel-api/pkg/errors"
	"github.com/civreg/personnel-api/pkg/response"
	"github.com/civreg/personnel-api/pkg/storage"
)

type recordService interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.Record, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Record, error)
	Create(ctx context.Context, req service.RecordRequest, photo, fingerprint *storage.Upload) (*models.Record, error)
	Update(ctx context.Context, id string, req service.RecordRequest, photo, fingerprint *storage.Upload) (*models.Record, error)
	Delete(ctx context.Context, id string) (*models.Record, error)
	Export(ctx context.Context, search, format string) ([]byte, string, string, error)
}

// RecordHandler manages person-record HTTP endpoints.
type RecordHandler struct {
	service recordService
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(svc recordService) *RecordHandler {
	return &RecordHandler{service: svc}
}

// List godoc
// @Summary List person records
// @Tags Records
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /records [get]
func (h *RecordHandler) List(c *gin.Context) {
	filter := models.RecordFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 10),
	}

	records, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get a person record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [get]
func (h *RecordHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Create godoc
// @Summary Create a person record
// @Tags Records
// @Accept multipart/form-data
// @Produce json
// @Param fullName formData string true "Full name"
// @Param mothersName formData string true "Mother's name"
// @Param tribe formData string true "Tribe"
// @Param phone formData string true "Phone"
// @Param photo formData file false "Photo image"
// @Param fingerprint formData file false "Fingerprint image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /records [post]
func (h *RecordHandler) Create(c *gin.Context) {
	var req service.RecordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}

	photo, fingerprint, err := h.attachments(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.service.Create(c.Request.Context(), req, photo, fingerprint)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetAuditSubject(c, record.ID)
	response.Created(c, record)
}

// Update godoc
// @Summary Update a person record
// @Tags Records
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [put]
func (h *RecordHandler) Update(c *gin.Context) {
	var req service.RecordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid record payload"))
		return
	}

	photo, fingerprint, err := h.attachments(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	record, err := h.service.Update(c.Request.Context(), c.Param("id"), req, photo, fingerprint)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a person record
// @Tags Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /records/{id} [delete]
func (h *RecordHandler) Delete(c *gin.Context) {
	deleted, err := h.service.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, deleted, nil)
}

// Export godoc
// @Summary Export person records
// @Description Stream all matching records as a CSV or PDF download
// @Tags Records
// @Produce text/csv
// @Param search query string false "Search term"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /records/export [get]
func (h *RecordHandler) Export(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	format := strings.TrimSpace(c.Query("format"))

	data, contentType, filename, err := h.service.Export(c.Request.Context(), search, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (h *RecordHandler) attachments(c *gin.Context) (*storage.Upload, *storage.Upload, error) {
	photo, err := formUpload(c, "photo")
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read photo")
	}
	fingerprint, err := formUpload(c, "fingerprint")
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read fingerprint")
	}
	return photo, fingerprint, nil
}

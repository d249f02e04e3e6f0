package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/civreg/personnel-api/internal/models"
	"github.com/civreg/personnel-api/internal/service"
	"github.com/civreg/personnel-api/pkg/response"
)

// AuditHandler exposes the read-only audit trail endpoints.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit trail entries
// @Tags Audit
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param user_id query string false "Filter by actor"
// @Param action query string false "Filter by action"
// @Success 200 {object} response.Envelope
// @Router /admin/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditLogFilter{
		UserID: strings.TrimSpace(c.Query("user_id")),
		Action: strings.TrimSpace(c.Query("action")),
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 20),
	}

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, pagination)
}

// Stats godoc
// @Summary Audit trail statistics
// @Tags Audit
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/audit-stats [get]
func (h *AuditHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

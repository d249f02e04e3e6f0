package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/civreg/personnel-api/internal/middleware"
	"github.com/civreg/personnel-api/internal/service"
	"github.com/civreg/personnel-api/pkg/response"
)

// DashboardHandler serves aggregated statistics endpoints.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Overview godoc
// @Summary Record statistics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/stats [get]
func (h *DashboardHandler) Overview(c *gin.Context) {
	stats, cacheHit, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// AdminOverview godoc
// @Summary Combined account, record and audit statistics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *DashboardHandler) AdminOverview(c *gin.Context) {
	stats, cacheHit, err := h.service.AdminOverview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

package handler

import (
	"github.com/freightport/backend/internal/application/dashboard"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the staff overview
type DashboardHandler struct {
	BaseHandler
	service *dashboard.Service
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Summary godoc
// @ID           getDashboardSummary
// @Summary      Operations summary
// @Description  Order and bill counts per status, outstanding and overdue amounts, companies awaiting review
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} APIResponse[dashboard.Summary]
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	s, err := h.service.Summary(c.Request.Context(), actor(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}

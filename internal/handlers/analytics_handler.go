package handlers

import (
	"lifeline/internal/services"
	"lifeline/internal/utils"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// FleetSnapshot returns the live dashboard counters.
func (h *AnalyticsHandler) FleetSnapshot(c *gin.Context) {
	snapshot, err := h.analyticsService.Snapshot(c.Request.Context())
	if err != nil {
		utils.InternalServerErrorResponse(c)
		return
	}

	utils.SuccessResponse(c, "Fleet snapshot", snapshot)
}

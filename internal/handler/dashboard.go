package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/service"
	"go.uber.org/zap"
)

// DashboardHandler implements the dashboard API endpoint
type DashboardHandler struct {
	dashboard *service.DashboardService
	logger    *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboard *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		logger:    logger,
	}
}

// GetDashboard handles GET /api/v1/dashboard?user_id=
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondValidationError(c, errMissingUserID)
		return
	}

	dashboard, err := h.dashboard.GetDashboard(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to build dashboard",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		respondServiceError(c, err, "Failed to build dashboard")
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

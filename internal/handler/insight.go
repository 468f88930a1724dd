package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/service"
	"go.uber.org/zap"
)

// InsightHandler implements adherence insight API endpoints
type InsightHandler struct {
	insights *service.InsightService
	logger   *zap.Logger
}

// NewInsightHandler creates a new InsightHandler
func NewInsightHandler(insights *service.InsightService, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{
		insights: insights,
		logger:   logger,
	}
}

// GetInsights handles GET /api/v1/insights?user_id=
func (h *InsightHandler) GetInsights(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondValidationError(c, errMissingUserID)
		return
	}

	insights, err := h.insights.GetAdherenceInsights(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get insights",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		respondServiceError(c, err, "Failed to get insights")
		return
	}

	c.JSON(http.StatusOK, insights)
}

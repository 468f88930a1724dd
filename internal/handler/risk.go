package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/service"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// RiskHandler implements risk assessment API endpoints
type RiskHandler struct {
	risk   *service.RiskService
	logger *zap.Logger
}

// NewRiskHandler creates a new RiskHandler
func NewRiskHandler(risk *service.RiskService, logger *zap.Logger) *RiskHandler {
	return &RiskHandler{
		risk:   risk,
		logger: logger,
	}
}

// AssessRisk handles POST /api/v1/risk-assessment
func (h *RiskHandler) AssessRisk(c *gin.Context) {
	var input model.HealthDataInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		respondValidationError(c, err)
		return
	}

	assessment, err := h.risk.AssessRisk(c.Request.Context(), &input)
	if err != nil {
		h.logger.Error("risk assessment failed", zap.Error(err))
		respondServiceError(c, err, "Failed to assess risk")
		return
	}

	c.JSON(http.StatusOK, assessment)
}

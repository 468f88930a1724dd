package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/repository"
	"go.uber.org/zap"
)

// SystemHandler implements liveness and readiness endpoints
type SystemHandler struct {
	db     repository.PgConnection
	logger *zap.Logger
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db repository.PgConnection, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		db:     db,
		logger: logger,
	}
}

// Health handles GET /health and reports database connectivity
func (h *SystemHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK

	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger.Error("database ping failed", zap.Error(err))
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

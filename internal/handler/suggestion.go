package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/service"
	"go.uber.org/zap"
)

// SuggestionHandler implements smart suggestion API endpoints
type SuggestionHandler struct {
	suggestions *service.SuggestionService
	logger      *zap.Logger
}

// NewSuggestionHandler creates a new SuggestionHandler
func NewSuggestionHandler(suggestions *service.SuggestionService, logger *zap.Logger) *SuggestionHandler {
	return &SuggestionHandler{
		suggestions: suggestions,
		logger:      logger,
	}
}

// GenerateSuggestions handles POST /api/v1/suggestions/generate?user_id=
func (h *SuggestionHandler) GenerateSuggestions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondValidationError(c, errMissingUserID)
		return
	}

	batch, err := h.suggestions.GenerateSmartSuggestions(c.Request.Context(), userID)
	if err != nil && batch == nil {
		h.logger.Error("failed to generate suggestions",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		respondServiceError(c, err, "Failed to generate suggestions")
		return
	}
	if err != nil {
		// Persistence failed but the batch was computed; serve it anyway
		h.logger.Error("suggestion persistence failed",
			zap.Error(err),
			zap.String("user_id", userID),
		)
	}

	c.JSON(http.StatusOK, batch)
}

// ListPendingSuggestions handles GET /api/v1/suggestions?user_id=
func (h *SuggestionHandler) ListPendingSuggestions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondValidationError(c, errMissingUserID)
		return
	}

	suggestions, err := h.suggestions.ListPendingSuggestions(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list suggestions",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		respondServiceError(c, err, "Failed to list suggestions")
		return
	}

	c.JSON(http.StatusOK, suggestions)
}

type suggestionActionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AcceptSuggestion handles POST /api/v1/suggestions/:id/accept
func (h *SuggestionHandler) AcceptSuggestion(c *gin.Context) {
	h.transition(c, h.suggestions.AcceptSuggestion, "accept")
}

// DismissSuggestion handles POST /api/v1/suggestions/:id/dismiss
func (h *SuggestionHandler) DismissSuggestion(c *gin.Context) {
	h.transition(c, h.suggestions.DismissSuggestion, "dismiss")
}

func (h *SuggestionHandler) transition(c *gin.Context, fn func(ctx context.Context, userID, suggestionID string) error, action string) {
	suggestionID := c.Param("id")

	var req suggestionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		respondValidationError(c, err)
		return
	}

	if err := fn(c.Request.Context(), req.UserID, suggestionID); err != nil {
		h.logger.Error("failed to update suggestion",
			zap.Error(err),
			zap.String("suggestion_id", suggestionID),
			zap.String("action", action),
		)
		respondServiceError(c, err, "Failed to update suggestion")
		return
	}

	c.Status(http.StatusNoContent)
}

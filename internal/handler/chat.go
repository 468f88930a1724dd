package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/service"
	"go.uber.org/zap"
)

// ChatHandler implements AI assistant API endpoints
type ChatHandler struct {
	chat   *service.ChatService
	logger *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chat *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

type chatRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// SendMessage handles POST /api/v1/chat
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		respondValidationError(c, err)
		return
	}

	reply, err := h.chat.SendMessage(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		h.logger.Error("failed to send chat message",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		respondServiceError(c, err, "Failed to get assistant reply")
		return
	}

	c.JSON(http.StatusOK, reply)
}

// GetHistory handles GET /api/v1/chat?user_id=
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondValidationError(c, errMissingUserID)
		return
	}

	history, err := h.chat.GetHistory(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get chat history",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		respondServiceError(c, err, "Failed to get chat history")
		return
	}

	c.JSON(http.StatusOK, history)
}

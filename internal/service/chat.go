package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lunara-health/backend/internal/ai"
	"github.com/lunara-health/backend/pkg/model"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

const chatHistoryLimit = 20

const chatSystemPrompt = `You are a supportive health assistant for a pregnancy tracking app.
Answer questions about medication schedules, general pregnancy wellness and app usage.
You are not a doctor: for anything diagnostic or urgent, tell the user to contact their care provider.
Keep answers short and warm.`

// ChatStore is the chat message persistence contract
type ChatStore interface {
	Save(ctx context.Context, msg *model.ChatMessage) error
	FindRecentByUserID(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error)
}

// ChatService handles the AI assistant conversation
type ChatService struct {
	messages  ChatStore
	completer ai.Completer
	logger    *zap.Logger
}

// NewChatService creates a new ChatService
func NewChatService(messages ChatStore, completer ai.Completer, logger *zap.Logger) *ChatService {
	return &ChatService{
		messages:  messages,
		completer: completer,
		logger:    logger,
	}
}

// SendMessage stores the user's message, asks the completion service for a
// reply with recent history as context, stores the reply and returns it
func (s *ChatService) SendMessage(ctx context.Context, userID, content string) (*model.ChatMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}

	history, err := s.messages.FindRecentByUserID(ctx, userID, chatHistoryLimit)
	if err != nil {
		s.logger.Warn("failed to load chat history, continuing without context",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		history = nil
	}

	userMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      model.ChatRoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Save(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	prompt := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	prompt = append(prompt, openai.SystemMessage(chatSystemPrompt))
	for _, msg := range history {
		switch msg.Role {
		case model.ChatRoleAssistant:
			prompt = append(prompt, openai.AssistantMessage(msg.Content))
		default:
			prompt = append(prompt, openai.UserMessage(msg.Content))
		}
	}
	prompt = append(prompt, openai.UserMessage(content))

	reply, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to get assistant reply: %w", err)
	}

	assistantMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		UserID:    userID,
		Role:      model.ChatRoleAssistant,
		Content:   reply,
		CreatedAt: time.Now(),
	}
	if err := s.messages.Save(ctx, assistantMsg); err != nil {
		s.logger.Error("failed to save assistant reply",
			zap.Error(err),
			zap.String("user_id", userID),
		)
	}

	return assistantMsg, nil
}

// GetHistory returns the user's recent chat history, oldest first
func (s *ChatService) GetHistory(ctx context.Context, userID string) ([]model.ChatMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return s.messages.FindRecentByUserID(ctx, userID, chatHistoryLimit)
}

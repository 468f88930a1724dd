package repository

import (
	"context"
	"fmt"

	"github.com/lunara-health/backend/internal/security"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// ChatRepository persists assistant conversation messages. Message content
// is encrypted at rest.
type ChatRepository struct {
	db        PgConnection
	encryptor *security.Encryptor
	logger    *zap.Logger
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db PgConnection, encryptor *security.Encryptor, logger *zap.Logger) *ChatRepository {
	return &ChatRepository{
		db:        db,
		encryptor: encryptor,
		logger:    logger,
	}
}

// Save stores one chat message
func (r *ChatRepository) Save(ctx context.Context, msg *model.ChatMessage) error {
	encrypted, err := r.encryptor.Encrypt(msg.Content)
	if err != nil {
		return fmt.Errorf("failed to encrypt chat message: %w", err)
	}

	query := `
		INSERT INTO chat_messages (id, user_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.Exec(ctx, query,
		msg.ID,
		msg.UserID,
		msg.Role,
		encrypted,
		msg.CreatedAt,
	)

	if err != nil {
		r.logger.Error("failed to save chat message",
			zap.Error(err),
			zap.String("user_id", msg.UserID),
		)
		return fmt.Errorf("failed to save chat message: %w", err)
	}

	return nil
}

// FindRecentByUserID retrieves the most recent messages for a user in
// chronological order
func (r *ChatRepository) FindRecentByUserID(ctx context.Context, userID string, limit int) ([]model.ChatMessage, error) {
	query := `
		SELECT id, user_id, role, content, created_at
		FROM (
			SELECT id, user_id, role, content, created_at
			FROM chat_messages
			WHERE user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("failed to find chat messages", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to find chat messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var msg model.ChatMessage
		err := rows.Scan(
			&msg.ID,
			&msg.UserID,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan chat message", zap.Error(err))
			continue
		}

		decrypted, err := r.encryptor.Decrypt(msg.Content)
		if err != nil {
			r.logger.Error("failed to decrypt chat message", zap.Error(err), zap.String("message_id", msg.ID))
			continue
		}
		msg.Content = decrypted

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating chat messages", zap.Error(err))
		return nil, fmt.Errorf("error iterating chat messages: %w", err)
	}

	return messages, nil
}

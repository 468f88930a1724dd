package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lunara-health/backend/internal/errvalues"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// SuggestionRepository persists smart suggestions and their lifecycle state
type SuggestionRepository struct {
	db     PgConnection
	logger *zap.Logger
}

// NewSuggestionRepository creates a new SuggestionRepository
func NewSuggestionRepository(db PgConnection, logger *zap.Logger) *SuggestionRepository {
	return &SuggestionRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a freshly generated suggestion. Inserts are append-only;
// successive generation runs may legitimately store near-duplicates under
// new IDs.
func (r *SuggestionRepository) Insert(ctx context.Context, s *model.SmartSuggestion) error {
	query := `
		INSERT INTO smart_suggestions (
			id, user_id, medication_id, type, title, description,
			reasoning, action, priority, estimated_improvement,
			status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.MedicationID,
		s.Type,
		s.Title,
		s.Description,
		s.Reasoning,
		s.Action,
		s.Priority,
		s.EstimatedImprovement,
		s.Status,
		s.CreatedAt,
	)

	if err != nil {
		r.logger.Error("failed to insert suggestion",
			zap.Error(err),
			zap.String("suggestion_id", s.ID),
			zap.String("medication_id", s.MedicationID),
		)
		return fmt.Errorf("failed to insert suggestion: %w", err)
	}

	return nil
}

// FindPendingByUserID retrieves pending suggestions for a user, highest
// priority first
func (r *SuggestionRepository) FindPendingByUserID(ctx context.Context, userID string) ([]model.SmartSuggestion, error) {
	query := `
		SELECT
			id, user_id, medication_id, type, title, description,
			reasoning, action, priority, estimated_improvement,
			status, created_at
		FROM smart_suggestions
		WHERE user_id = $1 AND status = $2
		ORDER BY
			CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
			estimated_improvement DESC,
			created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID, model.SuggestionStatusPending)
	if err != nil {
		r.logger.Error("failed to find pending suggestions", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to find pending suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []model.SmartSuggestion
	for rows.Next() {
		var s model.SmartSuggestion
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.MedicationID,
			&s.Type,
			&s.Title,
			&s.Description,
			&s.Reasoning,
			&s.Action,
			&s.Priority,
			&s.EstimatedImprovement,
			&s.Status,
			&s.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan suggestion", zap.Error(err))
			continue
		}
		suggestions = append(suggestions, s)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating suggestions", zap.Error(err))
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return suggestions, nil
}

// UpdateStatus transitions a pending suggestion to accepted or dismissed.
// The pending guard in the WHERE clause makes the transition terminal.
func (r *SuggestionRepository) UpdateStatus(ctx context.Context, suggestionID string, status model.SuggestionStatus) error {
	query := `
		UPDATE smart_suggestions
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.Exec(ctx, query, status, suggestionID, model.SuggestionStatusPending)
	if err != nil {
		r.logger.Error("failed to update suggestion status",
			zap.Error(err),
			zap.String("suggestion_id", suggestionID),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Either the row is gone or it already left pending
		exists, err := r.exists(ctx, suggestionID)
		if err != nil {
			return err
		}
		if !exists {
			return errvalues.ErrSuggestionNotFound
		}
		return errvalues.ErrSuggestionNotPending
	}

	return nil
}

func (r *SuggestionRepository) exists(ctx context.Context, suggestionID string) (bool, error) {
	var id string
	err := r.db.QueryRow(ctx, `SELECT id FROM smart_suggestions WHERE id = $1`, suggestionID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up suggestion: %w", err)
	}
	return true, nil
}

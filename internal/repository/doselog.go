package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// DoseLogRepository manages scheduled-dose records
type DoseLogRepository struct {
	db     PgConnection
	logger *zap.Logger
}

// NewDoseLogRepository creates a new DoseLogRepository
func NewDoseLogRepository(db PgConnection, logger *zap.Logger) *DoseLogRepository {
	return &DoseLogRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts one scheduled dose
func (r *DoseLogRepository) Create(ctx context.Context, log *model.DoseLog) error {
	query := `
		INSERT INTO dose_logs (id, medication_id, scheduled_time, taken_time, taken, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		log.ID,
		log.MedicationID,
		log.ScheduledTime,
		log.TakenTime,
		log.Taken,
		log.Status,
	)

	if err != nil {
		r.logger.Error("failed to create dose log",
			zap.Error(err),
			zap.String("medication_id", log.MedicationID),
		)
		return fmt.Errorf("failed to create dose log: %w", err)
	}

	return nil
}

// FindByMedicationSince retrieves dose logs for a medication scheduled at or
// after the given timestamp, ascending by scheduled_time
func (r *DoseLogRepository) FindByMedicationSince(ctx context.Context, medicationID string, since time.Time) ([]model.DoseLog, error) {
	query := `
		SELECT id, medication_id, scheduled_time, taken_time, taken, status, created_at
		FROM dose_logs
		WHERE medication_id = $1 AND scheduled_time >= $2
		ORDER BY scheduled_time ASC
	`

	rows, err := r.db.Query(ctx, query, medicationID, since)
	if err != nil {
		r.logger.Error("failed to find dose logs", zap.Error(err), zap.String("medication_id", medicationID))
		return nil, fmt.Errorf("failed to find dose logs: %w", err)
	}
	defer rows.Close()

	var logs []model.DoseLog
	for rows.Next() {
		var log model.DoseLog
		err := rows.Scan(
			&log.ID,
			&log.MedicationID,
			&log.ScheduledTime,
			&log.TakenTime,
			&log.Taken,
			&log.Status,
			&log.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan dose log", zap.Error(err))
			continue
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating dose logs", zap.Error(err))
		return nil, fmt.Errorf("error iterating dose logs: %w", err)
	}

	return logs, nil
}

// ExistsForDay reports whether any dose is already instantiated for the
// medication on the given calendar day
func (r *DoseLogRepository) ExistsForDay(ctx context.Context, medicationID string, dayStart, dayEnd time.Time) (bool, error) {
	query := `
		SELECT id FROM dose_logs
		WHERE medication_id = $1 AND scheduled_time >= $2 AND scheduled_time < $3
		LIMIT 1
	`

	var id string
	err := r.db.QueryRow(ctx, query, medicationID, dayStart, dayEnd).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check dose instantiation: %w", err)
	}

	return true, nil
}

// MarkTaken records a dose as taken. A dose is mutated at most once;
// rows that already left the scheduled state are untouched.
func (r *DoseLogRepository) MarkTaken(ctx context.Context, doseLogID string, takenTime time.Time) error {
	query := `
		UPDATE dose_logs
		SET taken_time = $1, taken = TRUE, status = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.db.Exec(ctx, query, takenTime, model.DoseStatusTaken, doseLogID, model.DoseStatusScheduled)
	if err != nil {
		r.logger.Error("failed to mark dose taken",
			zap.Error(err),
			zap.String("dose_log_id", doseLogID),
		)
		return fmt.Errorf("failed to mark dose taken: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("dose log not found or already resolved: %s", doseLogID)
	}

	return nil
}

// MarkOverdueMissed flips scheduled doses older than the cutoff to missed.
// Returns the number of doses swept.
func (r *DoseLogRepository) MarkOverdueMissed(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE dose_logs
		SET status = $1
		WHERE status = $2 AND scheduled_time < $3
	`

	result, err := r.db.Exec(ctx, query, model.DoseStatusMissed, model.DoseStatusScheduled, cutoff)
	if err != nil {
		r.logger.Error("failed to sweep overdue doses", zap.Error(err))
		return 0, fmt.Errorf("failed to sweep overdue doses: %w", err)
	}

	return result.RowsAffected(), nil
}

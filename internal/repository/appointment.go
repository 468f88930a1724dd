package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lunara-health/backend/internal/errvalues"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// AppointmentRepository manages appointment records
type AppointmentRepository struct {
	db     PgConnection
	logger *zap.Logger
}

// NewAppointmentRepository creates a new AppointmentRepository
func NewAppointmentRepository(db PgConnection, logger *zap.Logger) *AppointmentRepository {
	return &AppointmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new appointment record
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, user_id, title, provider, location, notes, starts_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`

	_, err := r.db.Exec(ctx, query,
		appt.ID,
		appt.UserID,
		appt.Title,
		appt.Provider,
		appt.Location,
		appt.Notes,
		appt.StartsAt,
	)

	if err != nil {
		r.logger.Error("failed to create appointment",
			zap.Error(err),
			zap.String("appointment_id", appt.ID),
			zap.String("user_id", appt.UserID),
		)
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// FindByUserID retrieves all appointments for a user, soonest first
func (r *AppointmentRepository) FindByUserID(ctx context.Context, userID string) ([]model.Appointment, error) {
	query := `
		SELECT id, user_id, title, provider, location, notes, starts_at, created_at, updated_at
		FROM appointments
		WHERE user_id = $1
		ORDER BY starts_at ASC
	`

	return r.queryAppointments(ctx, query, userID)
}

// FindUpcomingByUserID retrieves appointments starting at or after now
func (r *AppointmentRepository) FindUpcomingByUserID(ctx context.Context, userID string, now time.Time) ([]model.Appointment, error) {
	query := `
		SELECT id, user_id, title, provider, location, notes, starts_at, created_at, updated_at
		FROM appointments
		WHERE user_id = $1 AND starts_at >= $2
		ORDER BY starts_at ASC
	`

	return r.queryAppointments(ctx, query, userID, now)
}

func (r *AppointmentRepository) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to find appointments", zap.Error(err))
		return nil, fmt.Errorf("failed to find appointments: %w", err)
	}
	defer rows.Close()

	var appointments []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		err := rows.Scan(
			&appt.ID,
			&appt.UserID,
			&appt.Title,
			&appt.Provider,
			&appt.Location,
			&appt.Notes,
			&appt.StartsAt,
			&appt.CreatedAt,
			&appt.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan appointment", zap.Error(err))
			continue
		}
		appointments = append(appointments, appt)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating appointments", zap.Error(err))
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}

	return appointments, nil
}

// FindByID retrieves an appointment by ID
func (r *AppointmentRepository) FindByID(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	query := `
		SELECT id, user_id, title, provider, location, notes, starts_at, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`

	var appt model.Appointment
	err := r.db.QueryRow(ctx, query, appointmentID).Scan(
		&appt.ID,
		&appt.UserID,
		&appt.Title,
		&appt.Provider,
		&appt.Location,
		&appt.Notes,
		&appt.StartsAt,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errvalues.ErrAppointmentNotFound
		}
		r.logger.Error("failed to find appointment", zap.Error(err), zap.String("appointment_id", appointmentID))
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}

	return &appt, nil
}

// Update updates an existing appointment record
func (r *AppointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	query := `
		UPDATE appointments
		SET title = $1, provider = $2, location = $3, notes = $4,
		    starts_at = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.db.Exec(ctx, query,
		appt.Title,
		appt.Provider,
		appt.Location,
		appt.Notes,
		appt.StartsAt,
		appt.ID,
	)

	if err != nil {
		r.logger.Error("failed to update appointment",
			zap.Error(err),
			zap.String("appointment_id", appt.ID),
		)
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return errvalues.ErrAppointmentNotFound
	}

	return nil
}

// Delete deletes an appointment record
func (r *AppointmentRepository) Delete(ctx context.Context, appointmentID string) error {
	query := `DELETE FROM appointments WHERE id = $1`

	result, err := r.db.Exec(ctx, query, appointmentID)
	if err != nil {
		r.logger.Error("failed to delete appointment",
			zap.Error(err),
			zap.String("appointment_id", appointmentID),
		)
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return errvalues.ErrAppointmentNotFound
	}

	return nil
}

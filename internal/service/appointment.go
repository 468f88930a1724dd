package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lunara-health/backend/internal/audit"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// AppointmentStore is the appointment persistence contract
type AppointmentStore interface {
	Create(ctx context.Context, appt *model.Appointment) error
	FindByUserID(ctx context.Context, userID string) ([]model.Appointment, error)
	FindUpcomingByUserID(ctx context.Context, userID string, now time.Time) ([]model.Appointment, error)
	FindByID(ctx context.Context, appointmentID string) (*model.Appointment, error)
	Update(ctx context.Context, appt *model.Appointment) error
	Delete(ctx context.Context, appointmentID string) error
}

// AppointmentService manages medical appointments
type AppointmentService struct {
	appointments AppointmentStore
	auditor      AuditSink
	logger       *zap.Logger
}

// NewAppointmentService creates a new AppointmentService
func NewAppointmentService(appointments AppointmentStore, auditor AuditSink, logger *zap.Logger) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		auditor:      auditor,
		logger:       logger,
	}
}

// CreateAppointment validates and stores a new appointment
func (s *AppointmentService) CreateAppointment(ctx context.Context, appt *model.Appointment) error {
	if err := validateAppointment(appt); err != nil {
		return err
	}

	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if err := s.appointments.Create(ctx, appt); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Entry{
			UserID:        appt.UserID,
			OperationType: audit.OperationCreate,
			ResourceType:  audit.ResourceAppointment,
			ResourceID:    appt.ID,
		})
	}

	return nil
}

// ListAppointments returns all appointments of the user
func (s *AppointmentService) ListAppointments(ctx context.Context, userID string) ([]model.Appointment, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return s.appointments.FindByUserID(ctx, userID)
}

// ListUpcomingAppointments returns future appointments of the user
func (s *AppointmentService) ListUpcomingAppointments(ctx context.Context, userID string) ([]model.Appointment, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return s.appointments.FindUpcomingByUserID(ctx, userID, time.Now())
}

// UpdateAppointment validates and stores changes to an existing appointment
func (s *AppointmentService) UpdateAppointment(ctx context.Context, appt *model.Appointment) error {
	if appt.ID == "" {
		return fmt.Errorf("appointment ID is required")
	}
	if err := validateAppointment(appt); err != nil {
		return err
	}

	appt.UpdatedAt = time.Now()
	if err := s.appointments.Update(ctx, appt); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Entry{
			UserID:        appt.UserID,
			OperationType: audit.OperationUpdate,
			ResourceType:  audit.ResourceAppointment,
			ResourceID:    appt.ID,
		})
	}

	return nil
}

// DeleteAppointment removes an appointment
func (s *AppointmentService) DeleteAppointment(ctx context.Context, userID, appointmentID string) error {
	if appointmentID == "" {
		return fmt.Errorf("appointment ID is required")
	}

	if err := s.appointments.Delete(ctx, appointmentID); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Entry{
			UserID:        userID,
			OperationType: audit.OperationDelete,
			ResourceType:  audit.ResourceAppointment,
			ResourceID:    appointmentID,
		})
	}

	return nil
}

func validateAppointment(appt *model.Appointment) error {
	if appt.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if appt.Title == "" {
		return fmt.Errorf("appointment title is required")
	}
	if appt.StartsAt.IsZero() {
		return fmt.Errorf("appointment time is required")
	}
	return nil
}

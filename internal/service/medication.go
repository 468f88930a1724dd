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

// MedicationStore is the full medication persistence contract
type MedicationStore interface {
	MedicationSource
	Create(ctx context.Context, med *model.Medication) error
	FindByUserID(ctx context.Context, userID string) ([]model.Medication, error)
	Update(ctx context.Context, med *model.Medication) error
	Delete(ctx context.Context, medicationID string) error
}

// DoseLogStore is the full dose log persistence contract
type DoseLogStore interface {
	DoseLogSource
	Create(ctx context.Context, log *model.DoseLog) error
	ExistsForDay(ctx context.Context, medicationID string, dayStart, dayEnd time.Time) (bool, error)
	MarkTaken(ctx context.Context, doseLogID string, takenTime time.Time) error
	MarkOverdueMissed(ctx context.Context, cutoff time.Time) (int64, error)
}

// MedicationService manages medications and their scheduled doses
type MedicationService struct {
	meds    MedicationStore
	doses   DoseLogStore
	auditor AuditSink
	logger  *zap.Logger
}

// NewMedicationService creates a new MedicationService
func NewMedicationService(meds MedicationStore, doses DoseLogStore, auditor AuditSink, logger *zap.Logger) *MedicationService {
	return &MedicationService{
		meds:    meds,
		doses:   doses,
		auditor: auditor,
		logger:  logger,
	}
}

// CreateMedication validates and stores a new medication, then instantiates
// today's dose schedule so logging can start immediately
func (s *MedicationService) CreateMedication(ctx context.Context, med *model.Medication) error {
	if err := validateMedication(med); err != nil {
		return err
	}

	if med.ID == "" {
		med.ID = uuid.New().String()
	}
	now := time.Now()
	med.CreatedAt = now
	med.UpdatedAt = now
	med.Active = true

	if err := s.meds.Create(ctx, med); err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}

	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Entry{
			UserID:        med.UserID,
			OperationType: audit.OperationCreate,
			ResourceType:  audit.ResourceMedication,
			ResourceID:    med.ID,
		})
	}

	if err := s.instantiateDay(ctx, med, now); err != nil {
		s.logger.Warn("failed to instantiate dose schedule for new medication",
			zap.Error(err),
			zap.String("medication_id", med.ID),
		)
	}

	return nil
}

// ListMedications returns all medications of the user
func (s *MedicationService) ListMedications(ctx context.Context, userID string) ([]model.Medication, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return s.meds.FindByUserID(ctx, userID)
}

// GetMedication returns one medication by ID
func (s *MedicationService) GetMedication(ctx context.Context, medicationID string) (*model.Medication, error) {
	if medicationID == "" {
		return nil, fmt.Errorf("medication ID is required")
	}
	return s.meds.FindByID(ctx, medicationID)
}

// UpdateMedication validates and stores changes to an existing medication
func (s *MedicationService) UpdateMedication(ctx context.Context, med *model.Medication) error {
	if med.ID == "" {
		return fmt.Errorf("medication ID is required")
	}
	if err := validateMedication(med); err != nil {
		return err
	}

	med.UpdatedAt = time.Now()
	if err := s.meds.Update(ctx, med); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Entry{
			UserID:        med.UserID,
			OperationType: audit.OperationUpdate,
			ResourceType:  audit.ResourceMedication,
			ResourceID:    med.ID,
		})
	}

	return nil
}

// DeleteMedication removes a medication and, through the schema's cascade,
// its dose history
func (s *MedicationService) DeleteMedication(ctx context.Context, userID, medicationID string) error {
	if medicationID == "" {
		return fmt.Errorf("medication ID is required")
	}

	if err := s.meds.Delete(ctx, medicationID); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Entry{
			UserID:        userID,
			OperationType: audit.OperationDelete,
			ResourceType:  audit.ResourceMedication,
			ResourceID:    medicationID,
		})
	}

	return nil
}

// LogDoseTaken marks a scheduled dose as taken at the given time
func (s *MedicationService) LogDoseTaken(ctx context.Context, userID, doseLogID string, takenTime time.Time) error {
	if doseLogID == "" {
		return fmt.Errorf("dose log ID is required")
	}
	if takenTime.IsZero() {
		takenTime = time.Now()
	}

	if err := s.doses.MarkTaken(ctx, doseLogID, takenTime); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Entry{
			UserID:        userID,
			OperationType: audit.OperationUpdate,
			ResourceType:  audit.ResourceDoseLog,
			ResourceID:    doseLogID,
		})
	}

	return nil
}

// GetDoseHistory returns the medication's dose logs over the trailing window
func (s *MedicationService) GetDoseHistory(ctx context.Context, medicationID string, windowDays int) ([]model.DoseLog, error) {
	if medicationID == "" {
		return nil, fmt.Errorf("medication ID is required")
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	if _, err := s.meds.FindByID(ctx, medicationID); err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -windowDays)
	return s.doses.FindByMedicationSince(ctx, medicationID, since)
}

// InstantiateDailySchedules creates today's scheduled dose logs for every
// active medication of the user. Idempotent per medication per day.
func (s *MedicationService) InstantiateDailySchedules(ctx context.Context, userID string, day time.Time) error {
	medications, err := s.meds.FindActiveByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list medications: %w", err)
	}

	for _, med := range medications {
		if err := s.instantiateDay(ctx, &med, day); err != nil {
			s.logger.Warn("failed to instantiate dose schedule",
				zap.Error(err),
				zap.String("medication_id", med.ID),
			)
		}
	}

	return nil
}

// instantiateDay creates one scheduled DoseLog per configured dose time for
// the given day, unless logs for that day already exist
func (s *MedicationService) instantiateDay(ctx context.Context, med *model.Medication, day time.Time) error {
	if !med.Active || len(med.Times) == 0 {
		return nil
	}
	if day.Before(med.StartDate) && !sameDay(day, med.StartDate) {
		return nil
	}
	if med.EndDate != nil && day.After(*med.EndDate) {
		return nil
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	exists, err := s.doses.ExistsForDay(ctx, med.ID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("failed to check existing schedule: %w", err)
	}
	if exists {
		return nil
	}

	for _, t := range med.Times {
		var hour, minute int
		if _, err := fmt.Sscanf(t, "%d:%d", &hour, &minute); err != nil {
			s.logger.Warn("skipping malformed dose time",
				zap.String("medication_id", med.ID),
				zap.String("time", t),
			)
			continue
		}

		log := &model.DoseLog{
			ID:            uuid.New().String(),
			MedicationID:  med.ID,
			ScheduledTime: dayStart.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute),
			Status:        model.DoseStatusScheduled,
			CreatedAt:     time.Now(),
		}
		if err := s.doses.Create(ctx, log); err != nil {
			return fmt.Errorf("failed to create dose log: %w", err)
		}
	}

	s.logger.Debug("dose schedule instantiated",
		zap.String("medication_id", med.ID),
		zap.Int("dose_count", len(med.Times)),
	)

	return nil
}

// MarkOverdueDosesMissed flags scheduled doses older than the grace period
// as missed. Called periodically by the background sweep.
func (s *MedicationService) MarkOverdueDosesMissed(ctx context.Context, grace time.Duration) (int64, error) {
	cutoff := time.Now().Add(-grace)

	marked, err := s.doses.MarkOverdueMissed(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue doses: %w", err)
	}

	if marked > 0 {
		s.logger.Info("overdue doses marked missed",
			zap.Int64("count", marked),
			zap.Time("cutoff", cutoff),
		)
	}

	return marked, nil
}

func validateMedication(med *model.Medication) error {
	if med.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if med.Name == "" {
		return fmt.Errorf("medication name is required")
	}
	if med.Dosage == "" {
		return fmt.Errorf("dosage is required")
	}
	if med.StartDate.IsZero() {
		return fmt.Errorf("start date is required")
	}
	for _, t := range med.Times {
		var hour, minute int
		if _, err := fmt.Sscanf(t, "%d:%d", &hour, &minute); err != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return fmt.Errorf("invalid dose time %q, expected HH:MM", t)
		}
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lunara-health/backend/internal/errvalues"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// MedicationAdherenceSummary is one medication's line on the dashboard
type MedicationAdherenceSummary struct {
	MedicationID   string  `json:"medication_id"`
	MedicationName string  `json:"medication_name"`
	AdherenceRate  float64 `json:"adherence_rate"`
	StreakDays     int     `json:"streak_days"`
}

// Dashboard aggregates the user's current state for the home screen
type Dashboard struct {
	OverallAdherenceRate float64                      `json:"overall_adherence_rate"`
	Medications          []MedicationAdherenceSummary `json:"medications"`
	PendingSuggestions   int                          `json:"pending_suggestions"`
	UpcomingAppointments []model.Appointment          `json:"upcoming_appointments"`
	GeneratedAt          time.Time                    `json:"generated_at"`
}

// DashboardService assembles the dashboard from the other services' stores
type DashboardService struct {
	meds         MedicationSource
	analyzer     PatternAnalyzer
	suggestions  SuggestionStore
	appointments AppointmentStore
	windowDays   int
	logger       *zap.Logger
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(
	meds MedicationSource,
	analyzer PatternAnalyzer,
	suggestions SuggestionStore,
	appointments AppointmentStore,
	windowDays int,
	logger *zap.Logger,
) *DashboardService {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &DashboardService{
		meds:         meds,
		analyzer:     analyzer,
		suggestions:  suggestions,
		appointments: appointments,
		windowDays:   windowDays,
		logger:       logger,
	}
}

// GetDashboard builds the dashboard for the user. Sections degrade
// independently: a failing section logs and renders empty instead of
// failing the whole screen.
func (s *DashboardService) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	dashboard := &Dashboard{
		Medications:          []MedicationAdherenceSummary{},
		UpcomingAppointments: []model.Appointment{},
		GeneratedAt:          time.Now(),
	}

	medications, err := s.meds.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	var sum float64
	var analyzed int
	for _, med := range medications {
		pattern, err := s.analyzer.AnalyzeMedicationPatterns(ctx, med.ID, s.windowDays)
		if err != nil {
			if !errors.Is(err, errvalues.ErrEmptyHistory) {
				s.logger.Warn("skipping medication on dashboard after analysis failure",
					zap.Error(err),
					zap.String("medication_id", med.ID),
				)
			}
			continue
		}

		dashboard.Medications = append(dashboard.Medications, MedicationAdherenceSummary{
			MedicationID:   pattern.MedicationID,
			MedicationName: pattern.MedicationName,
			AdherenceRate:  pattern.AdherenceRate,
			StreakDays:     pattern.StreakDays,
		})
		sum += pattern.AdherenceRate
		analyzed++
	}
	if analyzed > 0 {
		dashboard.OverallAdherenceRate = sum / float64(analyzed)
	}

	pending, err := s.suggestions.FindPendingByUserID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to count pending suggestions", zap.Error(err), zap.String("user_id", userID))
	} else {
		dashboard.PendingSuggestions = len(pending)
	}

	upcoming, err := s.appointments.FindUpcomingByUserID(ctx, userID, time.Now())
	if err != nil {
		s.logger.Warn("failed to load upcoming appointments", zap.Error(err), zap.String("user_id", userID))
	} else {
		dashboard.UpcomingAppointments = upcoming
	}

	return dashboard, nil
}

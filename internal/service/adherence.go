package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lunara-health/backend/internal/errvalues"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// Canonical bucket orders. "Most missed" ties are broken by taking the
// first bucket in this order, so the result is deterministic regardless
// of map iteration.
var (
	timeSlotOrder  = []string{"morning", "afternoon", "evening"}
	dayOfWeekOrder = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
)

// MedicationSource is the medication lookup contract used by analytics
type MedicationSource interface {
	FindByID(ctx context.Context, medicationID string) (*model.Medication, error)
	FindActiveByUserID(ctx context.Context, userID string) ([]model.Medication, error)
}

// DoseLogSource is the dose history contract used by analytics
type DoseLogSource interface {
	FindByMedicationSince(ctx context.Context, medicationID string, since time.Time) ([]model.DoseLog, error)
}

// AdherenceService computes adherence patterns from dose history.
// Patterns are pure functions of their input logs; nothing is persisted.
type AdherenceService struct {
	meds       MedicationSource
	doses      DoseLogSource
	windowDays int
	logger     *zap.Logger
}

// NewAdherenceService creates a new AdherenceService
func NewAdherenceService(meds MedicationSource, doses DoseLogSource, windowDays int, logger *zap.Logger) *AdherenceService {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &AdherenceService{
		meds:       meds,
		doses:      doses,
		windowDays: windowDays,
		logger:     logger,
	}
}

// AnalyzeMedicationPatterns computes the adherence pattern for one
// medication over the trailing window. Returns ErrMedicationNotFound if
// the medication does not exist and ErrEmptyHistory if no dose logs fall
// inside the window.
func (s *AdherenceService) AnalyzeMedicationPatterns(ctx context.Context, medicationID string, windowDays int) (*model.AdherencePattern, error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}

	med, err := s.meds.FindByID(ctx, medicationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	since := now.AddDate(0, 0, -windowDays)

	logs, err := s.doses.FindByMedicationSince(ctx, medicationID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dose history: %w", err)
	}

	if len(logs) == 0 {
		return nil, errvalues.ErrEmptyHistory
	}

	pattern := buildAdherencePattern(med.ID, med.Name, logs, now)

	s.logger.Info("adherence pattern computed",
		zap.String("medication_id", med.ID),
		zap.Int("total_doses", pattern.TotalDoses),
		zap.Float64("adherence_rate", pattern.AdherenceRate),
		zap.Int("streak_days", pattern.StreakDays),
	)

	return pattern, nil
}

// buildAdherencePattern aggregates a non-empty, scheduled-time-ascending
// log set into an AdherencePattern. Pure; now anchors the streak walk.
func buildAdherencePattern(medicationID, medicationName string, logs []model.DoseLog, now time.Time) *model.AdherencePattern {
	total := len(logs)
	taken := 0

	var delaySum float64
	delayCount := 0

	var lastTaken *time.Time

	slotScheduled := make(map[string]int)
	slotTaken := make(map[string]int)
	dayScheduled := make(map[string]int)
	dayTaken := make(map[string]int)

	weekdayScheduled, weekdayTaken := 0, 0
	weekendScheduled, weekendTaken := 0, 0

	for _, log := range logs {
		slot := timeSlotOf(log.ScheduledTime)
		day := dayOfWeekOrder[int(log.ScheduledTime.Weekday())]
		weekend := isWeekend(log.ScheduledTime)

		slotScheduled[slot]++
		dayScheduled[day]++
		if weekend {
			weekendScheduled++
		} else {
			weekdayScheduled++
		}

		if log.Taken {
			taken++
			slotTaken[slot]++
			dayTaken[day]++
			if weekend {
				weekendTaken++
			} else {
				weekdayTaken++
			}

			if log.TakenTime != nil {
				delaySum += absMinutes(log.TakenTime.Sub(log.ScheduledTime))
				delayCount++

				if lastTaken == nil || log.TakenTime.After(*lastTaken) {
					t := *log.TakenTime
					lastTaken = &t
				}
			}
		}
	}

	pattern := &model.AdherencePattern{
		MedicationID:   medicationID,
		MedicationName: medicationName,
		TotalDoses:     total,
		TakenDoses:     taken,
		AdherenceRate:  rate(taken, total),
		StreakDays:     streakDays(logs, now),
		LastTakenDate:  lastTaken,
		Patterns: model.PatternBreakdown{
			TimeSlotCompliance:  bucketCompliance(timeSlotOrder, slotTaken, slotScheduled),
			DayOfWeekCompliance: bucketCompliance(dayOfWeekOrder, dayTaken, dayScheduled),
			ContextCompliance: map[string]float64{
				"weekday": rate(weekdayTaken, weekdayScheduled),
				"weekend": rate(weekendTaken, weekendScheduled),
				// No location signal exists yet; every dose is attributed
				// to home, so this bucket mirrors the overall rate.
				"home": rate(taken, total),
				"away": 0,
			},
		},
	}

	if delayCount > 0 {
		pattern.AverageDelayMinutes = delaySum / float64(delayCount)
	}

	pattern.MostMissedTimeSlot = lowestComplianceBucket(timeSlotOrder, pattern.Patterns.TimeSlotCompliance)
	pattern.MostMissedDayOfWeek = lowestComplianceBucket(dayOfWeekOrder, pattern.Patterns.DayOfWeekCompliance)

	return pattern
}

// timeSlotOf classifies a scheduled time by local hour:
// [6,12) morning, [12,18) afternoon, everything else evening.
func timeSlotOf(t time.Time) string {
	hour := t.Hour()
	switch {
	case hour >= 6 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 18:
		return "afternoon"
	default:
		return "evening"
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// rate returns taken/total as a percentage, 0 when total is 0
func rate(taken, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(taken) / float64(total) * 100
}

func absMinutes(d time.Duration) float64 {
	m := d.Minutes()
	if m < 0 {
		return -m
	}
	return m
}

// bucketCompliance computes per-bucket compliance over a fixed bucket set.
// Empty buckets report 0, not absence.
func bucketCompliance(order []string, taken, scheduled map[string]int) map[string]float64 {
	compliance := make(map[string]float64, len(order))
	for _, bucket := range order {
		compliance[bucket] = rate(taken[bucket], scheduled[bucket])
	}
	return compliance
}

// lowestComplianceBucket returns the bucket with the lowest compliance,
// first-in-canonical-order on ties
func lowestComplianceBucket(order []string, compliance map[string]float64) string {
	lowest := order[0]
	for _, bucket := range order[1:] {
		if compliance[bucket] < compliance[lowest] {
			lowest = bucket
		}
	}
	return lowest
}

// streakDays counts consecutive logged days with at least one taken dose,
// walking distinct dose dates from the most recent backward. A day with
// zero taken doses ends the streak unless it is today, which gets grace
// for doses not logged yet.
func streakDays(logs []model.DoseLog, now time.Time) int {
	takenByDate := make(map[string]bool)
	for _, log := range logs {
		key := log.ScheduledTime.Format("2006-01-02")
		if log.Taken {
			takenByDate[key] = true
		} else if _, seen := takenByDate[key]; !seen {
			takenByDate[key] = false
		}
	}

	dates := make([]string, 0, len(takenByDate))
	for date := range takenByDate {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	today := now.Format("2006-01-02")

	streak := 0
	for _, date := range dates {
		if takenByDate[date] {
			streak++
			continue
		}
		if date == today {
			continue
		}
		break
	}

	return streak
}

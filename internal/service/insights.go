package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lunara-health/backend/internal/errvalues"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// InsightService summarizes adherence patterns into narrative insights.
// Purely deterministic, no AI involvement.
type InsightService struct {
	meds       MedicationSource
	analyzer   PatternAnalyzer
	windowDays int
	logger     *zap.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(meds MedicationSource, analyzer PatternAnalyzer, windowDays int, logger *zap.Logger) *InsightService {
	if windowDays <= 0 {
		windowDays = 30
	}
	return &InsightService{
		meds:       meds,
		analyzer:   analyzer,
		windowDays: windowDays,
		logger:     logger,
	}
}

// GetAdherenceInsights produces one overall insight from the mean adherence
// rate across analyzable medications, plus a high-priority insight for each
// medication below 70%. Medications without history are skipped; an empty
// slice means nothing was analyzable.
func (s *InsightService) GetAdherenceInsights(ctx context.Context, userID string) ([]model.AdherenceInsight, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	medications, err := s.meds.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	var patterns []*model.AdherencePattern
	for _, med := range medications {
		pattern, err := s.analyzer.AnalyzeMedicationPatterns(ctx, med.ID, s.windowDays)
		if err != nil {
			if !errors.Is(err, errvalues.ErrEmptyHistory) {
				s.logger.Warn("skipping medication after analysis failure",
					zap.Error(err),
					zap.String("medication_id", med.ID),
				)
			}
			continue
		}
		patterns = append(patterns, pattern)
	}

	if len(patterns) == 0 {
		return []model.AdherenceInsight{}, nil
	}

	insights := []model.AdherenceInsight{overallInsight(patterns)}

	for _, p := range patterns {
		if p.AdherenceRate < 70 {
			medID := p.MedicationID
			medName := p.MedicationName
			insights = append(insights, model.AdherenceInsight{
				MedicationID:   &medID,
				MedicationName: &medName,
				Title:          fmt.Sprintf("%s needs attention", p.MedicationName),
				Description: fmt.Sprintf("Adherence for %s is %.0f%% (%d of %d doses taken).",
					p.MedicationName, p.AdherenceRate, p.TakenDoses, p.TotalDoses),
				Recommendation: fmt.Sprintf("Review the schedule for %s with your care provider and consider simplifying it.", p.MedicationName),
				Priority:       model.PriorityHigh,
			})
		}
	}

	s.logger.Info("adherence insights generated",
		zap.String("user_id", userID),
		zap.Int("insight_count", len(insights)),
	)

	return insights, nil
}

func overallInsight(patterns []*model.AdherencePattern) model.AdherenceInsight {
	var sum float64
	for _, p := range patterns {
		sum += p.AdherenceRate
	}
	mean := sum / float64(len(patterns))

	switch {
	case mean >= 90:
		return model.AdherenceInsight{
			Title:          "Excellent adherence",
			Description:    fmt.Sprintf("Your overall adherence is %.0f%% across %d medications.", mean, len(patterns)),
			Recommendation: "Keep your current routine going.",
			Priority:       model.PriorityLow,
		}
	case mean >= 80:
		return model.AdherenceInsight{
			Title:          "Good adherence",
			Description:    fmt.Sprintf("Your overall adherence is %.0f%% across %d medications.", mean, len(patterns)),
			Recommendation: "A small tweak to your routine could push you above 90%.",
			Priority:       model.PriorityMedium,
		}
	default:
		return model.AdherenceInsight{
			Title:          "Adherence needs improvement",
			Description:    fmt.Sprintf("Your overall adherence is %.0f%% across %d medications.", mean, len(patterns)),
			Recommendation: "Set reminders at consistent times and log doses as soon as you take them.",
			Priority:       model.PriorityHigh,
		}
	}
}

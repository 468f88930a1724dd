package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lunara-health/backend/internal/ai"
	"github.com/lunara-health/backend/internal/audit"
	"github.com/lunara-health/backend/internal/errvalues"
	"github.com/lunara-health/backend/pkg/model"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// PatternAnalyzer is the adherence analysis contract used by the
// suggestion and insight generators
type PatternAnalyzer interface {
	AnalyzeMedicationPatterns(ctx context.Context, medicationID string, windowDays int) (*model.AdherencePattern, error)
}

// SuggestionStore is the suggestion persistence contract
type SuggestionStore interface {
	Insert(ctx context.Context, s *model.SmartSuggestion) error
	FindPendingByUserID(ctx context.Context, userID string) ([]model.SmartSuggestion, error)
	UpdateStatus(ctx context.Context, suggestionID string, status model.SuggestionStatus) error
}

// AuditSink records data mutations for the audit trail
type AuditSink interface {
	Log(ctx context.Context, entry audit.Entry)
}

// SuggestionBatch is the result of one generation run. InsufficientData
// distinguishes "no dose history yet" from an empty-but-analyzed result so
// the client can render the right empty state.
type SuggestionBatch struct {
	Suggestions      []model.SmartSuggestion `json:"suggestions"`
	InsufficientData bool                    `json:"insufficient_data"`
}

// SuggestionService turns adherence patterns into ranked, actionable
// suggestions via deterministic rules plus an optional AI pass
type SuggestionService struct {
	meds       MedicationSource
	analyzer   PatternAnalyzer
	store      SuggestionStore
	completer  ai.Completer
	auditor    AuditSink
	windowDays int
	aiTimeout  time.Duration
	logger     *zap.Logger
}

// NewSuggestionService creates a new SuggestionService
func NewSuggestionService(
	meds MedicationSource,
	analyzer PatternAnalyzer,
	store SuggestionStore,
	completer ai.Completer,
	auditor AuditSink,
	windowDays int,
	aiTimeout time.Duration,
	logger *zap.Logger,
) *SuggestionService {
	if windowDays <= 0 {
		windowDays = 30
	}
	if aiTimeout <= 0 {
		aiTimeout = 12 * time.Second
	}
	return &SuggestionService{
		meds:       meds,
		analyzer:   analyzer,
		store:      store,
		completer:  completer,
		auditor:    auditor,
		windowDays: windowDays,
		aiTimeout:  aiTimeout,
		logger:     logger,
	}
}

// GenerateSmartSuggestions computes suggestions for every active medication
// of the user. One medication failing never aborts the batch. Generated
// suggestions are persisted best-effort: a store failure is returned
// alongside the batch, never instead of it.
func (s *SuggestionService) GenerateSmartSuggestions(ctx context.Context, userID string) (*SuggestionBatch, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}

	medications, err := s.meds.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	var suggestions []model.SmartSuggestion
	analyzed := 0

	for _, med := range medications {
		pattern, err := s.analyzer.AnalyzeMedicationPatterns(ctx, med.ID, s.windowDays)
		if err != nil {
			if errors.Is(err, errvalues.ErrEmptyHistory) {
				s.logger.Debug("skipping medication with no dose history",
					zap.String("medication_id", med.ID),
				)
				continue
			}
			s.logger.Warn("skipping medication after analysis failure",
				zap.Error(err),
				zap.String("medication_id", med.ID),
			)
			continue
		}
		analyzed++

		suggestions = append(suggestions, s.ruleSuggestions(userID, pattern)...)

		if pattern.AdherenceRate < 80 {
			suggestions = append(suggestions, s.aiSuggestions(ctx, userID, pattern)...)
		}
	}

	sortSuggestions(suggestions)

	batch := &SuggestionBatch{
		Suggestions:      suggestions,
		InsufficientData: analyzed == 0,
	}

	var persistErr error
	for i := range suggestions {
		if err := s.store.Insert(ctx, &suggestions[i]); err != nil {
			s.logger.Error("failed to persist suggestion, returning it anyway",
				zap.Error(err),
				zap.String("suggestion_id", suggestions[i].ID),
			)
			if persistErr == nil {
				persistErr = fmt.Errorf("failed to persist suggestions: %w", err)
			}
		}
	}

	s.logger.Info("smart suggestions generated",
		zap.String("user_id", userID),
		zap.Int("medications_analyzed", analyzed),
		zap.Int("suggestion_count", len(suggestions)),
	)

	return batch, persistErr
}

// ruleSuggestions runs the deterministic rule pass over one pattern.
// Rules are independent; a pattern can trigger zero to five of them.
func (s *SuggestionService) ruleSuggestions(userID string, p *model.AdherencePattern) []model.SmartSuggestion {
	var out []model.SmartSuggestion

	if p.AdherenceRate < 60 {
		out = append(out, s.newSuggestion(userID, p.MedicationID, model.SuggestionEncouragement, model.PriorityHigh, 25,
			fmt.Sprintf("Let's get back on track with %s", p.MedicationName),
			fmt.Sprintf("You've taken %d of %d scheduled doses (%.0f%%) in the last %d days.", p.TakenDoses, p.TotalDoses, p.AdherenceRate, s.windowDays),
			"Adherence below 60% carries a meaningful risk of reduced effectiveness.",
			"Pick one fixed daily moment for this medication and log each dose right away.",
		))
	}

	if worst := p.Patterns.TimeSlotCompliance[p.MostMissedTimeSlot]; worst < 70 {
		out = append(out, s.newSuggestion(userID, p.MedicationID, model.SuggestionTimeOptimization, model.PriorityMedium, 15,
			fmt.Sprintf("Your %s doses slip most often", p.MostMissedTimeSlot),
			fmt.Sprintf("Compliance in the %s slot is %.0f%%, the lowest of your day.", p.MostMissedTimeSlot, worst),
			"Doses scheduled in this slot are missed more than any other.",
			fmt.Sprintf("Consider moving the %s dose of %s to a time that fits your routine better.", p.MostMissedTimeSlot, p.MedicationName),
		))
	}

	if worst := p.Patterns.DayOfWeekCompliance[p.MostMissedDayOfWeek]; worst < 70 {
		out = append(out, s.newSuggestion(userID, p.MedicationID, model.SuggestionReminderTiming, model.PriorityMedium, 10,
			fmt.Sprintf("%ss are your hardest day", capitalize(p.MostMissedDayOfWeek)),
			fmt.Sprintf("Compliance on %ss is %.0f%%, the lowest of your week.", p.MostMissedDayOfWeek, worst),
			"One weekday consistently underperforms the rest.",
			fmt.Sprintf("Set an extra reminder for %s on %ss.", p.MedicationName, p.MostMissedDayOfWeek),
		))
	}

	if p.StreakDays >= 7 {
		out = append(out, s.newSuggestion(userID, p.MedicationID, model.SuggestionEncouragement, model.PriorityLow, 0,
			fmt.Sprintf("%d-day streak with %s", p.StreakDays, p.MedicationName),
			fmt.Sprintf("You've taken at least one dose every day for %d days straight.", p.StreakDays),
			"Positive reinforcement sustains established habits.",
			"Keep it up - your routine is working.",
		))
	}

	if p.AverageDelayMinutes > 60 {
		out = append(out, s.newSuggestion(userID, p.MedicationID, model.SuggestionReminderTiming, model.PriorityMedium, 12,
			fmt.Sprintf("Doses of %s run late", p.MedicationName),
			fmt.Sprintf("On average you log doses %.0f minutes away from their scheduled time.", p.AverageDelayMinutes),
			"A consistently large gap between scheduled and actual time suggests the reminder fires at the wrong moment.",
			"Move the reminder earlier so it lands before the dose is due.",
		))
	}

	return out
}

func (s *SuggestionService) newSuggestion(userID, medicationID string, typ model.SuggestionType, priority model.SuggestionPriority, improvement int, title, description, reasoning, action string) model.SmartSuggestion {
	return model.SmartSuggestion{
		ID:                   uuid.New().String(),
		UserID:               userID,
		MedicationID:         medicationID,
		Type:                 typ,
		Title:                title,
		Description:          description,
		Reasoning:            reasoning,
		Action:               action,
		Priority:             priority,
		EstimatedImprovement: improvement,
		CreatedAt:            time.Now(),
		Status:               model.SuggestionStatusPending,
	}
}

// aiSuggestion is the shape expected from the completion service
type aiSuggestion struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	Reasoning            string `json:"reasoning"`
	Action               string `json:"action"`
	Priority             string `json:"priority"`
	EstimatedImprovement int    `json:"estimated_improvement"`
}

// aiSuggestions asks the completion service for qualitative scheduling
// suggestions. Every failure mode - timeout, service error, missing or
// malformed JSON - yields an empty result, never an error; the rule pass
// already covers the warranted cases.
func (s *SuggestionService) aiSuggestions(ctx context.Context, userID string, p *model.AdherencePattern) []model.SmartSuggestion {
	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	prompt := buildSuggestionPrompt(p)

	response, err := s.completer.Complete(aiCtx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt),
		openai.UserMessage("Return the JSON array now."),
	})
	if err != nil {
		s.logger.Warn("completion service unavailable, falling back to rule-based suggestions only",
			zap.Error(err),
			zap.String("medication_id", p.MedicationID),
		)
		return nil
	}

	parsed, err := parseSuggestionArray(response)
	if err != nil {
		s.logger.Warn("unparseable completion response, dropping AI suggestions",
			zap.Error(err),
			zap.String("medication_id", p.MedicationID),
		)
		return nil
	}

	var out []model.SmartSuggestion
	for _, item := range parsed {
		if item.Title == "" || item.Description == "" {
			s.logger.Warn("dropping AI suggestion missing required fields",
				zap.String("medication_id", p.MedicationID),
			)
			continue
		}

		improvement := item.EstimatedImprovement
		if improvement < 0 {
			improvement = 0
		}

		out = append(out, s.newSuggestion(userID, p.MedicationID, model.SuggestionDoseScheduling,
			normalizePriority(item.Priority), improvement,
			item.Title, item.Description, item.Reasoning, item.Action,
		))
	}

	return out
}

// buildSuggestionPrompt embeds the pattern statistics into the prompt
func buildSuggestionPrompt(p *model.AdherencePattern) string {
	return fmt.Sprintf(`You are a medication adherence coach for a pregnancy health app.

Medication: %s
Adherence rate: %.1f%% (%d of %d scheduled doses taken)
Average delay: %.0f minutes
Most missed time slot: %s
Most missed day of week: %s
Current streak: %d days

Suggest up to 3 schedule adjustments that could improve adherence.
Return ONLY a JSON array, each element shaped as:
[{"title": "...", "description": "...", "reasoning": "...", "action": "...", "priority": "low/medium/high", "estimated_improvement": 0-100}]`,
		p.MedicationName,
		p.AdherenceRate, p.TakenDoses, p.TotalDoses,
		p.AverageDelayMinutes,
		p.MostMissedTimeSlot,
		p.MostMissedDayOfWeek,
		p.StreakDays,
	)
}

// parseSuggestionArray extracts the first JSON array found in free-form
// response text. Models wrap arrays in prose and markdown fences; anything
// outside the outermost brackets is ignored.
func parseSuggestionArray(response string) ([]aiSuggestion, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}

	var parsed []aiSuggestion
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggestion array: %w", err)
	}

	return parsed, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func normalizePriority(p string) model.SuggestionPriority {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high":
		return model.PriorityHigh
	case "low":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

var priorityRank = map[model.SuggestionPriority]int{
	model.PriorityHigh:   3,
	model.PriorityMedium: 2,
	model.PriorityLow:    1,
}

// sortSuggestions orders by priority descending, ties broken by estimated
// improvement descending. Stable so equal suggestions keep generation order.
func sortSuggestions(suggestions []model.SmartSuggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		if priorityRank[suggestions[i].Priority] != priorityRank[suggestions[j].Priority] {
			return priorityRank[suggestions[i].Priority] > priorityRank[suggestions[j].Priority]
		}
		return suggestions[i].EstimatedImprovement > suggestions[j].EstimatedImprovement
	})
}

// ListPendingSuggestions returns the user's pending suggestions
func (s *SuggestionService) ListPendingSuggestions(ctx context.Context, userID string) ([]model.SmartSuggestion, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	return s.store.FindPendingByUserID(ctx, userID)
}

// AcceptSuggestion transitions a pending suggestion to accepted
func (s *SuggestionService) AcceptSuggestion(ctx context.Context, userID, suggestionID string) error {
	return s.transition(ctx, userID, suggestionID, model.SuggestionStatusAccepted, audit.OperationAccept)
}

// DismissSuggestion transitions a pending suggestion to dismissed
func (s *SuggestionService) DismissSuggestion(ctx context.Context, userID, suggestionID string) error {
	return s.transition(ctx, userID, suggestionID, model.SuggestionStatusDismissed, audit.OperationDismiss)
}

func (s *SuggestionService) transition(ctx context.Context, userID, suggestionID string, status model.SuggestionStatus, op audit.OperationType) error {
	if suggestionID == "" {
		return fmt.Errorf("suggestion ID is required")
	}

	if err := s.store.UpdateStatus(ctx, suggestionID, status); err != nil {
		return err
	}

	if s.auditor != nil {
		s.auditor.Log(ctx, audit.Entry{
			UserID:        userID,
			OperationType: op,
			ResourceType:  audit.ResourceSuggestion,
			ResourceID:    suggestionID,
		})
	}

	s.logger.Info("suggestion status updated",
		zap.String("suggestion_id", suggestionID),
		zap.String("status", string(status)),
	)

	return nil
}

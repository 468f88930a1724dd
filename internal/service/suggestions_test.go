package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunara-health/backend/internal/errvalues"
	"github.com/lunara-health/backend/pkg/model"
	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPatternAnalyzer is a mock implementation of PatternAnalyzer
type MockPatternAnalyzer struct {
	mock.Mock
}

func (m *MockPatternAnalyzer) AnalyzeMedicationPatterns(ctx context.Context, medicationID string, windowDays int) (*model.AdherencePattern, error) {
	args := m.Called(ctx, medicationID, windowDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AdherencePattern), args.Error(1)
}

// MockSuggestionStore is a mock implementation of SuggestionStore
type MockSuggestionStore struct {
	mock.Mock
}

func (m *MockSuggestionStore) Insert(ctx context.Context, s *model.SmartSuggestion) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSuggestionStore) FindPendingByUserID(ctx context.Context, userID string) ([]model.SmartSuggestion, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SmartSuggestion), args.Error(1)
}

func (m *MockSuggestionStore) UpdateStatus(ctx context.Context, suggestionID string, status model.SuggestionStatus) error {
	args := m.Called(ctx, suggestionID, status)
	return args.Error(0)
}

// MockCompleter is a mock implementation of ai.Completer
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func healthyPattern(rate float64) *model.AdherencePattern {
	return &model.AdherencePattern{
		MedicationID:        "med-1",
		MedicationName:      "Prenatal vitamin",
		TotalDoses:          10,
		TakenDoses:          int(rate / 10),
		AdherenceRate:       rate,
		AverageDelayMinutes: 5,
		MostMissedTimeSlot:  "morning",
		MostMissedDayOfWeek: "sunday",
		StreakDays:          0,
		Patterns: model.PatternBreakdown{
			TimeSlotCompliance:  map[string]float64{"morning": rate, "afternoon": rate, "evening": rate},
			DayOfWeekCompliance: map[string]float64{"sunday": rate, "monday": rate, "tuesday": rate, "wednesday": rate, "thursday": rate, "friday": rate, "saturday": rate},
			ContextCompliance:   map[string]float64{"weekday": rate, "weekend": rate, "home": rate, "away": 0},
		},
	}
}

func newTestSuggestionService(meds MedicationSource, analyzer PatternAnalyzer, store SuggestionStore, completer *MockCompleter) *SuggestionService {
	return NewSuggestionService(meds, analyzer, store, completer, nil, 30, time.Second, zap.NewNop())
}

func TestRuleSuggestions_LowAdherenceBoundary(t *testing.T) {
	service := newTestSuggestionService(nil, nil, nil, nil)

	// Exactly 60 does not trigger the low-adherence rule
	atBoundary := service.ruleSuggestions("user-1", healthyPattern(60))
	for _, s := range atBoundary {
		assert.NotEqual(t, model.PriorityHigh, s.Priority, "rate of exactly 60 must not trigger the high-priority rule")
	}

	// Just below 60 does
	below := service.ruleSuggestions("user-1", healthyPattern(59.9))
	var found *model.SmartSuggestion
	for i := range below {
		if below[i].Priority == model.PriorityHigh {
			found = &below[i]
		}
	}
	require.NotNil(t, found, "rate below 60 must trigger the high-priority encouragement")
	assert.Equal(t, model.SuggestionEncouragement, found.Type)
	assert.Equal(t, 25, found.EstimatedImprovement)
	assert.Equal(t, model.SuggestionStatusPending, found.Status)
}

func TestRuleSuggestions_WorstSlotAndDay(t *testing.T) {
	service := newTestSuggestionService(nil, nil, nil, nil)

	pattern := healthyPattern(85)
	pattern.Patterns.TimeSlotCompliance["evening"] = 50
	pattern.MostMissedTimeSlot = "evening"
	pattern.Patterns.DayOfWeekCompliance["saturday"] = 40
	pattern.MostMissedDayOfWeek = "saturday"

	suggestions := service.ruleSuggestions("user-1", pattern)

	types := make(map[model.SuggestionType]int)
	for _, s := range suggestions {
		types[s.Type]++
	}
	assert.Equal(t, 1, types[model.SuggestionTimeOptimization])
	assert.Equal(t, 1, types[model.SuggestionReminderTiming])
}

func TestRuleSuggestions_StreakEncouragement(t *testing.T) {
	service := newTestSuggestionService(nil, nil, nil, nil)

	pattern := healthyPattern(95)
	pattern.StreakDays = 7

	suggestions := service.ruleSuggestions("user-1", pattern)

	require.Len(t, suggestions, 1)
	assert.Equal(t, model.SuggestionEncouragement, suggestions[0].Type)
	assert.Equal(t, model.PriorityLow, suggestions[0].Priority)
	assert.Equal(t, 0, suggestions[0].EstimatedImprovement)

	pattern.StreakDays = 6
	assert.Empty(t, service.ruleSuggestions("user-1", pattern))
}

func TestRuleSuggestions_LargeAverageDelay(t *testing.T) {
	service := newTestSuggestionService(nil, nil, nil, nil)

	pattern := healthyPattern(90)
	pattern.AverageDelayMinutes = 61

	suggestions := service.ruleSuggestions("user-1", pattern)

	require.Len(t, suggestions, 1)
	assert.Equal(t, model.SuggestionReminderTiming, suggestions[0].Type)
	assert.Equal(t, 12, suggestions[0].EstimatedImprovement)

	pattern.AverageDelayMinutes = 60
	assert.Empty(t, service.ruleSuggestions("user-1", pattern), "delay of exactly 60 minutes must not trigger")
}

func TestSortSuggestions_PriorityThenImprovement(t *testing.T) {
	suggestions := []model.SmartSuggestion{
		{ID: "a", Priority: model.PriorityLow, EstimatedImprovement: 50},
		{ID: "b", Priority: model.PriorityHigh, EstimatedImprovement: 10},
		{ID: "c", Priority: model.PriorityMedium, EstimatedImprovement: 15},
		{ID: "d", Priority: model.PriorityMedium, EstimatedImprovement: 20},
		{ID: "e", Priority: model.PriorityHigh, EstimatedImprovement: 25},
	}

	sortSuggestions(suggestions)

	ids := make([]string, len(suggestions))
	for i, s := range suggestions {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"e", "b", "d", "c", "a"}, ids)
}

func TestGenerateSmartSuggestions_AIFailureFallsBackToRules(t *testing.T) {
	mockMeds := new(MockMedicationSource)
	mockAnalyzer := new(MockPatternAnalyzer)
	mockStore := new(MockSuggestionStore)
	mockCompleter := new(MockCompleter)
	service := newTestSuggestionService(mockMeds, mockAnalyzer, mockStore, mockCompleter)

	ctx := context.Background()
	mockMeds.On("FindActiveByUserID", ctx, "user-1").
		Return([]model.Medication{{ID: "med-1", Name: "Prenatal vitamin"}}, nil)
	mockAnalyzer.On("AnalyzeMedicationPatterns", ctx, "med-1", 30).
		Return(healthyPattern(50), nil)
	mockCompleter.On("Complete", mock.Anything, mock.Anything).
		Return("", context.DeadlineExceeded)
	mockStore.On("Insert", ctx, mock.AnythingOfType("*model.SmartSuggestion")).Return(nil)

	batch, err := service.GenerateSmartSuggestions(ctx, "user-1")

	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.False(t, batch.InsufficientData)
	assert.NotEmpty(t, batch.Suggestions, "rule suggestions must survive an AI failure")
	for _, s := range batch.Suggestions {
		assert.NotEqual(t, model.SuggestionDoseScheduling, s.Type,
			"no AI suggestions should appear when the completion service fails")
	}
}

func TestGenerateSmartSuggestions_AISkippedAboveThreshold(t *testing.T) {
	mockMeds := new(MockMedicationSource)
	mockAnalyzer := new(MockPatternAnalyzer)
	mockStore := new(MockSuggestionStore)
	mockCompleter := new(MockCompleter)
	service := newTestSuggestionService(mockMeds, mockAnalyzer, mockStore, mockCompleter)

	ctx := context.Background()
	pattern := healthyPattern(85)
	pattern.StreakDays = 10
	mockMeds.On("FindActiveByUserID", ctx, "user-1").
		Return([]model.Medication{{ID: "med-1", Name: "Prenatal vitamin"}}, nil)
	mockAnalyzer.On("AnalyzeMedicationPatterns", ctx, "med-1", 30).Return(pattern, nil)
	mockStore.On("Insert", ctx, mock.AnythingOfType("*model.SmartSuggestion")).Return(nil)

	_, err := service.GenerateSmartSuggestions(ctx, "user-1")

	require.NoError(t, err)
	mockCompleter.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestGenerateSmartSuggestions_AISuggestionsParsed(t *testing.T) {
	mockMeds := new(MockMedicationSource)
	mockAnalyzer := new(MockPatternAnalyzer)
	mockStore := new(MockSuggestionStore)
	mockCompleter := new(MockCompleter)
	service := newTestSuggestionService(mockMeds, mockAnalyzer, mockStore, mockCompleter)

	ctx := context.Background()
	pattern := healthyPattern(70)
	mockMeds.On("FindActiveByUserID", ctx, "user-1").
		Return([]model.Medication{{ID: "med-1", Name: "Prenatal vitamin"}}, nil)
	mockAnalyzer.On("AnalyzeMedicationPatterns", ctx, "med-1", 30).Return(pattern, nil)
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return(
		"Here you go:\n```json\n[{\"title\": \"Pair with breakfast\", \"description\": \"Take the dose with your first meal.\", \"priority\": \"urgent\", \"estimated_improvement\": 18}, {\"description\": \"missing title\"}]\n```", nil)
	mockStore.On("Insert", ctx, mock.AnythingOfType("*model.SmartSuggestion")).Return(nil)

	batch, err := service.GenerateSmartSuggestions(ctx, "user-1")

	require.NoError(t, err)

	var aiSuggestions []model.SmartSuggestion
	for _, s := range batch.Suggestions {
		if s.Type == model.SuggestionDoseScheduling {
			aiSuggestions = append(aiSuggestions, s)
		}
	}
	require.Len(t, aiSuggestions, 1, "element missing required fields must be dropped")
	assert.Equal(t, "Pair with breakfast", aiSuggestions[0].Title)
	assert.Equal(t, model.PriorityMedium, aiSuggestions[0].Priority, "unknown priority defaults to medium")
	assert.Equal(t, 18, aiSuggestions[0].EstimatedImprovement)
}

func TestGenerateSmartSuggestions_InsufficientData(t *testing.T) {
	mockMeds := new(MockMedicationSource)
	mockAnalyzer := new(MockPatternAnalyzer)
	mockStore := new(MockSuggestionStore)
	service := newTestSuggestionService(mockMeds, mockAnalyzer, mockStore, new(MockCompleter))

	ctx := context.Background()
	mockMeds.On("FindActiveByUserID", ctx, "user-1").
		Return([]model.Medication{{ID: "med-1", Name: "Prenatal vitamin"}}, nil)
	mockAnalyzer.On("AnalyzeMedicationPatterns", ctx, "med-1", 30).
		Return(nil, errvalues.ErrEmptyHistory)

	batch, err := service.GenerateSmartSuggestions(ctx, "user-1")

	require.NoError(t, err)
	assert.True(t, batch.InsufficientData)
	assert.Empty(t, batch.Suggestions)
}

func TestGenerateSmartSuggestions_PersistenceFailureStillReturnsBatch(t *testing.T) {
	mockMeds := new(MockMedicationSource)
	mockAnalyzer := new(MockPatternAnalyzer)
	mockStore := new(MockSuggestionStore)
	mockCompleter := new(MockCompleter)
	service := newTestSuggestionService(mockMeds, mockAnalyzer, mockStore, mockCompleter)

	ctx := context.Background()
	mockMeds.On("FindActiveByUserID", ctx, "user-1").
		Return([]model.Medication{{ID: "med-1", Name: "Prenatal vitamin"}}, nil)
	mockAnalyzer.On("AnalyzeMedicationPatterns", ctx, "med-1", 30).
		Return(healthyPattern(50), nil)
	mockCompleter.On("Complete", mock.Anything, mock.Anything).Return("[]", nil)
	mockStore.On("Insert", ctx, mock.AnythingOfType("*model.SmartSuggestion")).
		Return(errors.New("disk full"))

	batch, err := service.GenerateSmartSuggestions(ctx, "user-1")

	assert.Error(t, err)
	require.NotNil(t, batch, "computed suggestions must be returned even when persistence fails")
	assert.NotEmpty(t, batch.Suggestions)
}

func TestParseSuggestionArray(t *testing.T) {
	tests := []struct {
		name     string
		response string
		count    int
		wantErr  bool
	}{
		{
			name:     "bare array",
			response: `[{"title": "a", "description": "b"}]`,
			count:    1,
		},
		{
			name:     "array wrapped in prose",
			response: "Sure! Here are my suggestions: [{\"title\": \"a\", \"description\": \"b\"}] Hope that helps.",
			count:    1,
		},
		{
			name:     "no array",
			response: "I cannot help with that.",
			wantErr:  true,
		},
		{
			name:     "malformed JSON",
			response: `[{"title": }]`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := parseSuggestionArray(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, parsed, tt.count)
		})
	}
}

func TestAcceptSuggestion_TerminalStatePropagates(t *testing.T) {
	mockStore := new(MockSuggestionStore)
	service := newTestSuggestionService(nil, nil, mockStore, nil)

	ctx := context.Background()
	mockStore.On("UpdateStatus", ctx, "sug-1", model.SuggestionStatusAccepted).
		Return(errvalues.ErrSuggestionNotPending)

	err := service.AcceptSuggestion(ctx, "user-1", "sug-1")

	assert.ErrorIs(t, err, errvalues.ErrSuggestionNotPending)
}

func TestDismissSuggestion_Success(t *testing.T) {
	mockStore := new(MockSuggestionStore)
	service := newTestSuggestionService(nil, nil, mockStore, nil)

	ctx := context.Background()
	mockStore.On("UpdateStatus", ctx, "sug-1", model.SuggestionStatusDismissed).Return(nil)

	err := service.DismissSuggestion(ctx, "user-1", "sug-1")

	assert.NoError(t, err)
	mockStore.AssertExpectations(t)
}

package integration_tests

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lunara-health/backend/internal/audit"
	"github.com/lunara-health/backend/internal/handler"
	"github.com/lunara-health/backend/internal/repository"
	"github.com/lunara-health/backend/internal/service"
	"github.com/lunara-health/backend/pkg/model"
)

// unavailableCompleter simulates a degraded completion service. Suggestion
// generation must still produce rule-based output.
type unavailableCompleter struct{}

func (unavailableCompleter) Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	return "", errors.New("completion service unavailable")
}

// TestSuggestionLifecycleIntegration exercises generation, listing, and the
// terminal accept/dismiss transitions against a real database.
func TestSuggestionLifecycleIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	logger := zap.NewNop()

	db, cleanup := setupTestDatabase(t, ctx)
	defer cleanup()

	medicationRepo := repository.NewMedicationRepository(db, logger)
	doseLogRepo := repository.NewDoseLogRepository(db, logger)
	suggestionRepo := repository.NewSuggestionRepository(db, logger)
	auditLogger := audit.NewLogger(db, logger)

	adherenceService := service.NewAdherenceService(medicationRepo, doseLogRepo, 30, logger)
	suggestionService := service.NewSuggestionService(
		medicationRepo,
		adherenceService,
		suggestionRepo,
		unavailableCompleter{},
		auditLogger,
		30,
		time.Second,
		logger,
	)

	suggestionHandler := handler.NewSuggestionHandler(suggestionService, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/v1/suggestions/generate", suggestionHandler.GenerateSuggestions)
	router.GET("/api/v1/suggestions", suggestionHandler.ListPendingSuggestions)
	router.POST("/api/v1/suggestions/:id/accept", suggestionHandler.AcceptSuggestion)
	router.POST("/api/v1/suggestions/:id/dismiss", suggestionHandler.DismissSuggestion)

	userID := uuid.New().String()
	seedLowAdherenceMedication(t, ctx, medicationRepo, doseLogRepo, userID)

	t.Log("Step 1: Generating suggestions for a low-adherence user")
	w := doJSON(t, router, "POST", "/api/v1/suggestions/generate?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	var batch struct {
		Suggestions      []model.SmartSuggestion `json:"suggestions"`
		InsufficientData bool                    `json:"insufficient_data"`
	}
	require.NoError(t, decodeBody(w, &batch))
	assert.False(t, batch.InsufficientData)
	require.NotEmpty(t, batch.Suggestions, "low adherence must produce rule suggestions even without AI")

	for _, s := range batch.Suggestions {
		assert.Equal(t, model.SuggestionStatusPending, s.Status)
		assert.NotEqual(t, model.SuggestionDoseScheduling, s.Type, "AI suggestions should be absent when the service is down")
	}

	t.Log("Step 2: Listing pending suggestions")
	w = doJSON(t, router, "GET", "/api/v1/suggestions?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pending []model.SmartSuggestion
	require.NoError(t, decodeBody(w, &pending))
	require.Len(t, pending, len(batch.Suggestions))

	t.Log("Step 3: Accepting a suggestion")
	accepted := pending[0].ID
	w = doJSON(t, router, "POST", "/api/v1/suggestions/"+accepted+"/accept", map[string]any{"user_id": userID})
	require.Equal(t, http.StatusNoContent, w.Code, "body: %s", w.Body.String())

	t.Log("Step 4: Re-accepting is a conflict")
	w = doJSON(t, router, "POST", "/api/v1/suggestions/"+accepted+"/accept", map[string]any{"user_id": userID})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, "POST", "/api/v1/suggestions/"+accepted+"/dismiss", map[string]any{"user_id": userID})
	assert.Equal(t, http.StatusConflict, w.Code, "accepted suggestions can never be dismissed")

	t.Log("Step 5: Dismissing a different suggestion")
	if len(pending) > 1 {
		w = doJSON(t, router, "POST", "/api/v1/suggestions/"+pending[1].ID+"/dismiss", map[string]any{"user_id": userID})
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	t.Log("Step 6: Resolved suggestions leave the pending list")
	w = doJSON(t, router, "GET", "/api/v1/suggestions?user_id="+userID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, decodeBody(w, &pending))
	for _, s := range pending {
		assert.NotEqual(t, accepted, s.ID)
	}

	t.Log("Step 7: Unknown suggestion is a 404")
	w = doJSON(t, router, "POST", "/api/v1/suggestions/"+uuid.New().String()+"/accept", map[string]any{"user_id": userID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// seedLowAdherenceMedication creates a medication with a 50% adherence
// history over the past ten days
func seedLowAdherenceMedication(t *testing.T, ctx context.Context, meds *repository.MedicationRepository, doses *repository.DoseLogRepository, userID string) {
	t.Helper()

	med := &model.Medication{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      "Iron supplement",
		Dosage:    "25mg",
		Frequency: "daily",
		Times:     []string{"08:00"},
		StartDate: time.Now().AddDate(0, 0, -20),
		Active:    true,
	}
	require.NoError(t, meds.Create(ctx, med))

	now := time.Now().UTC()
	for i := 1; i <= 10; i++ {
		scheduled := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC).AddDate(0, 0, -i)
		log := &model.DoseLog{
			ID:            uuid.New().String(),
			MedicationID:  med.ID,
			ScheduledTime: scheduled,
			Status:        model.DoseStatusMissed,
		}
		if i%2 == 0 {
			takenAt := scheduled.Add(15 * time.Minute)
			log.TakenTime = &takenAt
			log.Taken = true
			log.Status = model.DoseStatusTaken
		}
		require.NoError(t, doses.Create(ctx, log))
	}
}

package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

// Every rejected request carries the same error body shape: a stable code,
// a human-readable message, and optional details.
func TestProperty_ErrorResponseStructure(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	logger := zap.NewNop()

	properties.Property("all binding failures produce a structured validation error", prop.ForAll(
		func(errorScenario string) bool {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			_, router := gin.CreateTestContext(w)

			// Binding happens before any service call, so handlers with
			// nil services are safe in every scenario below.
			switch errorScenario {
			case "invalid_json_medication":
				handler := NewMedicationHandler(nil, nil, logger)
				router.POST("/test", handler.CreateMedication)

				req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`{"name": "test", "dosage": }`))
				req.Header.Set("Content-Type", "application/json")
				router.ServeHTTP(w, req)

			case "truncated_json_medication":
				handler := NewMedicationHandler(nil, nil, logger)
				router.POST("/test", handler.CreateMedication)

				req := httptest.NewRequest("POST", "/test", bytes.NewBufferString("{invalid json"))
				req.Header.Set("Content-Type", "application/json")
				router.ServeHTTP(w, req)

			case "missing_message_chat":
				handler := NewChatHandler(nil, logger)
				router.POST("/test", handler.SendMessage)

				req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`{"user_id":"user-1"}`))
				req.Header.Set("Content-Type", "application/json")
				router.ServeHTTP(w, req)

			case "missing_user_suggestion_accept":
				handler := NewSuggestionHandler(nil, logger)
				router.POST("/test/:id/accept", handler.AcceptSuggestion)

				req := httptest.NewRequest("POST", "/test/s-1/accept", bytes.NewBufferString(`{}`))
				req.Header.Set("Content-Type", "application/json")
				router.ServeHTTP(w, req)

			case "malformed_json_array_appointment":
				handler := NewAppointmentHandler(nil, logger)
				router.POST("/test", handler.CreateAppointment)

				req := httptest.NewRequest("POST", "/test", bytes.NewBufferString(`[1,2,3`))
				req.Header.Set("Content-Type", "application/json")
				router.ServeHTTP(w, req)

			case "invalid_days_adherence":
				handler := NewMedicationHandler(nil, nil, logger)
				router.GET("/test/:id/adherence", handler.GetAdherencePattern)

				req := httptest.NewRequest("GET", "/test/med-1/adherence?days=banana", nil)
				router.ServeHTTP(w, req)

			default:
				return true
			}

			if w.Code != http.StatusBadRequest {
				t.Logf("Scenario %s: expected status 400, got %d", errorScenario, w.Code)
				return false
			}

			var errorResp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &errorResp); err != nil {
				t.Logf("Scenario %s: failed to parse error response: %v, body: %s", errorScenario, err, w.Body.String())
				return false
			}

			if errorResp.Code != "VALIDATION_ERROR" {
				t.Logf("Scenario %s: expected code VALIDATION_ERROR, got %q", errorScenario, errorResp.Code)
				return false
			}

			if errorResp.Message == "" {
				t.Logf("Scenario %s: empty message", errorScenario)
				return false
			}

			return true
		},
		gen.OneConstOf(
			"invalid_json_medication",
			"truncated_json_medication",
			"missing_message_chat",
			"missing_user_suggestion_accept",
			"malformed_json_array_appointment",
			"invalid_days_adherence",
		),
	))

	properties.TestingRun(t)
}

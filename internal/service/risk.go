package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lunara-health/backend/internal/ai"
	"github.com/lunara-health/backend/pkg/model"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// RiskService evaluates a pregnancy health snapshot using the completion
// service and returns a structured assessment
type RiskService struct {
	completer ai.Completer
	logger    *zap.Logger
}

// NewRiskService creates a new RiskService
func NewRiskService(completer ai.Completer, logger *zap.Logger) *RiskService {
	return &RiskService{
		completer: completer,
		logger:    logger,
	}
}

// AssessRisk validates the input, asks the completion service for an
// assessment and parses the structured result
func (s *RiskService) AssessRisk(ctx context.Context, input *model.HealthDataInput) (*model.RiskAssessment, error) {
	if err := validateHealthData(input); err != nil {
		return nil, err
	}

	prompt := s.buildAssessmentPrompt(input)

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt),
		openai.UserMessage("Assess the health data above and return the JSON now."),
	}

	response, err := s.completer.Complete(ctx, messages)
	if err != nil {
		s.logger.Error("risk assessment failed", zap.Error(err))
		return nil, fmt.Errorf("risk assessment failed: %w", err)
	}

	assessment, err := s.parseAssessmentResponse(response)
	if err != nil {
		s.logger.Error("failed to parse assessment response",
			zap.Error(err),
			zap.String("response", response),
		)
		return nil, fmt.Errorf("failed to parse assessment response: %w", err)
	}

	s.logger.Info("risk assessment completed",
		zap.String("risk_level", assessment.RiskLevel),
		zap.Int("concern_count", len(assessment.Concerns)),
	)

	return assessment, nil
}

// buildAssessmentPrompt creates the prompt for the risk evaluation
func (s *RiskService) buildAssessmentPrompt(input *model.HealthDataInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Gestational week: %d\n", input.GestationalWeek)
	fmt.Fprintf(&sb, "Age: %d\n", input.Age)
	if input.SystolicBP != nil && input.DiastolicBP != nil {
		fmt.Fprintf(&sb, "Blood pressure: %d/%d mmHg\n", *input.SystolicBP, *input.DiastolicBP)
	}
	if input.WeightKg != nil {
		fmt.Fprintf(&sb, "Weight: %.1f kg\n", *input.WeightKg)
	}
	if len(input.Symptoms) > 0 {
		fmt.Fprintf(&sb, "Reported symptoms: %s\n", strings.Join(input.Symptoms, ", "))
	}
	if len(input.Conditions) > 0 {
		fmt.Fprintf(&sb, "Known conditions: %s\n", strings.Join(input.Conditions, ", "))
	}

	return fmt.Sprintf(`You are a pregnancy health screening assistant. Evaluate the following health snapshot.

%s
Return the evaluation as valid JSON:
{
  "risk_level": "low/moderate/high",
  "summary": "one-paragraph plain language summary",
  "concerns": ["list of specific concerns, empty if none"],
  "recommendations": ["list of practical recommendations"]
}

Rules:
- This is a screening aid, not a diagnosis; word recommendations accordingly
- Any blood pressure at or above 140/90 is at least moderate risk
- Return ONLY valid JSON, no additional text`, sb.String())
}

// parseAssessmentResponse parses the AI response into a RiskAssessment
func (s *RiskService) parseAssessmentResponse(response string) (*model.RiskAssessment, error) {
	// Clean up response - sometimes AI adds markdown code blocks
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var assessment model.RiskAssessment
	if err := json.Unmarshal([]byte(response), &assessment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	assessment.RiskLevel = strings.ToLower(strings.TrimSpace(assessment.RiskLevel))
	if assessment.RiskLevel != "low" && assessment.RiskLevel != "moderate" && assessment.RiskLevel != "high" {
		s.logger.Warn("invalid risk level, defaulting to moderate", zap.String("risk_level", assessment.RiskLevel))
		assessment.RiskLevel = "moderate"
	}

	if assessment.Concerns == nil {
		assessment.Concerns = []string{}
	}
	if assessment.Recommendations == nil {
		assessment.Recommendations = []string{}
	}

	return &assessment, nil
}

func validateHealthData(input *model.HealthDataInput) error {
	if input == nil {
		return fmt.Errorf("health data is required")
	}
	if input.GestationalWeek < 1 || input.GestationalWeek > 42 {
		return fmt.Errorf("gestational week must be between 1 and 42")
	}
	if input.Age < 12 || input.Age > 60 {
		return fmt.Errorf("age must be between 12 and 60")
	}
	if (input.SystolicBP == nil) != (input.DiastolicBP == nil) {
		return fmt.Errorf("blood pressure requires both systolic and diastolic values")
	}
	return nil
}

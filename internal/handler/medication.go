package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/service"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// MedicationHandler implements medication and dose log API endpoints
type MedicationHandler struct {
	medications *service.MedicationService
	adherence   *service.AdherenceService
	logger      *zap.Logger
}

// NewMedicationHandler creates a new MedicationHandler
func NewMedicationHandler(medications *service.MedicationService, adherence *service.AdherenceService, logger *zap.Logger) *MedicationHandler {
	return &MedicationHandler{
		medications: medications,
		adherence:   adherence,
		logger:      logger,
	}
}

type medicationRequest struct {
	UserID    string     `json:"user_id" binding:"required"`
	Name      string     `json:"name" binding:"required"`
	Dosage    string     `json:"dosage" binding:"required"`
	Frequency string     `json:"frequency"`
	Times     []string   `json:"times"`
	StartDate time.Time  `json:"start_date" binding:"required"`
	EndDate   *time.Time `json:"end_date"`
	Notes     *string    `json:"notes"`
}

// CreateMedication handles POST /api/v1/medications
func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	var req medicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		respondValidationError(c, err)
		return
	}

	med := &model.Medication{
		UserID:    req.UserID,
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		Times:     req.Times,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Notes:     req.Notes,
	}

	if err := h.medications.CreateMedication(c.Request.Context(), med); err != nil {
		h.logger.Error("failed to create medication",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		respondServiceError(c, err, "Failed to create medication")
		return
	}

	h.logger.Info("medication created",
		zap.String("medication_id", med.ID),
		zap.String("user_id", med.UserID),
	)

	c.JSON(http.StatusCreated, med)
}

// ListMedications handles GET /api/v1/medications?user_id=
func (h *MedicationHandler) ListMedications(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondValidationError(c, errMissingUserID)
		return
	}

	medications, err := h.medications.ListMedications(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list medications",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		respondServiceError(c, err, "Failed to list medications")
		return
	}

	c.JSON(http.StatusOK, medications)
}

// GetMedication handles GET /api/v1/medications/:id
func (h *MedicationHandler) GetMedication(c *gin.Context) {
	medicationID := c.Param("id")

	med, err := h.medications.GetMedication(c.Request.Context(), medicationID)
	if err != nil {
		respondServiceError(c, err, "Failed to get medication")
		return
	}

	c.JSON(http.StatusOK, med)
}

// UpdateMedication handles PUT /api/v1/medications/:id
func (h *MedicationHandler) UpdateMedication(c *gin.Context) {
	var req medicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		respondValidationError(c, err)
		return
	}

	med := &model.Medication{
		ID:        c.Param("id"),
		UserID:    req.UserID,
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		Times:     req.Times,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Notes:     req.Notes,
		Active:    true,
	}

	if err := h.medications.UpdateMedication(c.Request.Context(), med); err != nil {
		h.logger.Error("failed to update medication",
			zap.Error(err),
			zap.String("medication_id", med.ID),
		)
		respondServiceError(c, err, "Failed to update medication")
		return
	}

	c.JSON(http.StatusOK, med)
}

// DeleteMedication handles DELETE /api/v1/medications/:id?user_id=
func (h *MedicationHandler) DeleteMedication(c *gin.Context) {
	medicationID := c.Param("id")
	userID := c.Query("user_id")

	if err := h.medications.DeleteMedication(c.Request.Context(), userID, medicationID); err != nil {
		h.logger.Error("failed to delete medication",
			zap.Error(err),
			zap.String("medication_id", medicationID),
		)
		respondServiceError(c, err, "Failed to delete medication")
		return
	}

	h.logger.Info("medication deleted",
		zap.String("medication_id", medicationID),
		zap.String("user_id", userID),
	)

	c.Status(http.StatusNoContent)
}

type logDoseRequest struct {
	UserID    string     `json:"user_id"`
	TakenTime *time.Time `json:"taken_time"`
}

// LogDoseTaken handles POST /api/v1/dose-logs/:id/taken
func (h *MedicationHandler) LogDoseTaken(c *gin.Context) {
	doseLogID := c.Param("id")

	var req logDoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		respondValidationError(c, err)
		return
	}

	takenTime := time.Now()
	if req.TakenTime != nil {
		takenTime = *req.TakenTime
	}

	if err := h.medications.LogDoseTaken(c.Request.Context(), req.UserID, doseLogID, takenTime); err != nil {
		h.logger.Error("failed to log dose",
			zap.Error(err),
			zap.String("dose_log_id", doseLogID),
		)
		respondServiceError(c, err, "Failed to log dose")
		return
	}

	h.logger.Info("dose logged taken",
		zap.String("dose_log_id", doseLogID),
		zap.String("user_id", req.UserID),
	)

	c.Status(http.StatusNoContent)
}

// GetDoseHistory handles GET /api/v1/medications/:id/dose-logs?days=
func (h *MedicationHandler) GetDoseHistory(c *gin.Context) {
	medicationID := c.Param("id")

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondValidationError(c, errInvalidDays)
			return
		}
		days = parsed
	}

	logs, err := h.medications.GetDoseHistory(c.Request.Context(), medicationID, days)
	if err != nil {
		respondServiceError(c, err, "Failed to get dose history")
		return
	}

	c.JSON(http.StatusOK, logs)
}

// GetAdherencePattern handles GET /api/v1/medications/:id/adherence?days=
func (h *MedicationHandler) GetAdherencePattern(c *gin.Context) {
	medicationID := c.Param("id")

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondValidationError(c, errInvalidDays)
			return
		}
		days = parsed
	}

	pattern, err := h.adherence.AnalyzeMedicationPatterns(c.Request.Context(), medicationID, days)
	if err != nil {
		respondServiceError(c, err, "Failed to analyze adherence")
		return
	}

	c.JSON(http.StatusOK, pattern)
}

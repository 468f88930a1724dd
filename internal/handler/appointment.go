package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/service"
	"github.com/lunara-health/backend/pkg/model"
	"go.uber.org/zap"
)

// AppointmentHandler implements appointment API endpoints
type AppointmentHandler struct {
	appointments *service.AppointmentService
	logger       *zap.Logger
}

// NewAppointmentHandler creates a new AppointmentHandler
func NewAppointmentHandler(appointments *service.AppointmentService, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		appointments: appointments,
		logger:       logger,
	}
}

type appointmentRequest struct {
	UserID   string    `json:"user_id" binding:"required"`
	Title    string    `json:"title" binding:"required"`
	Provider string    `json:"provider"`
	Location *string   `json:"location"`
	Notes    *string   `json:"notes"`
	StartsAt time.Time `json:"starts_at" binding:"required"`
}

// CreateAppointment handles POST /api/v1/appointments
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		respondValidationError(c, err)
		return
	}

	appt := &model.Appointment{
		UserID:   req.UserID,
		Title:    req.Title,
		Provider: req.Provider,
		Location: req.Location,
		Notes:    req.Notes,
		StartsAt: req.StartsAt,
	}

	if err := h.appointments.CreateAppointment(c.Request.Context(), appt); err != nil {
		h.logger.Error("failed to create appointment",
			zap.Error(err),
			zap.String("user_id", req.UserID),
		)
		respondServiceError(c, err, "Failed to create appointment")
		return
	}

	h.logger.Info("appointment created",
		zap.String("appointment_id", appt.ID),
		zap.String("user_id", appt.UserID),
	)

	c.JSON(http.StatusCreated, appt)
}

// ListAppointments handles GET /api/v1/appointments?user_id=&upcoming=
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		respondValidationError(c, errMissingUserID)
		return
	}

	var (
		appointments []model.Appointment
		err          error
	)
	if c.Query("upcoming") == "true" {
		appointments, err = h.appointments.ListUpcomingAppointments(c.Request.Context(), userID)
	} else {
		appointments, err = h.appointments.ListAppointments(c.Request.Context(), userID)
	}
	if err != nil {
		h.logger.Error("failed to list appointments",
			zap.Error(err),
			zap.String("user_id", userID),
		)
		respondServiceError(c, err, "Failed to list appointments")
		return
	}

	c.JSON(http.StatusOK, appointments)
}

// UpdateAppointment handles PUT /api/v1/appointments/:id
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var req appointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		respondValidationError(c, err)
		return
	}

	appt := &model.Appointment{
		ID:       c.Param("id"),
		UserID:   req.UserID,
		Title:    req.Title,
		Provider: req.Provider,
		Location: req.Location,
		Notes:    req.Notes,
		StartsAt: req.StartsAt,
	}

	if err := h.appointments.UpdateAppointment(c.Request.Context(), appt); err != nil {
		h.logger.Error("failed to update appointment",
			zap.Error(err),
			zap.String("appointment_id", appt.ID),
		)
		respondServiceError(c, err, "Failed to update appointment")
		return
	}

	c.JSON(http.StatusOK, appt)
}

// DeleteAppointment handles DELETE /api/v1/appointments/:id?user_id=
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	appointmentID := c.Param("id")
	userID := c.Query("user_id")

	if err := h.appointments.DeleteAppointment(c.Request.Context(), userID, appointmentID); err != nil {
		h.logger.Error("failed to delete appointment",
			zap.Error(err),
			zap.String("appointment_id", appointmentID),
		)
		respondServiceError(c, err, "Failed to delete appointment")
		return
	}

	c.Status(http.StatusNoContent)
}

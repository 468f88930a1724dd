package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lunara-health/backend/internal/errvalues"
)

var (
	errMissingUserID = errors.New("user_id query parameter is required")
	errInvalidDays   = errors.New("days must be a positive integer")
)

// ErrorResponse is the JSON error body returned by all endpoints
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// respondValidationError writes a 400 with the binding error as details
func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    "VALIDATION_ERROR",
		Message: "Invalid request",
		Details: stringPtr(err.Error()),
	})
}

// respondServiceError maps service errors to HTTP status codes. Sentinel
// errors become 404 or 409; everything else is a 500 with the given message.
func respondServiceError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, errvalues.ErrMedicationNotFound),
		errors.Is(err, errvalues.ErrSuggestionNotFound),
		errors.Is(err, errvalues.ErrAppointmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
	case errors.Is(err, errvalues.ErrSuggestionNotPending):
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "CONFLICT",
			Message: err.Error(),
		})
	case errors.Is(err, errvalues.ErrEmptyHistory):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    "NO_DOSE_HISTORY",
			Message: err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: message,
			Details: stringPtr(err.Error()),
		})
	}
}

// Package errvalues holds the sentinel error values shared between the
// repository and service layers.
package errvalues

import "errors"

var (
	// ErrMedicationNotFound is returned when a referenced medication does not exist
	ErrMedicationNotFound = errors.New("medication not found")
	// ErrEmptyHistory signals zero dose logs in the analytics window.
	// Callers treat it as "insufficient data", not as a failure.
	ErrEmptyHistory = errors.New("no dose history in window")
	// ErrSuggestionNotFound is returned when a referenced suggestion does not exist
	ErrSuggestionNotFound = errors.New("suggestion not found")
	// ErrSuggestionNotPending is returned on a status transition attempt
	// against a suggestion that already left the pending state
	ErrSuggestionNotPending = errors.New("suggestion is not pending")
	// ErrAppointmentNotFound is returned when a referenced appointment does not exist
	ErrAppointmentNotFound = errors.New("appointment not found")
)

package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lunara-health/backend/internal/repository"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate  OperationType = "CREATE"
	OperationUpdate  OperationType = "UPDATE"
	OperationDelete  OperationType = "DELETE"
	OperationAccept  OperationType = "ACCEPT"
	OperationDismiss OperationType = "DISMISS"
)

// ResourceType represents the type of resource being mutated
type ResourceType string

const (
	ResourceMedication  ResourceType = "medication"
	ResourceDoseLog     ResourceType = "dose_log"
	ResourceSuggestion  ResourceType = "smart_suggestion"
	ResourceAppointment ResourceType = "appointment"
)

// Entry represents an audit log entry
type Entry struct {
	UserID         string
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Timestamp      time.Time
	AdditionalData map[string]any
}

// Logger handles audit logging of data mutations
type Logger struct {
	db     repository.PgConnection
	logger *zap.Logger
}

// NewLogger creates a new audit logger
func NewLogger(db repository.PgConnection, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Log records an audit entry. Failures are logged, not propagated;
// an audit write must never abort the audited operation.
func (l *Logger) Log(ctx context.Context, entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.logger.Info("audit log entry",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
	)

	var additional []byte
	if entry.AdditionalData != nil {
		data, err := json.Marshal(entry.AdditionalData)
		if err != nil {
			l.logger.Warn("failed to marshal audit additional data", zap.Error(err))
		} else {
			additional = data
		}
	}

	query := `
		INSERT INTO audit_logs (
			user_id, operation_type, resource_type, resource_id,
			timestamp, additional_data
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := l.db.Exec(ctx, query,
		entry.UserID,
		string(entry.OperationType),
		string(entry.ResourceType),
		entry.ResourceID,
		entry.Timestamp,
		additional,
	); err != nil {
		l.logger.Error("failed to store audit log entry", zap.Error(err))
	}
}

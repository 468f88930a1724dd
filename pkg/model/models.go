package model

import "time"

// User represents a user in the system
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Medication represents a medication record with its daily dose schedule
type Medication struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	Times     []string   `json:"times"` // "HH:MM" local dose times
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// DoseStatus represents the lifecycle state of a scheduled dose
type DoseStatus string

const (
	DoseStatusScheduled DoseStatus = "scheduled"
	DoseStatusTaken     DoseStatus = "taken"
	DoseStatusMissed    DoseStatus = "missed"
)

// DoseLog represents one scheduled dose of one medication.
// TakenTime present implies Taken == true.
type DoseLog struct {
	ID            string     `json:"id"`
	MedicationID  string     `json:"medication_id"`
	ScheduledTime time.Time  `json:"scheduled_time"`
	TakenTime     *time.Time `json:"taken_time,omitempty"`
	Taken         bool       `json:"taken"`
	Status        DoseStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// PatternBreakdown holds per-bucket compliance percentages
type PatternBreakdown struct {
	TimeSlotCompliance  map[string]float64 `json:"time_slot_compliance"`
	DayOfWeekCompliance map[string]float64 `json:"day_of_week_compliance"`
	ContextCompliance   map[string]float64 `json:"context_compliance"`
}

// AdherencePattern is a derived aggregate over a medication's dose logs
// within a trailing window. Computed fresh on each request, never persisted.
type AdherencePattern struct {
	MedicationID        string           `json:"medication_id"`
	MedicationName      string           `json:"medication_name"`
	TotalDoses          int              `json:"total_doses"`
	TakenDoses          int              `json:"taken_doses"`
	AdherenceRate       float64          `json:"adherence_rate"`
	AverageDelayMinutes float64          `json:"average_delay_minutes"`
	MostMissedTimeSlot  string           `json:"most_missed_time_slot"`
	MostMissedDayOfWeek string           `json:"most_missed_day_of_week"`
	StreakDays          int              `json:"streak_days"`
	LastTakenDate       *time.Time       `json:"last_taken_date,omitempty"`
	Patterns            PatternBreakdown `json:"patterns"`
}

// SuggestionType categorizes a smart suggestion
type SuggestionType string

const (
	SuggestionTimeOptimization SuggestionType = "time_optimization"
	SuggestionReminderTiming   SuggestionType = "reminder_timing"
	SuggestionDoseScheduling   SuggestionType = "dose_scheduling"
	SuggestionEncouragement    SuggestionType = "encouragement"
)

// SuggestionPriority represents suggestion urgency
type SuggestionPriority string

const (
	PriorityLow    SuggestionPriority = "low"
	PriorityMedium SuggestionPriority = "medium"
	PriorityHigh   SuggestionPriority = "high"
)

// SuggestionStatus represents the suggestion lifecycle state.
// Transitions are pending -> accepted or pending -> dismissed, terminal.
type SuggestionStatus string

const (
	SuggestionStatusPending   SuggestionStatus = "pending"
	SuggestionStatusAccepted  SuggestionStatus = "accepted"
	SuggestionStatusDismissed SuggestionStatus = "dismissed"
)

// SmartSuggestion is a recommendation derived from one medication's
// adherence pattern
type SmartSuggestion struct {
	ID                   string             `json:"id"`
	UserID               string             `json:"user_id"`
	MedicationID         string             `json:"medication_id"`
	Type                 SuggestionType     `json:"type"`
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	Reasoning            string             `json:"reasoning"`
	Action               string             `json:"action"`
	Priority             SuggestionPriority `json:"priority"`
	EstimatedImprovement int                `json:"estimated_improvement"`
	CreatedAt            time.Time          `json:"created_at"`
	Status               SuggestionStatus   `json:"status"`
}

// AdherenceInsight is a summarized natural-language observation.
// Regenerated per request, not persisted.
type AdherenceInsight struct {
	MedicationID   *string            `json:"medication_id,omitempty"`
	MedicationName *string            `json:"medication_name,omitempty"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	Recommendation string             `json:"recommendation"`
	Priority       SuggestionPriority `json:"priority"`
}

// Appointment represents a scheduled medical appointment
type Appointment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Provider  string    `json:"provider"`
	Location  *string   `json:"location,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatRole represents the role of a chat message sender
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage represents one message in the assistant conversation.
// Content is encrypted at rest by the repository layer.
type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HealthDataInput is the caller-supplied snapshot fed to the risk assessment
type HealthDataInput struct {
	GestationalWeek int      `json:"gestational_week"`
	Age             int      `json:"age"`
	SystolicBP      *int     `json:"systolic_bp,omitempty"`
	DiastolicBP     *int     `json:"diastolic_bp,omitempty"`
	WeightKg        *float64 `json:"weight_kg,omitempty"`
	Symptoms        []string `json:"symptoms,omitempty"`
	Conditions      []string `json:"conditions,omitempty"`
}

// RiskAssessment is the structured result of the AI risk evaluation
type RiskAssessment struct {
	RiskLevel       string   `json:"risk_level"` // low, moderate, high
	Summary         string   `json:"summary"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
}

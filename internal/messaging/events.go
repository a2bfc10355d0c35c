package messaging

import (
	"fmt"
	"time"
)

// Event routing keys as constants
const (
	EventPatientCreated   = "patient.created"
	EventPatientUpdated   = "patient.updated"
	EventPatientCompleted = "patient.completed"
	EventPatientDeleted   = "patient.deleted"
	EventPatientRestored  = "patient.restored"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientCreatedEvent represents a patient registration event
type PatientCreatedEvent struct {
	BaseEvent
	Data PatientCreatedData `json:"data"`
}

type PatientCreatedData struct {
	PatientID    string    `json:"patient_id"`
	Name         string    `json:"name"`
	FamilyGroup  string    `json:"family_group"`
	Services     []string  `json:"services"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
}

// PatientUpdatedEvent represents a mutation of an existing record
type PatientUpdatedEvent struct {
	BaseEvent
	Data PatientUpdatedData `json:"data"`
}

type PatientUpdatedData struct {
	PatientID     string    `json:"patient_id"`
	Action        string    `json:"action"`
	ChangedFields []string  `json:"changed_fields"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PatientCompletedEvent fires when a record transitions into completed
type PatientCompletedEvent struct {
	BaseEvent
	Data PatientCompletedData `json:"data"`
}

type PatientCompletedData struct {
	PatientID      string   `json:"patient_id"`
	Services       []string `json:"services"`
	CompletionDate string   `json:"completion_date"`
	CompletionTime string   `json:"completion_time"`
}

// PatientDeletedEvent represents a soft or permanent removal
type PatientDeletedEvent struct {
	BaseEvent
	Data PatientDeletedData `json:"data"`
}

type PatientDeletedData struct {
	PatientID string    `json:"patient_id"`
	Permanent bool      `json:"permanent"`
	DeletedAt time.Time `json:"deleted_at"`
}

// PatientRestoredEvent represents a soft-deleted record being brought back
type PatientRestoredEvent struct {
	BaseEvent
	Data PatientRestoredData `json:"data"`
}

type PatientRestoredData struct {
	PatientID  string    `json:"patient_id"`
	Status     string    `json:"status"`
	RestoredAt time.Time `json:"restored_at"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     fmt.Sprintf("%d", time.Now().UnixNano()),
		Timestamp:   time.Now().UTC(), // Explicitly set to UTC
		ServiceName: "health-camp-service",
	}
}

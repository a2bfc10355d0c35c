package patient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPatientNotFound is returned when no record matches the requested ID.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrInvalidID is returned when the supplied ID is not a valid UUID.
	ErrInvalidID = errors.New("invalid patient ID")

	// ErrDuplicatePhone is returned when another live record already has
	// the same telephone number.
	ErrDuplicatePhone = errors.New("a patient with this telephone number already exists")

	// ErrRecordDeleted is returned when a write targets a soft-deleted record.
	ErrRecordDeleted = errors.New("patient record has been deleted")

	// ErrNotDeleted is returned when restore targets a record that is not
	// soft-deleted.
	ErrNotDeleted = errors.New("patient record is not deleted")

	// ErrStoreUnavailable is returned when the datastore cannot be reached.
	ErrStoreUnavailable = errors.New("datastore unavailable")
)

// FieldViolation describes a single rejected field.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field violation found in a request body,
// so the client sees all problems at once instead of one per round trip.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a violation for field.
func (e *ValidationError) Add(field, message string) {
	e.Violations = append(e.Violations, FieldViolation{Field: field, Message: message})
}

// HasViolations reports whether any violations were recorded.
func (e *ValidationError) HasViolations() bool {
	return len(e.Violations) > 0
}

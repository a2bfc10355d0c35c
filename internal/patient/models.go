package patient

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// PatientRecord is the stored patient document. Wire names are camelCase
// because the campaign's existing clients were built against that shape.
type PatientRecord struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Age              int        `json:"age"`
	Sex              string     `json:"sex"`
	Occupation       string     `json:"occupation"`
	Tel              string     `json:"tel"`
	TelDigits        string     `json:"-"`
	FamilyGroup      string     `json:"familyGroup"`
	Services         []string   `json:"services"`
	Status           string     `json:"status"`
	Diagnosis        string     `json:"diagnosis"`
	TreatmentPlan    string     `json:"treatmentPlan"`
	LabTests         []string   `json:"labTests"`
	RegistrationDate string     `json:"registrationDate"`
	RegistrationTime string     `json:"registrationTime"`
	CompletionDate   *string    `json:"completionDate,omitempty"`
	CompletionTime   *string    `json:"completionTime,omitempty"`
	IsDeleted        bool       `json:"isDeleted"`
	DeletedAt        *time.Time `json:"deletedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastModified     time.Time  `json:"lastModified"`
}

// FlexInt decodes a JSON field that older clients send as either a number
// or a numeric string ("34"). Decoding never fails; the validator inspects
// Present/Valid so a bad age is reported alongside the other field errors
// instead of aborting the whole body decode.
type FlexInt struct {
	Value   int
	Present bool
	Valid   bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	f.Present = true
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	if n, err := strconv.Atoi(s); err == nil {
		f.Value = n
		f.Valid = true
		return nil
	}
	// Some clients serialize ages as floats (34.0).
	if fl, err := strconv.ParseFloat(s, 64); err == nil && fl == math.Trunc(fl) {
		f.Value = int(fl)
		f.Valid = true
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Present || !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// CreatePatientRequest represents the request to register a new patient.
// Service (singular) is the legacy field older clients still send; the
// normalizer folds it into Services.
type CreatePatientRequest struct {
	Name          string   `json:"name"`
	Age           FlexInt  `json:"age"`
	Sex           string   `json:"sex"`
	Occupation    string   `json:"occupation"`
	Tel           string   `json:"tel"`
	FamilyGroup   string   `json:"familyGroup"`
	Service       string   `json:"service,omitempty"`
	Services      []string `json:"services,omitempty"`
	Diagnosis     string   `json:"diagnosis,omitempty"`
	TreatmentPlan string   `json:"treatmentPlan,omitempty"`
	LabTests      []string `json:"labTests,omitempty"`
}

// UpdatePatientRequest represents a partial update. Nil fields are left
// untouched on the stored record.
type UpdatePatientRequest struct {
	Name          *string  `json:"name,omitempty"`
	Age           *FlexInt `json:"age,omitempty"`
	Sex           *string  `json:"sex,omitempty"`
	Occupation    *string  `json:"occupation,omitempty"`
	Tel           *string  `json:"tel,omitempty"`
	FamilyGroup   *string  `json:"familyGroup,omitempty"`
	Service       *string  `json:"service,omitempty"`
	Services      []string `json:"services,omitempty"`
	Status        *string  `json:"status,omitempty"`
	Diagnosis     *string  `json:"diagnosis,omitempty"`
	TreatmentPlan *string  `json:"treatmentPlan,omitempty"`
	LabTests      []string `json:"labTests,omitempty"`
}

// FieldChange records one field's before/after values in an audit entry.
type FieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

// HistoryEntry is one append-only audit record for a patient.
type HistoryEntry struct {
	ID          int64                  `json:"-"`
	PatientID   string                 `json:"-"`
	Action      string                 `json:"action"`
	Timestamp   time.Time              `json:"timestamp"`
	Changes     map[string]FieldChange `json:"changes,omitempty"`
	RequestedBy string                 `json:"requestedBy,omitempty"`
}

// BulkRequest represents a batch operation. Targets come from IDs when
// given, otherwise from Filter.
type BulkRequest struct {
	Operation  string                `json:"operation"`
	IDs        []string              `json:"ids,omitempty"`
	Filter     *Filter               `json:"filter,omitempty"`
	UpdateData *UpdatePatientRequest `json:"updateData,omitempty"`
}

// UpdateResult pairs the updated record with the names of the fields that
// actually changed.
type UpdateResult struct {
	Patient       *PatientRecord
	ChangedFields []string
}

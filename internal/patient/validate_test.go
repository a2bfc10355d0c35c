package patient

import (
	"encoding/json"
	"strings"
	"testing"
)

func validCreateRequest() CreatePatientRequest {
	return CreatePatientRequest{
		Name:        "Jane Doe",
		Age:         FlexInt{Value: 30, Present: true, Valid: true},
		Sex:         "Female",
		Tel:         "677 123 456",
		FamilyGroup: "ESDA",
		Services:    []string{"General consultations"},
	}
}

func violationFor(ve *ValidationError, field string) string {
	if ve == nil {
		return ""
	}
	for _, v := range ve.Violations {
		if v.Field == field {
			return v.Message
		}
	}
	return ""
}

func TestValidateCreate_ValidPayload(t *testing.T) {
	v := NewValidator(DefaultCatalog())

	req := validCreateRequest()
	if ve := v.ValidateCreate(&req); ve != nil {
		t.Fatalf("Expected no violations, got: %v", ve)
	}
}

func TestValidateCreate_CollectsAllViolations(t *testing.T) {
	v := NewValidator(DefaultCatalog())

	req := CreatePatientRequest{
		Name:        "J",
		Age:         FlexInt{Present: true, Valid: true, Value: 200},
		Sex:         "Other",
		Tel:         "123",
		FamilyGroup: "NOPE",
	}

	ve := v.ValidateCreate(&req)
	if ve == nil {
		t.Fatal("Expected violations, got none")
	}

	for _, field := range []string{"name", "age", "sex", "tel", "familyGroup"} {
		if violationFor(ve, field) == "" {
			t.Errorf("Expected a violation for %s, got none (have: %v)", field, ve.Violations)
		}
	}
}

func TestValidateCreate_NameRules(t *testing.T) {
	v := NewValidator(DefaultCatalog())

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "John Doe", false},
		{"apostrophe and hyphen", "Marie-Claire O'Neil", false},
		{"dot", "Jr. Smith", false},
		{"too short", "A", true},
		{"digits", "John 2", true},
		{"empty", "   ", true},
		{"too long", strings.Repeat("a", 101), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			req.Name = tt.input

			ve := v.ValidateCreate(&req)
			got := violationFor(ve, "name") != ""
			if got != tt.wantErr {
				t.Errorf("name %q: violation=%v, want %v", tt.input, got, tt.wantErr)
			}
		})
	}
}

func TestValidateCreate_NameWhitespaceCollapsed(t *testing.T) {
	v := NewValidator(DefaultCatalog())

	req := validCreateRequest()
	req.Name = "  Jane   Doe "

	if ve := v.ValidateCreate(&req); ve != nil {
		t.Fatalf("Expected no violations, got: %v", ve)
	}
	if req.Name != "Jane Doe" {
		t.Errorf("Expected collapsed name, got %q", req.Name)
	}
}

func TestValidateCreate_TelDigitCount(t *testing.T) {
	v := NewValidator(DefaultCatalog())

	tests := []struct {
		name    string
		tel     string
		wantErr bool
	}{
		{"plain digits", "67712345", false},
		{"formatted", "(677) 12-34-56", false},
		{"fifteen digits", "123456789012345", false},
		{"seven digits", "6771234", true},
		{"sixteen digits", "1234567890123456", true},
		{"punctuation only adds no digits", "677-12", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			req.Tel = tt.tel

			ve := v.ValidateCreate(&req)
			got := violationFor(ve, "tel") != ""
			if got != tt.wantErr {
				t.Errorf("tel %q: violation=%v, want %v", tt.tel, got, tt.wantErr)
			}
		})
	}
}

func TestValidateCreate_LabTests(t *testing.T) {
	v := NewValidator(DefaultCatalog())

	req := validCreateRequest()
	req.LabTests = []string{"Malaria", "HIV"}
	if ve := v.ValidateCreate(&req); ve != nil {
		t.Fatalf("Expected no violations, got: %v", ve)
	}

	req = validCreateRequest()
	req.LabTests = []string{"Malaria", "Palm reading"}
	ve := v.ValidateCreate(&req)
	msg := violationFor(ve, "labTests")
	if msg == "" {
		t.Fatal("Expected labTests violation")
	}
	if !strings.Contains(msg, "Palm reading") {
		t.Errorf("Expected invalid value named in message, got %q", msg)
	}
}

func TestValidateUpdate_OnlyPresentFields(t *testing.T) {
	v := NewValidator(DefaultCatalog())

	// An empty update is valid; absent fields are not checked.
	req := UpdatePatientRequest{}
	if ve := v.ValidateUpdate(&req); ve != nil {
		t.Fatalf("Expected no violations for empty update, got: %v", ve)
	}

	// A present-but-blank required field is a violation, not a clear.
	blank := "  "
	req = UpdatePatientRequest{Name: &blank}
	ve := v.ValidateUpdate(&req)
	if violationFor(ve, "name") == "" {
		t.Error("Expected violation for blank name on update")
	}
}

func TestValidateUpdate_StatusRules(t *testing.T) {
	v := NewValidator(DefaultCatalog())

	for _, status := range []string{StatusRegistered, StatusCompleted, StatusCancelled} {
		s := status
		req := UpdatePatientRequest{Status: &s}
		if ve := v.ValidateUpdate(&req); ve != nil {
			t.Errorf("Expected status %q to be accepted, got: %v", status, ve)
		}
	}

	// deleted only moves through the delete operation.
	s := StatusDeleted
	req := UpdatePatientRequest{Status: &s}
	if ve := v.ValidateUpdate(&req); violationFor(ve, "status") == "" {
		t.Error("Expected violation for status=deleted via update")
	}
}

func TestFlexInt_Decoding(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantValue int
		wantValid bool
	}{
		{"number", `{"age": 34}`, 34, true},
		{"numeric string", `{"age": "34"}`, 34, true},
		{"float integral", `{"age": 34.0}`, 34, true},
		{"non-numeric string", `{"age": "abc"}`, 0, false},
		{"fractional", `{"age": 34.5}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var payload struct {
				Age FlexInt `json:"age"`
			}
			if err := json.Unmarshal([]byte(tt.json), &payload); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !payload.Age.Present {
				t.Error("Expected Present=true")
			}
			if payload.Age.Valid != tt.wantValid {
				t.Errorf("Valid=%v, want %v", payload.Age.Valid, tt.wantValid)
			}
			if payload.Age.Valid && payload.Age.Value != tt.wantValue {
				t.Errorf("Value=%d, want %d", payload.Age.Value, tt.wantValue)
			}
		})
	}

	var payload struct {
		Age FlexInt `json:"age"`
	}
	if err := json.Unmarshal([]byte(`{}`), &payload); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if payload.Age.Present {
		t.Error("Expected Present=false for absent field")
	}
}

func TestTelDigits(t *testing.T) {
	if got := TelDigits("+237 (677) 12-34-56"); got != "237677123456" {
		t.Errorf("TelDigits = %q, want 237677123456", got)
	}
	if got := TelDigits("no digits here"); got != "" {
		t.Errorf("TelDigits = %q, want empty", got)
	}
}

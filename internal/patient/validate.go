package patient

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	nameMinLen       = 2
	nameMaxLen       = 100
	occupationMaxLen = 100
	freeTextMaxLen   = 2000
	telMinDigits     = 8
	telMaxDigits     = 15
	ageMin           = 0
	ageMax           = 150
)

var (
	nameRe     = regexp.MustCompile(`^[A-Za-z .'-]+$`)
	nonDigitRe = regexp.MustCompile(`\D`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// CollapseWhitespace trims s and squeezes internal whitespace runs down to
// a single space.
func CollapseWhitespace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// TelDigits strips every non-digit character from a telephone number.
// Length and uniqueness checks run on the digit form, so spacing and
// punctuation in the raw value do not matter.
func TelDigits(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// Validator checks patient payloads against the campaign field rules.
// Violations are collected rather than short-circuited so a single
// response can report every bad field. Validation also sanitizes string
// fields in place (trim, collapse whitespace) so callers persist the
// cleaned values.
type Validator struct {
	catalog *Catalog
}

func NewValidator(catalog *Catalog) *Validator {
	return &Validator{catalog: catalog}
}

// ValidateCreate checks every field of a registration payload except the
// service set, which the normalizer owns. Returns nil when the payload is
// clean.
func (v *Validator) ValidateCreate(req *CreatePatientRequest) *ValidationError {
	ve := &ValidationError{}

	req.Name = v.checkName(req.Name, ve)
	v.checkAge(req.Age, ve)
	req.Sex = v.checkSex(req.Sex, ve)
	req.Occupation = v.checkOccupation(req.Occupation, ve)
	req.Tel = v.checkTel(req.Tel, ve)
	req.FamilyGroup = v.checkFamilyGroup(req.FamilyGroup, ve)
	req.Diagnosis = v.checkFreeText("diagnosis", req.Diagnosis, ve)
	req.TreatmentPlan = v.checkFreeText("treatmentPlan", req.TreatmentPlan, ve)
	req.LabTests = v.checkLabTests(req.LabTests, ve)

	if ve.HasViolations() {
		return ve
	}
	return nil
}

// ValidateUpdate checks only the fields present in a partial update.
// Present fields obey the same rules as on create; a required field sent
// as blank is a violation, not a clear.
func (v *Validator) ValidateUpdate(req *UpdatePatientRequest) *ValidationError {
	ve := &ValidationError{}

	if req.Name != nil {
		*req.Name = v.checkName(*req.Name, ve)
	}
	if req.Age != nil {
		v.checkAge(*req.Age, ve)
	}
	if req.Sex != nil {
		*req.Sex = v.checkSex(*req.Sex, ve)
	}
	if req.Occupation != nil {
		*req.Occupation = v.checkOccupation(*req.Occupation, ve)
	}
	if req.Tel != nil {
		*req.Tel = v.checkTel(*req.Tel, ve)
	}
	if req.FamilyGroup != nil {
		*req.FamilyGroup = v.checkFamilyGroup(*req.FamilyGroup, ve)
	}
	if req.Status != nil {
		*req.Status = v.checkStatus(*req.Status, ve)
	}
	if req.Diagnosis != nil {
		*req.Diagnosis = v.checkFreeText("diagnosis", *req.Diagnosis, ve)
	}
	if req.TreatmentPlan != nil {
		*req.TreatmentPlan = v.checkFreeText("treatmentPlan", *req.TreatmentPlan, ve)
	}
	if req.LabTests != nil {
		req.LabTests = v.checkLabTests(req.LabTests, ve)
	}

	if ve.HasViolations() {
		return ve
	}
	return nil
}

func (v *Validator) checkName(name string, ve *ValidationError) string {
	name = CollapseWhitespace(name)
	if name == "" {
		ve.Add("name", "name is required")
		return name
	}
	if n := utf8.RuneCountInString(name); n < nameMinLen || n > nameMaxLen {
		ve.Add("name", fmt.Sprintf("name must be between %d and %d characters", nameMinLen, nameMaxLen))
		return name
	}
	if !nameRe.MatchString(name) {
		ve.Add("name", "name may only contain letters, spaces, hyphens, dots and apostrophes")
	}
	return name
}

func (v *Validator) checkAge(age FlexInt, ve *ValidationError) {
	if !age.Present {
		ve.Add("age", "age is required")
		return
	}
	if !age.Valid {
		ve.Add("age", "age must be a whole number")
		return
	}
	if age.Value < ageMin || age.Value > ageMax {
		ve.Add("age", fmt.Sprintf("age must be between %d and %d", ageMin, ageMax))
	}
}

func (v *Validator) checkSex(sex string, ve *ValidationError) string {
	sex = strings.TrimSpace(sex)
	if sex == "" {
		ve.Add("sex", "sex is required")
		return sex
	}
	if sex != "Male" && sex != "Female" {
		ve.Add("sex", "sex must be either Male or Female")
	}
	return sex
}

func (v *Validator) checkOccupation(occupation string, ve *ValidationError) string {
	occupation = CollapseWhitespace(occupation)
	if utf8.RuneCountInString(occupation) > occupationMaxLen {
		ve.Add("occupation", fmt.Sprintf("occupation must be at most %d characters", occupationMaxLen))
	}
	return occupation
}

func (v *Validator) checkTel(tel string, ve *ValidationError) string {
	tel = CollapseWhitespace(tel)
	if tel == "" {
		ve.Add("tel", "tel is required")
		return tel
	}
	if n := len(TelDigits(tel)); n < telMinDigits || n > telMaxDigits {
		ve.Add("tel", fmt.Sprintf("tel must contain between %d and %d digits", telMinDigits, telMaxDigits))
	}
	return tel
}

func (v *Validator) checkFamilyGroup(group string, ve *ValidationError) string {
	group = strings.TrimSpace(group)
	if group == "" {
		ve.Add("familyGroup", "familyGroup is required")
		return group
	}
	if !v.catalog.ValidFamilyGroup(group) {
		ve.Add("familyGroup", "familyGroup must be one of: "+strings.Join(v.catalog.FamilyGroups, ", "))
	}
	return group
}

func (v *Validator) checkStatus(status string, ve *ValidationError) string {
	status = strings.TrimSpace(status)
	switch status {
	case StatusRegistered, StatusCompleted, StatusCancelled:
		return status
	}
	// StatusDeleted is reachable through the delete operation only.
	ve.Add("status", fmt.Sprintf("status must be one of: %s, %s, %s",
		StatusRegistered, StatusCompleted, StatusCancelled))
	return status
}

func (v *Validator) checkFreeText(field, text string, ve *ValidationError) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > freeTextMaxLen {
		ve.Add(field, fmt.Sprintf("%s must be at most %d characters", field, freeTextMaxLen))
	}
	return text
}

func (v *Validator) checkLabTests(tests []string, ve *ValidationError) []string {
	cleaned := dedupeNonBlank(tests)
	var invalid []string
	for _, t := range cleaned {
		if !v.catalog.ValidLabTest(t) {
			invalid = append(invalid, t)
		}
	}
	if len(invalid) > 0 {
		ve.Add("labTests", fmt.Sprintf("labTests contains invalid values: %s. Valid lab tests are: %s",
			strings.Join(invalid, ", "), strings.Join(v.catalog.LabTests, ", ")))
	}
	return cleaned
}

package patient

import "time"

// Record status values. Deleted is entered through the delete operation
// only, never through an ordinary status update.
const (
	StatusRegistered = "registered"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusDeleted    = "deleted"
)

// Audit history actions.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCompleted = "completed"
	ActionCancelled = "cancelled"
	ActionDeleted   = "deleted"
)

// Registration and completion stamps are stored as plain date and clock
// strings, matching what the campaign's report tooling consumes.
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// applyUpdate copies the present fields of req onto rec and runs the
// status transition rules. Completion stamps are written the first time
// the record enters completed and never cleared afterwards. Returns the
// audit action for the mutation: "completed" when the record transitions
// into completed, "updated" for everything else.
func applyUpdate(rec *PatientRecord, req *UpdatePatientRequest, services []string, now time.Time) string {
	if req.Name != nil {
		rec.Name = *req.Name
	}
	if req.Age != nil && req.Age.Valid {
		rec.Age = req.Age.Value
	}
	if req.Sex != nil {
		rec.Sex = *req.Sex
	}
	if req.Occupation != nil {
		rec.Occupation = *req.Occupation
	}
	if req.Tel != nil {
		rec.Tel = *req.Tel
		rec.TelDigits = TelDigits(*req.Tel)
	}
	if req.FamilyGroup != nil {
		rec.FamilyGroup = *req.FamilyGroup
	}
	if services != nil {
		rec.Services = services
	}
	if req.Diagnosis != nil {
		rec.Diagnosis = *req.Diagnosis
	}
	if req.TreatmentPlan != nil {
		rec.TreatmentPlan = *req.TreatmentPlan
	}
	if req.LabTests != nil {
		rec.LabTests = req.LabTests
	}

	action := ActionUpdated
	if req.Status != nil {
		entering := *req.Status == StatusCompleted && rec.Status != StatusCompleted
		rec.Status = *req.Status
		if entering {
			action = ActionCompleted
		}
		if *req.Status == StatusCompleted && rec.CompletionDate == nil {
			d := now.Format(dateLayout)
			t := now.Format(timeLayout)
			rec.CompletionDate = &d
			rec.CompletionTime = &t
		}
	}

	rec.LastModified = now
	return action
}

// diffRecords compares the mutable fields of two record snapshots and
// returns the per-field before/after map for the audit entry. Slices are
// compared element-wise. Returns nil when nothing changed.
func diffRecords(before, after *PatientRecord) map[string]FieldChange {
	changes := make(map[string]FieldChange)

	if before.Name != after.Name {
		changes["name"] = FieldChange{From: before.Name, To: after.Name}
	}
	if before.Age != after.Age {
		changes["age"] = FieldChange{From: before.Age, To: after.Age}
	}
	if before.Sex != after.Sex {
		changes["sex"] = FieldChange{From: before.Sex, To: after.Sex}
	}
	if before.Occupation != after.Occupation {
		changes["occupation"] = FieldChange{From: before.Occupation, To: after.Occupation}
	}
	if before.Tel != after.Tel {
		changes["tel"] = FieldChange{From: before.Tel, To: after.Tel}
	}
	if before.FamilyGroup != after.FamilyGroup {
		changes["familyGroup"] = FieldChange{From: before.FamilyGroup, To: after.FamilyGroup}
	}
	if !equalStringSlices(before.Services, after.Services) {
		changes["services"] = FieldChange{From: copyStrings(before.Services), To: copyStrings(after.Services)}
	}
	if before.Status != after.Status {
		changes["status"] = FieldChange{From: before.Status, To: after.Status}
	}
	if before.Diagnosis != after.Diagnosis {
		changes["diagnosis"] = FieldChange{From: before.Diagnosis, To: after.Diagnosis}
	}
	if before.TreatmentPlan != after.TreatmentPlan {
		changes["treatmentPlan"] = FieldChange{From: before.TreatmentPlan, To: after.TreatmentPlan}
	}
	if !equalStringSlices(before.LabTests, after.LabTests) {
		changes["labTests"] = FieldChange{From: copyStrings(before.LabTests), To: copyStrings(after.LabTests)}
	}
	if !equalStringPtrs(before.CompletionDate, after.CompletionDate) {
		changes["completionDate"] = FieldChange{From: strOrNil(before.CompletionDate), To: strOrNil(after.CompletionDate)}
	}
	if !equalStringPtrs(before.CompletionTime, after.CompletionTime) {
		changes["completionTime"] = FieldChange{From: strOrNil(before.CompletionTime), To: strOrNil(after.CompletionTime)}
	}
	if before.IsDeleted != after.IsDeleted {
		changes["isDeleted"] = FieldChange{From: before.IsDeleted, To: after.IsDeleted}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStringPtrs(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func strOrNil(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

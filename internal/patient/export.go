package patient

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// exportColumns is the fixed CSV column order the campaign's report
// tooling expects.
var exportColumns = []string{
	"ID", "Name", "Age", "Sex", "Occupation", "Tel", "Family Group",
	"Services", "Status", "Diagnosis", "Treatment Plan", "Lab Tests",
	"Registration Date", "Registration Time", "Completion Date", "Completion Time",
}

// WriteCSV renders records in the fixed export column order. Quoting and
// escaping follow encoding/csv, so names containing commas or quotes
// survive a re-import intact. Multi-valued fields are joined with "; ".
func WriteCSV(w io.Writer, records []PatientRecord) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range records {
		if err := cw.Write(exportRow(&records[i])); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func exportRow(rec *PatientRecord) []string {
	return []string{
		rec.ID,
		rec.Name,
		strconv.Itoa(rec.Age),
		rec.Sex,
		rec.Occupation,
		rec.Tel,
		rec.FamilyGroup,
		strings.Join(rec.Services, "; "),
		rec.Status,
		rec.Diagnosis,
		rec.TreatmentPlan,
		strings.Join(rec.LabTests, "; "),
		rec.RegistrationDate,
		rec.RegistrationTime,
		strOrEmpty(rec.CompletionDate),
		strOrEmpty(rec.CompletionTime),
	}
}

// ExportFilename builds the timestamped attachment name for a download.
func ExportFilename(format string, now time.Time) string {
	return fmt.Sprintf("patients_export_%s.%s", now.Format("2006-01-02_150405"), format)
}

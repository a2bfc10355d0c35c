package patient

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"
)

// patientColumns is the canonical select list; scanPatient expects
// exactly this order.
const patientColumns = `id, name, age, sex, occupation, tel, tel_digits, family_group, services, status, diagnosis, treatment_plan, lab_tests, registration_date, registration_time, completion_date, completion_time, is_deleted, deleted_at, created_at, last_modified`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPatient(row rowScanner) (*PatientRecord, error) {
	var rec PatientRecord
	var completionDate sql.NullString
	var completionTime sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Age,
		&rec.Sex,
		&rec.Occupation,
		&rec.Tel,
		&rec.TelDigits,
		&rec.FamilyGroup,
		pq.Array(&rec.Services),
		&rec.Status,
		&rec.Diagnosis,
		&rec.TreatmentPlan,
		pq.Array(&rec.LabTests),
		&rec.RegistrationDate,
		&rec.RegistrationTime,
		&completionDate,
		&completionTime,
		&rec.IsDeleted,
		&deletedAt,
		&rec.CreatedAt,
		&rec.LastModified,
	)
	if err != nil {
		return nil, err
	}

	if completionDate.Valid {
		rec.CompletionDate = &completionDate.String
	}
	if completionTime.Valid {
		rec.CompletionTime = &completionTime.String
	}
	if deletedAt.Valid {
		rec.DeletedAt = &deletedAt.Time
	}

	return &rec, nil
}

// classifyStoreErr maps driver-level failures onto the package error
// taxonomy. Unique violations on the live-phone index become
// ErrDuplicatePhone; connection-level failures become ErrStoreUnavailable
// so callers can answer with retryable semantics.
func classifyStoreErr(op string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicatePhone
	}
	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func (r *Repository) Create(ctx context.Context, rec *PatientRecord) error {
	query := `
		INSERT INTO patients
		(id, name, age, sex, occupation, tel, tel_digits, family_group, services, status, diagnosis, treatment_plan, lab_tests, registration_date, registration_time, completion_date, completion_time, is_deleted, deleted_at, created_at, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Name,
		rec.Age,
		rec.Sex,
		rec.Occupation,
		rec.Tel,
		rec.TelDigits,
		rec.FamilyGroup,
		pq.Array(rec.Services),
		rec.Status,
		rec.Diagnosis,
		rec.TreatmentPlan,
		pq.Array(rec.LabTests),
		rec.RegistrationDate,
		rec.RegistrationTime,
		rec.CompletionDate,
		rec.CompletionTime,
		rec.IsDeleted,
		rec.DeletedAt,
		rec.CreatedAt,
		rec.LastModified,
	)
	if err != nil {
		return classifyStoreErr("insert patient", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string, includeDeleted bool) (*PatientRecord, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}

	rec, err := scanPatient(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, classifyStoreErr("query patient", err)
	}
	return rec, nil
}

// Update persists the full mutable state of rec. The service layer owns
// field merging and transition rules; the row is written as given.
func (r *Repository) Update(ctx context.Context, rec *PatientRecord) error {
	query := `
		UPDATE patients
		SET name = $1, age = $2, sex = $3, occupation = $4, tel = $5, tel_digits = $6, family_group = $7, services = $8, status = $9, diagnosis = $10, treatment_plan = $11, lab_tests = $12, completion_date = $13, completion_time = $14, is_deleted = $15, deleted_at = $16, last_modified = $17
		WHERE id = $18
	`

	result, err := r.db.ExecContext(ctx, query,
		rec.Name,
		rec.Age,
		rec.Sex,
		rec.Occupation,
		rec.Tel,
		rec.TelDigits,
		rec.FamilyGroup,
		pq.Array(rec.Services),
		rec.Status,
		rec.Diagnosis,
		rec.TreatmentPlan,
		pq.Array(rec.LabTests),
		rec.CompletionDate,
		rec.CompletionTime,
		rec.IsDeleted,
		rec.DeletedAt,
		rec.LastModified,
		rec.ID,
	)
	if err != nil {
		return classifyStoreErr("update patient", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// PermanentDelete removes the record and, through the cascade, its
// history. It works on live and soft-deleted records alike.
func (r *Repository) PermanentDelete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return classifyStoreErr("delete patient", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]PatientRecord, int, error) {
	where, args, err := f.predicate()
	if err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM patients ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, classifyStoreErr("count patients", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM patients %s %s LIMIT $%d OFFSET $%d`,
		patientColumns, where, orderClause(f.Sort), len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	records, err := r.queryPatients(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ListAll returns every record matching the filter, for export.
func (r *Repository) ListAll(ctx context.Context, f Filter) ([]PatientRecord, error) {
	where, args, err := f.predicate()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM patients %s %s`,
		patientColumns, where, orderClause(f.Sort))
	return r.queryPatients(ctx, query, args...)
}

func (r *Repository) Search(ctx context.Context, f Filter, limit int) ([]PatientRecord, error) {
	where, args, err := f.predicate()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM patients %s ORDER BY created_at DESC LIMIT $%d`,
		patientColumns, where, len(args)+1)
	args = append(args, limit)

	return r.queryPatients(ctx, query, args...)
}

// IDsMatching resolves a filter into the matching record IDs, for bulk
// requests expressed as a filter instead of an explicit ID list.
func (r *Repository) IDsMatching(ctx context.Context, f Filter) ([]string, error) {
	where, args, err := f.predicate()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id FROM patients `+where, args...)
	if err != nil {
		return nil, classifyStoreErr("query patient ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan patient id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient ids: %w", err)
	}
	return ids, nil
}

// BulkSoftDelete flags every live record in ids as deleted and returns
// the IDs actually affected; already-deleted records are left alone.
func (r *Repository) BulkSoftDelete(ctx context.Context, ids []string, now time.Time) ([]string, error) {
	query := `
		UPDATE patients
		SET is_deleted = TRUE, deleted_at = $2, status = $3, last_modified = $2
		WHERE id = ANY($1::uuid[]) AND NOT is_deleted
		RETURNING id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids), now, StatusDeleted)
	if err != nil {
		return nil, classifyStoreErr("bulk delete patients", err)
	}
	defer rows.Close()

	var affected []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan patient id: %w", err)
		}
		affected = append(affected, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient ids: %w", err)
	}
	return affected, nil
}

// BulkPermanentDelete removes the given records outright, returning the
// IDs actually deleted so callers can report and announce each one.
func (r *Repository) BulkPermanentDelete(ctx context.Context, ids []string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM patients WHERE id = ANY($1::uuid[]) RETURNING id`, pq.Array(ids))
	if err != nil {
		return nil, classifyStoreErr("bulk delete patients", err)
	}
	defer rows.Close()

	var affected []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan patient id: %w", err)
		}
		affected = append(affected, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patient ids: %w", err)
	}
	return affected, nil
}

func (r *Repository) InsertHistory(ctx context.Context, entry *HistoryEntry) error {
	var changes interface{}
	if entry.Changes != nil {
		b, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("failed to encode history changes: %w", err)
		}
		changes = b
	}

	query := `
		INSERT INTO patient_history (patient_id, action, occurred_at, changes, requested_by)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, entry.PatientID, entry.Action, entry.Timestamp, changes, entry.RequestedBy)
	if err != nil {
		return classifyStoreErr("insert history entry", err)
	}
	return nil
}

func (r *Repository) ListHistory(ctx context.Context, patientID string) ([]HistoryEntry, error) {
	query := `
		SELECT id, patient_id, action, occurred_at, changes, requested_by
		FROM patient_history
		WHERE patient_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, patientID)
	if err != nil {
		return nil, classifyStoreErr("query patient history", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var changes []byte

		err := rows.Scan(&entry.ID, &entry.PatientID, &entry.Action, &entry.Timestamp, &changes, &entry.RequestedBy)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &entry.Changes); err != nil {
				return nil, fmt.Errorf("failed to decode history changes: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history entries: %w", err)
	}
	return entries, nil
}

// ExpiredDeleted returns the soft-deleted records whose deleted_at is
// older than cutoff, oldest first. The cleanup job purges these.
func (r *Repository) ExpiredDeleted(ctx context.Context, cutoff time.Time) ([]PatientRecord, error) {
	query := `SELECT ` + patientColumns + `
		FROM patients
		WHERE is_deleted AND deleted_at IS NOT NULL AND deleted_at < $1
		ORDER BY deleted_at ASC`

	return r.queryPatients(ctx, query, cutoff)
}

func (r *Repository) CountExpiredDeleted(ctx context.Context, cutoff time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM patients WHERE is_deleted AND deleted_at IS NOT NULL AND deleted_at < $1`
	if err := r.db.QueryRowContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, classifyStoreErr("count expired patients", err)
	}
	return count, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (r *Repository) queryPatients(ctx context.Context, query string, args ...interface{}) ([]PatientRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classifyStoreErr("query patients", err)
	}
	defer rows.Close()

	var patients []PatientRecord
	for rows.Next() {
		rec, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, *rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}
	return patients, nil
}

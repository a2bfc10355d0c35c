//go:build integration

package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Agafina/health-camp/internal/testutil"
)

func seedRecord(t *testing.T, repo *Repository, mutate func(*PatientRecord)) *PatientRecord {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	rec := &PatientRecord{
		ID:               uuid.NewString(),
		Name:             "Jane Doe",
		Age:              30,
		Sex:              "Female",
		Tel:              "677123456",
		TelDigits:        "677123456",
		FamilyGroup:      "ESDA",
		Services:         []string{"General consultations"},
		Status:           StatusRegistered,
		RegistrationDate: now.Format(dateLayout),
		RegistrationTime: now.Format(timeLayout),
		CreatedAt:        now,
		LastModified:     now,
	}
	if mutate != nil {
		mutate(rec)
	}

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Failed to seed record: %v", err)
	}
	return rec
}

func TestRepositoryCreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	rec := seedRecord(t, repo, func(r *PatientRecord) {
		r.Services = []string{"Dental consultation", "Eye consultation"}
		r.LabTests = []string{"Malaria"}
		r.Diagnosis = "Seasonal allergy"
	})

	got, err := repo.GetByID(ctx, rec.ID, false)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != rec.Name || got.TelDigits != rec.TelDigits {
		t.Errorf("Round-tripped record mismatch: %+v", got)
	}
	if len(got.Services) != 2 || got.Services[0] != "Dental consultation" {
		t.Errorf("Array round trip failed: %v", got.Services)
	}
	if len(got.LabTests) != 1 || got.LabTests[0] != "Malaria" {
		t.Errorf("Lab tests round trip failed: %v", got.LabTests)
	}
	if got.CompletionDate != nil || got.DeletedAt != nil {
		t.Error("Expected nil completion and deletion fields")
	}
}

func TestRepositoryDuplicateTelDigits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seedRecord(t, repo, nil)

	dup := &PatientRecord{
		ID:               uuid.NewString(),
		Name:             "John Smith",
		Age:              41,
		Sex:              "Male",
		Tel:              "(677) 123-456",
		TelDigits:        "677123456",
		FamilyGroup:      "MASUDA",
		Services:         []string{"Dental consultation"},
		Status:           StatusRegistered,
		RegistrationDate: time.Now().Format(dateLayout),
		RegistrationTime: time.Now().Format(timeLayout),
		CreatedAt:        time.Now(),
		LastModified:     time.Now(),
	}

	err := repo.Create(ctx, dup)
	if !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("Expected ErrDuplicatePhone, got %v", err)
	}
}

func TestRepositoryDuplicateAllowedAfterSoftDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	first := seedRecord(t, repo, nil)

	// Soft delete frees the number for re-registration.
	now := time.Now()
	first.IsDeleted = true
	first.DeletedAt = &now
	first.Status = StatusDeleted
	first.LastModified = now
	if err := repo.Update(ctx, first); err != nil {
		t.Fatalf("Soft delete update failed: %v", err)
	}

	second := seedRecord(t, repo, func(r *PatientRecord) {
		r.Name = "John Smith"
	})

	// Restoring the first record now trips the live index again.
	first.IsDeleted = false
	first.DeletedAt = nil
	first.Status = StatusRegistered
	if err := repo.Update(ctx, first); !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("Expected ErrDuplicatePhone on restore, got %v", err)
	}

	if _, err := repo.GetByID(ctx, second.ID, false); err != nil {
		t.Errorf("Second registration should stay readable: %v", err)
	}
}

func TestRepositoryListFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seedRecord(t, repo, func(r *PatientRecord) {
		r.Services = []string{"Dental consultation"}
	})
	seedRecord(t, repo, func(r *PatientRecord) {
		r.Name = "John Smith"
		r.Tel = "690001122"
		r.TelDigits = "690001122"
		r.FamilyGroup = "MASUDA"
		r.Services = []string{"Gynaecology"}
		r.Status = StatusCompleted
	})
	deleted := seedRecord(t, repo, func(r *PatientRecord) {
		r.Tel = "699887766"
		r.TelDigits = "699887766"
	})

	now := time.Now()
	deleted.IsDeleted = true
	deleted.DeletedAt = &now
	deleted.Status = StatusDeleted
	if err := repo.Update(ctx, deleted); err != nil {
		t.Fatalf("Soft delete failed: %v", err)
	}

	records, total, err := repo.List(ctx, Filter{}, 20, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 || len(records) != 2 {
		t.Errorf("Default list must exclude deleted: total=%d len=%d", total, len(records))
	}

	records, total, err = repo.List(ctx, Filter{Status: StatusCompleted}, 20, 0)
	if err != nil {
		t.Fatalf("List by status failed: %v", err)
	}
	if total != 1 || records[0].Name != "John Smith" {
		t.Errorf("Status filter mismatch: total=%d", total)
	}

	records, _, err = repo.List(ctx, Filter{Service: "Dental consultation"}, 20, 0)
	if err != nil {
		t.Fatalf("List by service failed: %v", err)
	}
	if len(records) != 1 || records[0].Services[0] != "Dental consultation" {
		t.Errorf("Service filter mismatch: %v", records)
	}

	records, _, err = repo.List(ctx, Filter{OnlyDeleted: true}, 20, 0)
	if err != nil {
		t.Fatalf("List deleted failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != deleted.ID {
		t.Errorf("OnlyDeleted filter mismatch: %v", records)
	}
}

func TestRepositorySearchByNameAndDigits(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seedRecord(t, repo, nil)
	seedRecord(t, repo, func(r *PatientRecord) {
		r.Name = "John Smith"
		r.Tel = "690-001-122"
		r.TelDigits = "690001122"
	})

	records, err := repo.Search(ctx, Filter{Search: "doe"}, 10)
	if err != nil {
		t.Fatalf("Search by name failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "Jane Doe" {
		t.Errorf("Case-insensitive name search failed: %v", records)
	}

	// Punctuation in the query must not defeat the digit match.
	records, err = repo.Search(ctx, Filter{Search: "690 001"}, 10)
	if err != nil {
		t.Fatalf("Search by digits failed: %v", err)
	}
	if len(records) != 1 || records[0].Name != "John Smith" {
		t.Errorf("Digit search failed: %v", records)
	}
}

func TestRepositoryBulkSoftDeleteSkipsDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	live := seedRecord(t, repo, nil)
	gone := seedRecord(t, repo, func(r *PatientRecord) {
		r.Tel = "690001122"
		r.TelDigits = "690001122"
	})

	now := time.Now()
	gone.IsDeleted = true
	gone.DeletedAt = &now
	gone.Status = StatusDeleted
	if err := repo.Update(ctx, gone); err != nil {
		t.Fatalf("Soft delete failed: %v", err)
	}

	affected, err := repo.BulkSoftDelete(ctx, []string{live.ID, gone.ID}, time.Now())
	if err != nil {
		t.Fatalf("BulkSoftDelete failed: %v", err)
	}
	if len(affected) != 1 || affected[0] != live.ID {
		t.Errorf("Expected only the live record affected, got %v", affected)
	}
}

func TestRepositoryHistoryRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	rec := seedRecord(t, repo, nil)

	first := &HistoryEntry{
		PatientID:   rec.ID,
		Action:      ActionCreated,
		Timestamp:   time.Now().Add(-time.Minute),
		RequestedBy: "clerk.a",
	}
	second := &HistoryEntry{
		PatientID: rec.ID,
		Action:    ActionUpdated,
		Timestamp: time.Now(),
		Changes:   map[string]FieldChange{"occupation": {From: "", To: "Farmer"}},
	}

	if err := repo.InsertHistory(ctx, first); err != nil {
		t.Fatalf("InsertHistory failed: %v", err)
	}
	if err := repo.InsertHistory(ctx, second); err != nil {
		t.Fatalf("InsertHistory failed: %v", err)
	}

	entries, err := repo.ListHistory(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != ActionCreated || entries[1].Action != ActionUpdated {
		t.Errorf("Expected chronological order, got %s then %s", entries[0].Action, entries[1].Action)
	}
	change, ok := entries[1].Changes["occupation"]
	if !ok || change.To != "Farmer" {
		t.Errorf("Changes JSON round trip failed: %+v", entries[1].Changes)
	}

	// Permanent delete cascades into history.
	if err := repo.PermanentDelete(ctx, rec.ID); err != nil {
		t.Fatalf("PermanentDelete failed: %v", err)
	}
	entries, err = repo.ListHistory(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListHistory after delete failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected history cascade, got %v", entries)
	}
}

func TestRepositoryExpiredDeleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	old := seedRecord(t, repo, nil)
	fresh := seedRecord(t, repo, func(r *PatientRecord) {
		r.Tel = "690001122"
		r.TelDigits = "690001122"
	})

	oldStamp := time.Now().AddDate(0, 0, -120)
	old.IsDeleted = true
	old.DeletedAt = &oldStamp
	old.Status = StatusDeleted
	if err := repo.Update(ctx, old); err != nil {
		t.Fatalf("Soft delete failed: %v", err)
	}

	freshStamp := time.Now()
	fresh.IsDeleted = true
	fresh.DeletedAt = &freshStamp
	fresh.Status = StatusDeleted
	if err := repo.Update(ctx, fresh); err != nil {
		t.Fatalf("Soft delete failed: %v", err)
	}

	cutoff := time.Now().AddDate(0, 0, -90)

	count, err := repo.CountExpiredDeleted(ctx, cutoff)
	if err != nil {
		t.Fatalf("CountExpiredDeleted failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 expired record, got %d", count)
	}

	expired, err := repo.ExpiredDeleted(ctx, cutoff)
	if err != nil {
		t.Fatalf("ExpiredDeleted failed: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != old.ID {
		t.Errorf("Expected the old record only, got %v", expired)
	}
}

func TestRepositoryStatsQueries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)
	repo := NewRepository(db)
	ctx := context.Background()

	seedRecord(t, repo, func(r *PatientRecord) {
		r.Services = []string{"Dental consultation", "Gynaecology"}
	})
	seedRecord(t, repo, func(r *PatientRecord) {
		r.Name = "John Smith"
		r.Tel = "690001122"
		r.TelDigits = "690001122"
		r.FamilyGroup = "MASUDA"
		r.Services = []string{"Gynaecology"}
		r.Status = StatusCompleted
	})

	counts, err := repo.CountSummary(ctx, time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("CountSummary failed: %v", err)
	}
	if counts.Total != 2 || counts.Active != 2 || counts.Completed != 1 || counts.Pending != 1 {
		t.Errorf("Unexpected counts: %+v", counts)
	}

	dist, err := repo.ServiceDistribution(ctx, false)
	if err != nil {
		t.Fatalf("ServiceDistribution failed: %v", err)
	}
	byService := map[string]int{}
	for _, d := range dist {
		byService[d.Service] = d.Count
	}
	if byService["Gynaecology"] != 2 || byService["Dental consultation"] != 1 {
		t.Errorf("Unexpected service distribution: %v", dist)
	}

	groups, err := repo.FamilyGroupDistribution(ctx, false)
	if err != nil {
		t.Fatalf("FamilyGroupDistribution failed: %v", err)
	}
	if len(groups) != 2 {
		t.Errorf("Expected 2 family groups, got %v", groups)
	}

	trend, err := repo.RegistrationTrend(ctx, time.Now().AddDate(0, 0, -7), false)
	if err != nil {
		t.Fatalf("RegistrationTrend failed: %v", err)
	}
	if len(trend) != 1 || trend[0].Count != 2 {
		t.Errorf("Unexpected registration trend: %v", trend)
	}
}

package testutil

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

// SetupTestDB connects to the local healthcamp_test database. Integration
// tests call this; they are skipped when TEST_DATABASE_URL is unset and
// the default local database is unreachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		connStr = "host=localhost port=5432 user=postgres password=postgres dbname=healthcamp_test sslmode=disable"
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("Test database unavailable: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// CleanupPatients truncates the patient tables so each integration test
// starts from an empty population.
func CleanupPatients(t *testing.T, db *sql.DB) {
	t.Helper()

	if _, err := db.Exec("TRUNCATE TABLE patient_history, patients CASCADE"); err != nil {
		t.Fatalf("Failed to clean up patient tables: %v", err)
	}
}

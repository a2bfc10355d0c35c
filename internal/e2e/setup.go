//go:build integration

package e2e

import (
	"database/sql"
	"net/http/httptest"
	"testing"

	httpserver "github.com/Agafina/health-camp/internal/http"
	"github.com/Agafina/health-camp/internal/patient"
	"github.com/Agafina/health-camp/internal/testutil"
)

// TestServer is a complete end-to-end environment: real Postgres, real
// router and handlers, in-memory event publisher.
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	Client        *testutil.HTTPTestClient
}

// SetupE2ETest wires the full patient stack against the test database.
// The schema must already exist (run the migrate binary against
// healthcamp_test first).
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.CleanupPatients(t, db)

	mockPublisher := testutil.NewMockPublisher()

	repo := patient.NewRepository(db)
	service := patient.NewService(repo, mockPublisher, patient.DefaultCatalog())
	handler := patient.NewHandler(service, nil)

	server := httptest.NewServer(httpserver.SetupRouter("health-camp-test", handler, nil))
	t.Cleanup(server.Close)

	return &TestServer{
		Server:        server,
		DB:            db,
		MockPublisher: mockPublisher,
		Client:        testutil.NewHTTPTestClient(server.URL),
	}
}

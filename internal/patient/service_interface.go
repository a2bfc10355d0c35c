package patient

import (
	"context"

	"github.com/Agafina/health-camp/internal/pagination"
)

// ServiceInterface defines the contract for patient business logic operations
type ServiceInterface interface {
	CreatePatient(ctx context.Context, req CreatePatientRequest, requestedBy string) (*PatientRecord, error)
	GetPatient(ctx context.Context, id string, includeDeleted bool) (*PatientRecord, error)
	UpdatePatient(ctx context.Context, id string, req UpdatePatientRequest, requestedBy string) (*UpdateResult, error)
	DeletePatient(ctx context.Context, id string, permanent bool, requestedBy string) (*PatientRecord, error)
	RestorePatient(ctx context.Context, id string, requestedBy string) (*PatientRecord, error)
	ListPatients(ctx context.Context, f Filter, params pagination.Params) ([]PatientRecord, pagination.Meta, error)
	ListDeletedPatients(ctx context.Context, params pagination.Params) ([]PatientRecord, pagination.Meta, error)
	SearchPatients(ctx context.Context, f Filter, limit int) ([]PatientRecord, error)
	GetPatientHistory(ctx context.Context, id string) ([]HistoryEntry, error)
	BulkOperation(ctx context.Context, req BulkRequest, requestedBy string) (int, error)
	ExportPatients(ctx context.Context, f Filter) ([]PatientRecord, error)
	GetStatistics(ctx context.Context, periodDays int, includeDeleted bool) (*Stats, error)
	HealthCounts(ctx context.Context) (*CountSummary, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

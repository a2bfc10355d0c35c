package patient

import (
	"context"
	"time"
)

// RepositoryInterface defines the contract for patient data access
type RepositoryInterface interface {
	Create(ctx context.Context, rec *PatientRecord) error
	GetByID(ctx context.Context, id string, includeDeleted bool) (*PatientRecord, error)
	Update(ctx context.Context, rec *PatientRecord) error
	PermanentDelete(ctx context.Context, id string) error
	List(ctx context.Context, f Filter, limit, offset int) ([]PatientRecord, int, error)
	ListAll(ctx context.Context, f Filter) ([]PatientRecord, error)
	Search(ctx context.Context, f Filter, limit int) ([]PatientRecord, error)
	IDsMatching(ctx context.Context, f Filter) ([]string, error)
	BulkSoftDelete(ctx context.Context, ids []string, now time.Time) ([]string, error)
	BulkPermanentDelete(ctx context.Context, ids []string) ([]string, error)
	InsertHistory(ctx context.Context, entry *HistoryEntry) error
	ListHistory(ctx context.Context, patientID string) ([]HistoryEntry, error)
	CountSummary(ctx context.Context, recentSince time.Time) (*CountSummary, error)
	ServiceDistribution(ctx context.Context, includeDeleted bool) ([]ServiceCount, error)
	FamilyGroupDistribution(ctx context.Context, includeDeleted bool) ([]GroupCount, error)
	RegistrationTrend(ctx context.Context, since time.Time, includeDeleted bool) ([]TrendPoint, error)
	CompletionTrend(ctx context.Context, sinceDate string, includeDeleted bool) ([]TrendPoint, error)
	ExpiredDeleted(ctx context.Context, cutoff time.Time) ([]PatientRecord, error)
	CountExpiredDeleted(ctx context.Context, cutoff time.Time) (int, error)
	Ping(ctx context.Context) error
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)

package patient

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Agafina/health-camp/internal/messaging"
	"github.com/Agafina/health-camp/internal/pagination"
)

// Bulk operation names accepted on the wire.
const (
	BulkOpDelete          = "delete"
	BulkOpPermanentDelete = "permanentDelete"
	BulkOpRestore         = "restore"
	BulkOpUpdate          = "update"
	BulkOpComplete        = "complete"
)

const (
	// SearchResultCap bounds the search endpoint independently of the
	// paginated listing.
	SearchResultCap = 50

	defaultStatsPeriodDays = 30
	maxStatsPeriodDays     = 365
	recentWindowDays       = 7
)

type Service struct {
	repo      RepositoryInterface
	publisher messaging.PublisherInterface
	catalog   *Catalog
	validator *Validator
}

func NewService(repo RepositoryInterface, publisher messaging.PublisherInterface, catalog *Catalog) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		catalog:   catalog,
		validator: NewValidator(catalog),
	}
}

func (s *Service) CreatePatient(ctx context.Context, req CreatePatientRequest, requestedBy string) (*PatientRecord, error) {
	ve := s.validator.ValidateCreate(&req)
	if ve == nil {
		ve = &ValidationError{}
	}
	services, violations := NormalizeServices(s.catalog, req.Services, req.Service)
	ve.Violations = append(ve.Violations, violations...)
	if ve.HasViolations() {
		return nil, ve
	}

	now := time.Now()
	rec := &PatientRecord{
		ID:               uuid.New().String(),
		Name:             req.Name,
		Age:              req.Age.Value,
		Sex:              req.Sex,
		Occupation:       req.Occupation,
		Tel:              req.Tel,
		TelDigits:        TelDigits(req.Tel),
		FamilyGroup:      req.FamilyGroup,
		Services:         services,
		Status:           StatusRegistered,
		Diagnosis:        req.Diagnosis,
		TreatmentPlan:    req.TreatmentPlan,
		LabTests:         req.LabTests,
		RegistrationDate: now.Format(dateLayout),
		RegistrationTime: now.Format(timeLayout),
		CreatedAt:        now,
		LastModified:     now,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.appendHistory(ctx, &HistoryEntry{
		PatientID:   rec.ID,
		Action:      ActionCreated,
		Timestamp:   now,
		RequestedBy: requestedBy,
	})

	s.publish(ctx, messaging.EventPatientCreated, messaging.PatientCreatedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientCreated),
		Data: messaging.PatientCreatedData{
			PatientID:    rec.ID,
			Name:         rec.Name,
			FamilyGroup:  rec.FamilyGroup,
			Services:     rec.Services,
			Status:       rec.Status,
			RegisteredAt: rec.CreatedAt,
		},
	})

	return rec, nil
}

func (s *Service) GetPatient(ctx context.Context, id string, includeDeleted bool) (*PatientRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	return s.repo.GetByID(ctx, id, includeDeleted)
}

func (s *Service) UpdatePatient(ctx context.Context, id string, req UpdatePatientRequest, requestedBy string) (*UpdateResult, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	existing, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if existing.IsDeleted {
		return nil, ErrRecordDeleted
	}

	services, ve := s.validateUpdate(&req)
	if ve != nil {
		return nil, ve
	}

	updated, _, changes, err := s.mutateRecord(ctx, existing, &req, services, requestedBy)
	if err != nil {
		return nil, err
	}

	return &UpdateResult{Patient: updated, ChangedFields: changeKeys(changes)}, nil
}

// validateUpdate runs the field checks and, when the payload touches the
// service fields, the normalizer. The returned slice is nil when services
// are untouched.
func (s *Service) validateUpdate(req *UpdatePatientRequest) ([]string, *ValidationError) {
	ve := s.validator.ValidateUpdate(req)
	if ve == nil {
		ve = &ValidationError{}
	}

	var services []string
	if req.Services != nil || req.Service != nil {
		singular := ""
		if req.Service != nil {
			singular = *req.Service
		}
		var violations []FieldViolation
		services, violations = NormalizeServices(s.catalog, req.Services, singular)
		ve.Violations = append(ve.Violations, violations...)
	}

	if ve.HasViolations() {
		return nil, ve
	}
	return services, nil
}

// mutateRecord applies an already-validated update to a live record:
// merge, persist, append history, publish. Shared by the single update
// path and the per-record bulk loop, so every mutation carries its event.
func (s *Service) mutateRecord(ctx context.Context, existing *PatientRecord, req *UpdatePatientRequest, services []string, requestedBy string) (*PatientRecord, string, map[string]FieldChange, error) {
	now := time.Now()
	updated := *existing
	action := applyUpdate(&updated, req, services, now)

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, "", nil, err
	}

	changes := diffRecords(existing, &updated)
	s.appendHistory(ctx, &HistoryEntry{
		PatientID:   updated.ID,
		Action:      action,
		Timestamp:   now,
		Changes:     changes,
		RequestedBy: requestedBy,
	})

	if action == ActionCompleted {
		s.publish(ctx, messaging.EventPatientCompleted, messaging.PatientCompletedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventPatientCompleted),
			Data: messaging.PatientCompletedData{
				PatientID:      updated.ID,
				Services:       updated.Services,
				CompletionDate: strOrEmpty(updated.CompletionDate),
				CompletionTime: strOrEmpty(updated.CompletionTime),
			},
		})
	} else {
		s.publish(ctx, messaging.EventPatientUpdated, messaging.PatientUpdatedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventPatientUpdated),
			Data: messaging.PatientUpdatedData{
				PatientID:     updated.ID,
				Action:        action,
				ChangedFields: changeKeys(changes),
				Status:        updated.Status,
				UpdatedAt:     updated.LastModified,
			},
		})
	}

	return &updated, action, changes, nil
}

func (s *Service) DeletePatient(ctx context.Context, id string, permanent bool, requestedBy string) (*PatientRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	existing, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if permanent {
		if err := s.repo.PermanentDelete(ctx, id); err != nil {
			return nil, err
		}
		s.publish(ctx, messaging.EventPatientDeleted, messaging.PatientDeletedEvent{
			BaseEvent: messaging.NewBaseEvent(messaging.EventPatientDeleted),
			Data:      messaging.PatientDeletedData{PatientID: id, Permanent: true, DeletedAt: now},
		})
		return existing, nil
	}

	if existing.IsDeleted {
		return nil, ErrRecordDeleted
	}

	updated := *existing
	updated.IsDeleted = true
	updated.DeletedAt = &now
	updated.Status = StatusDeleted
	updated.LastModified = now

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.appendHistory(ctx, &HistoryEntry{
		PatientID:   id,
		Action:      ActionDeleted,
		Timestamp:   now,
		Changes:     diffRecords(existing, &updated),
		RequestedBy: requestedBy,
	})

	s.publish(ctx, messaging.EventPatientDeleted, messaging.PatientDeletedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientDeleted),
		Data:      messaging.PatientDeletedData{PatientID: id, Permanent: false, DeletedAt: now},
	})

	return &updated, nil
}

func (s *Service) RestorePatient(ctx context.Context, id string, requestedBy string) (*PatientRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}

	existing, err := s.repo.GetByID(ctx, id, true)
	if err != nil {
		return nil, err
	}

	return s.restoreRecord(ctx, existing, requestedBy)
}

// restoreRecord brings a soft-deleted record back to registered, with its
// history entry and patient.restored event. The unique live-phone index
// can reject the restore when another live record has taken the number in
// the meantime; that surfaces as ErrDuplicatePhone.
func (s *Service) restoreRecord(ctx context.Context, existing *PatientRecord, requestedBy string) (*PatientRecord, error) {
	if !existing.IsDeleted {
		return nil, ErrNotDeleted
	}

	now := time.Now()
	updated := *existing
	updated.IsDeleted = false
	updated.DeletedAt = nil
	updated.Status = StatusRegistered
	updated.LastModified = now

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	s.appendHistory(ctx, &HistoryEntry{
		PatientID:   updated.ID,
		Action:      ActionUpdated,
		Timestamp:   now,
		Changes:     diffRecords(existing, &updated),
		RequestedBy: requestedBy,
	})

	s.publish(ctx, messaging.EventPatientRestored, messaging.PatientRestoredEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventPatientRestored),
		Data: messaging.PatientRestoredData{
			PatientID:  updated.ID,
			Status:     updated.Status,
			RestoredAt: updated.LastModified,
		},
	})

	return &updated, nil
}

func (s *Service) ListPatients(ctx context.Context, f Filter, params pagination.Params) ([]PatientRecord, pagination.Meta, error) {
	params.Validate()
	f = f.withCanonicalService(s.catalog)

	records, total, err := s.repo.List(ctx, f, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return records, params.CalculateMeta(total), nil
}

func (s *Service) ListDeletedPatients(ctx context.Context, params pagination.Params) ([]PatientRecord, pagination.Meta, error) {
	params.Validate()

	f := Filter{OnlyDeleted: true}
	records, total, err := s.repo.List(ctx, f, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	return records, params.CalculateMeta(total), nil
}

func (s *Service) SearchPatients(ctx context.Context, f Filter, limit int) ([]PatientRecord, error) {
	if limit <= 0 || limit > SearchResultCap {
		limit = SearchResultCap
	}
	f = f.withCanonicalService(s.catalog)
	return s.repo.Search(ctx, f, limit)
}

func (s *Service) GetPatientHistory(ctx context.Context, id string) ([]HistoryEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidID
	}
	// History stays readable while a record is soft-deleted.
	if _, err := s.repo.GetByID(ctx, id, true); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, id)
}

func (s *Service) BulkOperation(ctx context.Context, req BulkRequest, requestedBy string) (int, error) {
	switch req.Operation {
	case BulkOpDelete, BulkOpPermanentDelete, BulkOpRestore, BulkOpUpdate, BulkOpComplete:
	default:
		return 0, &ValidationError{Violations: []FieldViolation{{
			Field: "operation",
			Message: "operation must be one of: " + BulkOpDelete + ", " + BulkOpPermanentDelete +
				", " + BulkOpRestore + ", " + BulkOpUpdate + ", " + BulkOpComplete,
		}}}
	}

	ids, err := s.resolveBulkTargets(ctx, req)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now()

	switch req.Operation {
	case BulkOpDelete:
		affected, err := s.repo.BulkSoftDelete(ctx, ids, now)
		if err != nil {
			return 0, err
		}
		for _, id := range affected {
			s.appendHistory(ctx, &HistoryEntry{
				PatientID:   id,
				Action:      ActionDeleted,
				Timestamp:   now,
				RequestedBy: requestedBy,
			})
			s.publish(ctx, messaging.EventPatientDeleted, messaging.PatientDeletedEvent{
				BaseEvent: messaging.NewBaseEvent(messaging.EventPatientDeleted),
				Data:      messaging.PatientDeletedData{PatientID: id, Permanent: false, DeletedAt: now},
			})
		}
		return len(affected), nil

	case BulkOpPermanentDelete:
		affected, err := s.repo.BulkPermanentDelete(ctx, ids)
		if err != nil {
			return 0, err
		}
		for _, id := range affected {
			s.publish(ctx, messaging.EventPatientDeleted, messaging.PatientDeletedEvent{
				BaseEvent: messaging.NewBaseEvent(messaging.EventPatientDeleted),
				Data:      messaging.PatientDeletedData{PatientID: id, Permanent: true, DeletedAt: now},
			})
		}
		return len(affected), nil

	case BulkOpRestore:
		count := 0
		for _, id := range ids {
			existing, err := s.repo.GetByID(ctx, id, true)
			if err != nil {
				continue
			}
			if _, err := s.restoreRecord(ctx, existing, requestedBy); err != nil {
				continue
			}
			count++
		}
		return count, nil

	case BulkOpUpdate, BulkOpComplete:
		update := req.UpdateData
		if req.Operation == BulkOpComplete {
			status := StatusCompleted
			update = &UpdatePatientRequest{Status: &status}
		}
		if update == nil {
			return 0, &ValidationError{Violations: []FieldViolation{{
				Field: "updateData", Message: "updateData is required for the update operation",
			}}}
		}

		services, ve := s.validateUpdate(update)
		if ve != nil {
			return 0, ve
		}

		count := 0
		for _, id := range ids {
			existing, err := s.repo.GetByID(ctx, id, true)
			if err != nil || existing.IsDeleted {
				continue
			}
			// Bulk complete only moves records that are still registered.
			if req.Operation == BulkOpComplete && existing.Status != StatusRegistered {
				continue
			}
			reqCopy := *update
			if _, _, _, err := s.mutateRecord(ctx, existing, &reqCopy, services, requestedBy); err != nil {
				continue
			}
			count++
		}
		return count, nil
	}

	return 0, nil
}

// resolveBulkTargets turns a bulk request into concrete record IDs.
// Malformed IDs are dropped rather than failing the batch.
func (s *Service) resolveBulkTargets(ctx context.Context, req BulkRequest) ([]string, error) {
	if len(req.IDs) > 0 {
		var ids []string
		for _, id := range req.IDs {
			if _, err := uuid.Parse(id); err == nil {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	if req.Filter == nil {
		return nil, &ValidationError{Violations: []FieldViolation{{
			Field: "ids", Message: "ids or filter is required",
		}}}
	}

	f := req.Filter.withCanonicalService(s.catalog)
	if req.Operation == BulkOpRestore {
		// Restoring targets the soft-deleted set by definition.
		f.OnlyDeleted = true
	}
	return s.repo.IDsMatching(ctx, f)
}

func (s *Service) ExportPatients(ctx context.Context, f Filter) ([]PatientRecord, error) {
	f = f.withCanonicalService(s.catalog)
	return s.repo.ListAll(ctx, f)
}

func (s *Service) GetStatistics(ctx context.Context, periodDays int, includeDeleted bool) (*Stats, error) {
	if periodDays <= 0 {
		periodDays = defaultStatsPeriodDays
	}
	if periodDays > maxStatsPeriodDays {
		periodDays = maxStatsPeriodDays
	}

	now := time.Now()

	counts, err := s.repo.CountSummary(ctx, now.AddDate(0, 0, -recentWindowDays))
	if err != nil {
		return nil, err
	}

	serviceDist, err := s.repo.ServiceDistribution(ctx, includeDeleted)
	if err != nil {
		return nil, err
	}

	groupDist, err := s.repo.FamilyGroupDistribution(ctx, includeDeleted)
	if err != nil {
		return nil, err
	}

	since := now.AddDate(0, 0, -periodDays)
	regTrend, err := s.repo.RegistrationTrend(ctx, since, includeDeleted)
	if err != nil {
		return nil, err
	}

	compTrend, err := s.repo.CompletionTrend(ctx, since.Format(dateLayout), includeDeleted)
	if err != nil {
		return nil, err
	}

	rate := 0
	if counts.Active > 0 {
		rate = int(math.Round(float64(counts.Completed) / float64(counts.Active) * 100))
	}

	return &Stats{
		Total:                   counts.Total,
		Active:                  counts.Active,
		Pending:                 counts.Pending,
		Completed:               counts.Completed,
		Deleted:                 counts.Deleted,
		CompletionRate:          rate,
		RecentRegistrations:     counts.Recent,
		ServiceDistribution:     serviceDist,
		FamilyGroupDistribution: groupDist,
		RegistrationTrend:       regTrend,
		CompletionTrend:         compTrend,
		PeriodDays:              periodDays,
	}, nil
}

func (s *Service) HealthCounts(ctx context.Context) (*CountSummary, error) {
	if err := s.repo.Ping(ctx); err != nil {
		return nil, err
	}
	return s.repo.CountSummary(ctx, time.Now().AddDate(0, 0, -recentWindowDays))
}

// appendHistory is best effort: an audit failure is logged, never allowed
// to fail the primary operation.
func (s *Service) appendHistory(ctx context.Context, entry *HistoryEntry) {
	if err := s.repo.InsertHistory(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("patient_id", entry.PatientID).
			Str("action", entry.Action).
			Msg("failed to append history entry")
	}
}

// publish is best effort as well; the record write already succeeded.
func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Error().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}

func changeKeys(changes map[string]FieldChange) []string {
	if len(changes) == 0 {
		return nil
	}
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

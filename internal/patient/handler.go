package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/Agafina/health-camp/internal/pagination"
	"github.com/Agafina/health-camp/internal/telemetry"
)

type Handler struct {
	service ServiceInterface
	metrics *telemetry.Metrics
	started time.Time
}

func NewHandler(service ServiceInterface, metrics *telemetry.Metrics) *Handler {
	return &Handler{
		service: service,
		metrics: metrics,
		started: time.Now(),
	}
}

type PatientSuccessResponse struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message,omitempty"`
	Patient       *PatientRecord `json:"patient,omitempty"`
	ChangedFields []string       `json:"changedFields,omitempty"`
}

type PatientListResponse struct {
	Success    bool            `json:"success"`
	Patients   []PatientRecord `json:"patients"`
	Pagination pagination.Meta `json:"pagination"`
}

type SearchResponse struct {
	Success  bool            `json:"success"`
	Patients []PatientRecord `json:"patients"`
	Count    int             `json:"count"`
}

type HistoryResponse struct {
	Success bool           `json:"success"`
	History []HistoryEntry `json:"history"`
	Count   int            `json:"count"`
}

type BulkResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Affected int    `json:"affected"`
}

type StatsResponse struct {
	Success bool   `json:"success"`
	Stats   *Stats `json:"stats"`
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.HealthCounts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"status":  "unhealthy",
			"error":   "service_unavailable",
			"message": "Datastore is unreachable",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"status":        "ok",
		"uptimeSeconds": int(time.Since(h.started).Seconds()),
		"counts":        counts,
	})
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	rec, err := h.service.CreatePatient(r.Context(), req, requesterFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.recordOperation(r.Context(), "create")
	respondJSON(w, http.StatusCreated, PatientSuccessResponse{
		Success: true,
		Message: "Patient registered successfully",
		Patient: rec,
	})
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	params := pagination.ParseParams(r)

	records, meta, err := h.service.ListPatients(r.Context(), filter, params)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PatientListResponse{
		Success:    true,
		Patients:   nonNilRecords(records),
		Pagination: meta,
	})
}

func (h *Handler) ListDeletedPatients(w http.ResponseWriter, r *http.Request) {
	params := pagination.ParseParams(r)

	records, meta, err := h.service.ListDeletedPatients(r.Context(), params)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PatientListResponse{
		Success:    true,
		Patients:   nonNilRecords(records),
		Pagination: meta,
	})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"

	rec, err := h.service.GetPatient(r.Context(), id, includeDeleted)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success: true,
		Patient: rec,
	})
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	result, err := h.service.UpdatePatient(r.Context(), id, req, requesterFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.recordOperation(r.Context(), "update")
	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success:       true,
		Message:       "Patient updated successfully",
		Patient:       result.Patient,
		ChangedFields: result.ChangedFields,
	})
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	permanent := r.URL.Query().Get("permanent") == "true"

	rec, err := h.service.DeletePatient(r.Context(), id, permanent, requesterFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	message := "Patient deleted successfully"
	operation := "delete"
	if permanent {
		message = "Patient permanently deleted"
		operation = "permanent_delete"
	}

	h.recordOperation(r.Context(), operation)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   message,
		"permanent": permanent,
		"patient": map[string]interface{}{
			"id":     rec.ID,
			"name":   rec.Name,
			"status": rec.Status,
		},
	})
}

func (h *Handler) RestorePatient(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.service.RestorePatient(r.Context(), id, requesterFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.recordOperation(r.Context(), "restore")
	respondJSON(w, http.StatusOK, PatientSuccessResponse{
		Success: true,
		Message: "Patient restored successfully",
		Patient: rec,
	})
}

func (h *Handler) GetPatientHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	history, err := h.service.GetPatientHistory(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if history == nil {
		history = []HistoryEntry{}
	}

	respondJSON(w, http.StatusOK, HistoryResponse{
		Success: true,
		History: history,
		Count:   len(history),
	})
}

func (h *Handler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Search query is required")
		return
	}

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	filter.Search = query

	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil {
			limit = n
		}
	}

	records, err := h.service.SearchPatients(r.Context(), filter, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SearchResponse{
		Success:  true,
		Patients: nonNilRecords(records),
		Count:    len(records),
	})
}

func (h *Handler) BulkOperation(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	affected, err := h.service.BulkOperation(r.Context(), req, requesterFrom(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.recordBulk(r.Context(), req.Operation, affected)
	respondJSON(w, http.StatusOK, BulkResponse{
		Success:  true,
		Message:  fmt.Sprintf("Bulk %s completed", req.Operation),
		Affected: affected,
	})
}

func (h *Handler) ExportPatients(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		respondError(w, http.StatusBadRequest, "validation_error", "format must be json or csv")
		return
	}

	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	records, err := h.service.ExportPatients(r.Context(), filter)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.recordExport(r.Context(), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, ExportFilename(format, time.Now())))

	if format == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		if err := WriteCSV(w, records); err != nil {
			log.Error().Err(err).Msg("failed to write CSV export")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nonNilRecords(records))
}

func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	period := 0
	if ps := strings.TrimSpace(r.URL.Query().Get("period")); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "validation_error", "period must be a number of days")
			return
		}
		period = n
	}
	includeDeleted := r.URL.Query().Get("includeDeleted") == "true"

	stats, err := h.service.GetStatistics(r.Context(), period, includeDeleted)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, StatsResponse{
		Success: true,
		Stats:   stats,
	})
}

// requesterFrom reads the optional requester tag clients attach to
// mutating calls; it lands in the audit history.
func requesterFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Requested-By"))
}

func (h *Handler) recordOperation(ctx context.Context, operation string) {
	if h.metrics != nil {
		h.metrics.RecordPatientOperation(ctx, operation)
	}
}

func (h *Handler) recordBulk(ctx context.Context, operation string, affected int) {
	if h.metrics != nil {
		h.metrics.RecordBulkOperation(ctx, operation, affected)
	}
}

func (h *Handler) recordExport(ctx context.Context, format string) {
	if h.metrics != nil {
		h.metrics.RecordExport(ctx, format)
	}
}

func nonNilRecords(records []PatientRecord) []PatientRecord {
	if records == nil {
		return []PatientRecord{}
	}
	return records
}

func respondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   errorType,
		"message": message,
	})
}

// respondServiceError translates the error taxonomy into the wire shape.
// Anything outside the taxonomy is logged with context and surfaced as a
// generic failure so store internals never leak to the caller.
func respondServiceError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success":    false,
			"error":      "validation_error",
			"message":    ve.Error(),
			"violations": ve.Violations,
		})
		return
	}

	switch {
	case errors.Is(err, ErrInvalidID):
		respondError(w, http.StatusBadRequest, "invalid_id", "Invalid patient ID")
	case errors.Is(err, ErrPatientNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Patient not found")
	case errors.Is(err, ErrDuplicatePhone):
		respondError(w, http.StatusConflict, "duplicate_phone", "A patient with this telephone number already exists")
	case errors.Is(err, ErrRecordDeleted):
		respondError(w, http.StatusGone, "record_deleted", "Patient record has been deleted; restore it first")
	case errors.Is(err, ErrNotDeleted):
		respondError(w, http.StatusBadRequest, "not_deleted", "Patient record is not deleted")
	case errors.Is(err, ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "Datastore is unavailable, please retry")
	default:
		log.Error().Err(err).Msg("unhandled service error")
		respondError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

package telemetry

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	PatientOperations metric.Int64Counter
	BulkAffected      metric.Int64Counter
	ExportsTotal      metric.Int64Counter
}

// InitMetrics initializes all custom metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/Agafina/health-camp")

	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	patientOperations, err := meter.Int64Counter(
		"patient_operations_total",
		metric.WithDescription("Total number of patient record operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	bulkAffected, err := meter.Int64Counter(
		"patient_bulk_affected_total",
		metric.WithDescription("Total number of patient records affected by bulk operations"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	exportsTotal, err := meter.Int64Counter(
		"patient_exports_total",
		metric.WithDescription("Total number of patient export downloads"),
		metric.WithUnit("{export}"),
	)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("custom metrics initialized")

	return &Metrics{
		HTTPRequestsTotal: httpRequestsTotal,
		HTTPDurationMs:    httpDurationMs,
		PatientOperations: patientOperations,
		BulkAffected:      bulkAffected,
		ExportsTotal:      exportsTotal,
	}, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordPatientOperation records a patient record operation metric
func (m *Metrics) RecordPatientOperation(ctx context.Context, operation string) {
	m.PatientOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordBulkOperation records the affected count of a bulk operation
func (m *Metrics) RecordBulkOperation(ctx context.Context, operation string, affected int) {
	m.BulkAffected.Add(ctx, int64(affected), metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordExport records an export download metric
func (m *Metrics) RecordExport(ctx context.Context, format string) {
	m.ExportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("format", format),
	))
}

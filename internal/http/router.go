package http

import (
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/Agafina/health-camp/internal/patient"
	"github.com/Agafina/health-camp/internal/telemetry"
)

// SetupRouter wires the patient API surface. Sub-resource routes are
// registered before the {id} routes so mux does not swallow them as IDs.
func SetupRouter(serviceName string, patientHandler *patient.Handler, metrics *telemetry.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	if metrics != nil {
		r.Use(MetricsMiddleware(metrics))
	}

	r.HandleFunc("/health", patientHandler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/patients", patientHandler.ListPatients).Methods("GET")
	api.HandleFunc("/patients", patientHandler.CreatePatient).Methods("POST")

	api.HandleFunc("/patients/deleted", patientHandler.ListDeletedPatients).Methods("GET")
	api.HandleFunc("/patients/search", patientHandler.SearchPatients).Methods("GET")
	api.HandleFunc("/patients/export", patientHandler.ExportPatients).Methods("GET")
	api.HandleFunc("/patients/stats", patientHandler.GetStatistics).Methods("GET")
	api.HandleFunc("/patients/bulk", patientHandler.BulkOperation).Methods("POST")

	api.HandleFunc("/patients/{id}", patientHandler.GetPatient).Methods("GET")
	api.HandleFunc("/patients/{id}", patientHandler.UpdatePatient).Methods("PUT")
	api.HandleFunc("/patients/{id}", patientHandler.DeletePatient).Methods("DELETE")
	api.HandleFunc("/patients/{id}/restore", patientHandler.RestorePatient).Methods("POST")
	api.HandleFunc("/patients/{id}/history", patientHandler.GetPatientHistory).Methods("GET")

	return r
}

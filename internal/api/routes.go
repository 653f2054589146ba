package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.HandleFunc("/metrics", handler.Metrics).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Manual triggers
	api.HandleFunc("/agent/run", handler.RunAgent).Methods("POST")
	api.HandleFunc("/daily/run", handler.RunDaily).Methods("POST")

	// Holdings
	api.HandleFunc("/holdings", handler.ListHoldings).Methods("GET")
	api.HandleFunc("/holdings", handler.CreateHolding).Methods("POST")
	api.HandleFunc("/holdings/{id:[0-9]+}", handler.DeleteHolding).Methods("DELETE")

	// Per-stock history
	api.HandleFunc("/stocks/{symbol}/snapshots", handler.ListSnapshots).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/alerts", handler.ListAlerts).Methods("GET")
	api.HandleFunc("/stocks/{symbol}/bullets", handler.ListBullets).Methods("GET")

	// Trigger rules
	api.HandleFunc("/rules/{symbol}", handler.GetRule).Methods("GET")
	api.HandleFunc("/rules/{symbol}", handler.UpdateRule).Methods("PATCH")

	api.HandleFunc("/daily/reports", handler.ListReports).Methods("GET")

	return r
}

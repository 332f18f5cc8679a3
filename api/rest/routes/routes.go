package routes

import (
	"video-orchestrator/api/rest/handlers"
	"video-orchestrator/core/costing"
	"video-orchestrator/core/download"
	"video-orchestrator/core/monitoring"
	"video-orchestrator/core/repository"
	"video-orchestrator/core/scheduler"

	"github.com/gorilla/mux"
)

// Deps carries everything the API surface needs. EventRepo, Spend and
// Watcher may be nil.
type Deps struct {
	Scheduler  *scheduler.Scheduler
	Downloads  *download.Manager
	Calculator *costing.Calculator
	EventRepo  *repository.EventRepository
	Spend      *monitoring.SpendTracker
	Watcher    *monitoring.BatchWatcher
}

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, deps Deps) {
	batchHandler := handlers.NewBatchHandler(deps.Scheduler, deps.Calculator, deps.Spend, deps.Watcher)
	jobHandler := handlers.NewJobHandler(deps.Scheduler, deps.EventRepo)
	costHandler := handlers.NewCostHandler(deps.Calculator)
	downloadHandler := handlers.NewDownloadHandler(deps.Downloads)

	api := r.PathPrefix("/v1").Subrouter()

	// Batch endpoints
	api.HandleFunc("/batches", batchHandler.SubmitBatch).Methods("POST")
	api.HandleFunc("/batches/{id}", batchHandler.GetBatch).Methods("GET")
	api.HandleFunc("/batches/{id}/cancel", batchHandler.CancelBatch).Methods("POST")

	// Job endpoints
	api.HandleFunc("/jobs/{id}", jobHandler.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/retry", jobHandler.RetryJob).Methods("POST")
	api.HandleFunc("/jobs/{id}/attempts", jobHandler.GetJobAttempts).Methods("GET")
	api.HandleFunc("/jobs/{id}/events", jobHandler.GetJobEvents).Methods("GET")
	api.HandleFunc("/queue", jobHandler.GetQueue).Methods("GET")

	// Cost endpoints
	api.HandleFunc("/costs/estimate", costHandler.Estimate).Methods("POST")

	// Download endpoints
	api.HandleFunc("/downloads", downloadHandler.GetSummary).Methods("GET")
	api.HandleFunc("/downloads/status", downloadHandler.GetDownload).Methods("GET")
	api.HandleFunc("/downloads/retry", downloadHandler.RetryDownload).Methods("POST")
	api.HandleFunc("/downloads/expiring", downloadHandler.GetExpiring).Methods("GET")
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"video-orchestrator/core/models"
	"video-orchestrator/core/repository"
	"video-orchestrator/core/scheduler"

	"github.com/gorilla/mux"
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	scheduler *scheduler.Scheduler
	eventRepo *repository.EventRepository // optional
}

// NewJobHandler creates a new job handler. eventRepo may be nil when the
// orchestrator runs without a database.
func NewJobHandler(sched *scheduler.Scheduler, eventRepo *repository.EventRepository) *JobHandler {
	return &JobHandler{
		scheduler: sched,
		eventRepo: eventRepo,
	}
}

// JobResponse represents one generation job
type JobResponse struct {
	ID             string            `json:"id"`
	BatchID        string            `json:"batch_id"`
	Prompt         string            `json:"prompt"`
	Model          string            `json:"model"`
	Duration       int               `json:"duration_seconds"`
	AspectRatio    string            `json:"aspect_ratio"`
	Status         string            `json:"status"`
	Progress       *int              `json:"progress,omitempty"`
	ResultAssetRef *string           `json:"result_asset_ref,omitempty"`
	Error          *JobErrorResponse `json:"error,omitempty"`
	RetryCount     int               `json:"retry_count"`
	QueuedAt       time.Time         `json:"queued_at"`
	StartedAt      *time.Time        `json:"started_at,omitempty"`
	CompletedAt    *time.Time        `json:"completed_at,omitempty"`
}

// JobErrorResponse represents the failure detail of a job
type JobErrorResponse struct {
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	OccurredAt time.Time `json:"occurred_at"`
	Retryable  bool      `json:"retryable"`
}

func jobResponse(job models.GenerationJob) JobResponse {
	resp := JobResponse{
		ID:             job.ID,
		BatchID:        job.BatchID,
		Prompt:         job.Prompt,
		Model:          string(job.Model),
		Duration:       int(job.Duration),
		AspectRatio:    string(job.AspectRatio),
		Status:         string(job.Status),
		Progress:       job.Progress,
		ResultAssetRef: job.ResultAssetRef,
		RetryCount:     job.RetryCount,
		QueuedAt:       job.QueuedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
	}
	if job.ErrorInfo != nil {
		resp.Error = &JobErrorResponse{
			Category:   string(job.ErrorInfo.Category),
			Message:    job.ErrorInfo.Message,
			OccurredAt: job.ErrorInfo.OccurredAt,
			Retryable:  job.ErrorInfo.Retryable,
		}
	}
	return resp
}

// GetJob handles GET /v1/jobs/{id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.scheduler.GetStatus(jobID)
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobResponse(job))
}

// RetryJobRequest represents the request to retry a failed job
type RetryJobRequest struct {
	ModifiedPrompt string `json:"modified_prompt,omitempty"`
}

// RetryJob handles POST /v1/jobs/{id}/retry
func (h *JobHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	var req RetryJobRequest
	if r.Body != nil {
		// an empty body retries with the original prompt
		json.NewDecoder(r.Body).Decode(&req)
	}

	err := h.scheduler.RetryJob(jobID, req.ModifiedPrompt)
	switch {
	case errors.Is(err, scheduler.ErrJobNotFound):
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	case errors.Is(err, scheduler.ErrNotRetryable):
		http.Error(w, "Only failed jobs can be retried", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Failed to retry job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	job, err := h.scheduler.GetStatus(jobID)
	if err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobResponse(job))
}

// GetJobAttempts handles GET /v1/jobs/{id}/attempts
func (h *JobHandler) GetJobAttempts(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	if _, err := h.scheduler.GetStatus(jobID); err != nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	attempts := h.scheduler.GetRetryAttempts(jobID)
	items := make([]map[string]interface{}, len(attempts))
	for i, attempt := range attempts {
		item := map[string]interface{}{
			"attempt_number": attempt.AttemptNumber,
			"at":             attempt.Timestamp,
			"previous_error": attempt.PreviousErrorSummary,
			"outcome":        attempt.Outcome,
		}
		if attempt.ModifiedInput != "" {
			item["modified_input"] = attempt.ModifiedInput
		}
		items[i] = item
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// GetJobEvents handles GET /v1/jobs/{id}/events
func (h *JobHandler) GetJobEvents(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	if h.eventRepo == nil {
		http.Error(w, "Event history requires a database", http.StatusNotImplemented)
		return
	}

	events, err := h.eventRepo.GetJobEvents(r.Context(), jobID, 100)
	if err != nil {
		http.Error(w, "Failed to fetch events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]map[string]interface{}, len(events))
	for i, event := range events {
		item := map[string]interface{}{
			"at":        event.At,
			"to_status": event.ToStatus,
			"reason":    event.Reason,
		}
		if event.FromStatus != nil {
			item["from_status"] = *event.FromStatus
		}
		items[i] = item
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// GetQueue handles GET /v1/queue
func (h *JobHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	summary := h.scheduler.GetQueueSummary()

	queued := h.scheduler.GetQueuedJobs()
	queuedItems := make([]JobResponse, len(queued))
	for i, job := range queued {
		queuedItems[i] = jobResponse(job)
	}

	inProgress := h.scheduler.GetInProgressJobs()
	inProgressItems := make([]JobResponse, len(inProgress))
	for i, job := range inProgress {
		inProgressItems[i] = jobResponse(job)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"queued_count":      summary.QueuedCount,
		"in_progress_count": summary.InProgressCount,
		"completed_count":   summary.CompletedCount,
		"failed_count":      summary.FailedCount,
		"queued":            queuedItems,
		"in_progress":       inProgressItems,
	})
}

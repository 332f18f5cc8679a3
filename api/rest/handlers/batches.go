package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"video-orchestrator/core/costing"
	"video-orchestrator/core/models"
	"video-orchestrator/core/monitoring"
	"video-orchestrator/core/scheduler"
	"video-orchestrator/core/spec"

	"github.com/gorilla/mux"
)

// BatchHandler handles batch-related HTTP requests
type BatchHandler struct {
	scheduler  *scheduler.Scheduler
	calculator *costing.Calculator
	spend      *monitoring.SpendTracker // optional
	watcher    *monitoring.BatchWatcher // optional
}

// NewBatchHandler creates a new batch handler. spend and watcher may be nil.
func NewBatchHandler(sched *scheduler.Scheduler, calc *costing.Calculator, spend *monitoring.SpendTracker, watcher *monitoring.BatchWatcher) *BatchHandler {
	return &BatchHandler{
		scheduler:  sched,
		calculator: calc,
		spend:      spend,
		watcher:    watcher,
	}
}

// SubmitBatchRequest represents the request to submit a batch
type SubmitBatchRequest struct {
	Name     string `json:"name"`
	SpecYAML string `json:"spec_yaml"`
}

// SubmitBatchResponse represents the response after submitting a batch
type SubmitBatchResponse struct {
	BatchID          string    `json:"batch_id"`
	VideoCount       int       `json:"video_count"`
	EstimatedCostUSD float64   `json:"estimated_cost_usd"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// SubmitBatch handles POST /v1/batches
func (h *BatchHandler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	now := time.Now().UTC()
	jobs, err := spec.ParseBatchSpec(req.SpecYAML, now)
	if err != nil {
		http.Error(w, "Invalid batch spec: "+err.Error(), http.StatusBadRequest)
		return
	}

	// All jobs of one spec share a model; the matrix can still mix durations,
	// so the estimate sums per-duration sub-batches.
	estimate, err := h.estimateJobs(jobs)
	if err != nil {
		http.Error(w, "Failed to estimate cost: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.scheduler.SubmitBatch(r.Context(), jobs); err != nil {
		http.Error(w, "Failed to submit batch: "+err.Error(), http.StatusInternalServerError)
		return
	}

	batchID := jobs[0].BatchID
	if h.spend != nil {
		h.spend.SetEstimate(batchID, estimate)
	}
	if h.watcher != nil {
		h.watcher.Watch(batchID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SubmitBatchResponse{
		BatchID:          batchID,
		VideoCount:       len(jobs),
		EstimatedCostUSD: estimate.TotalBatchCost,
		SubmittedAt:      now,
	})
}

func (h *BatchHandler) estimateJobs(jobs []models.GenerationJob) (costing.CostResult, error) {
	type combo struct {
		model    models.VideoModel
		duration models.Duration
	}
	counts := make(map[combo]int)
	for _, job := range jobs {
		counts[combo{job.Model, job.Duration}]++
	}

	total := costing.CostResult{ProviderCosts: make(map[models.BillingAccount]float64)}
	first := true
	for c, n := range counts {
		result, err := h.calculator.BatchCost(c.model, c.duration, n)
		if err != nil {
			return costing.CostResult{}, err
		}
		// the research charge applies once per batch, not per combination
		if !first {
			result.ProviderCosts[models.AccountLLM] -= result.ResearchCharge
			result.TotalBatchCost -= result.ResearchCharge
			result.ResearchCharge = 0
		}
		first = false

		total.VideoCount += result.VideoCount
		total.ResearchCharge += result.ResearchCharge
		total.TotalBatchCost += result.TotalBatchCost
		for account, cost := range result.ProviderCosts {
			total.ProviderCosts[account] += cost
		}
	}
	return total, nil
}

// GetBatchResponse represents the aggregate view of one batch
type GetBatchResponse struct {
	BatchID              string  `json:"batch_id"`
	Status               string  `json:"status"`
	Total                int     `json:"total"`
	Queued               int     `json:"queued"`
	InProgress           int     `json:"in_progress"`
	Completed            int     `json:"completed"`
	Failed               int     `json:"failed"`
	ProgressPercentage   int     `json:"progress_percentage"`
	EstimatedCompletionS int     `json:"estimated_completion_seconds"`
	EstimatedCostUSD     float64 `json:"estimated_cost_usd,omitempty"`
	ActualCostUSD        float64 `json:"actual_cost_usd,omitempty"`
}

// GetBatch handles GET /v1/batches/{id}
func (h *BatchHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]

	summary := h.scheduler.GetBatchStatus(batchID)
	resp := GetBatchResponse{
		BatchID:              batchID,
		Status:               string(summary.Status),
		Total:                summary.Total,
		Queued:               summary.Queued,
		InProgress:           summary.InProgress,
		Completed:            summary.Completed,
		Failed:               summary.Failed,
		ProgressPercentage:   summary.ProgressPercentage,
		EstimatedCompletionS: int(summary.EstimatedCompletion.Seconds()),
	}

	if h.spend != nil {
		if spend, ok := h.spend.BatchSpend(batchID); ok {
			resp.EstimatedCostUSD = spend.EstimatedUSD
			resp.ActualCostUSD = spend.ActualUSD
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CancelBatch handles POST /v1/batches/{id}/cancel
func (h *BatchHandler) CancelBatch(w http.ResponseWriter, r *http.Request) {
	batchID := mux.Vars(r)["id"]

	h.scheduler.CancelBatch(batchID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"batch_id": batchID,
		"status":   "cancelled",
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"video-orchestrator/core/costing"
	"video-orchestrator/core/models"
)

// CostHandler handles cost estimation HTTP requests
type CostHandler struct {
	calculator *costing.Calculator
}

// NewCostHandler creates a new cost handler
func NewCostHandler(calc *costing.Calculator) *CostHandler {
	return &CostHandler{calculator: calc}
}

// EstimateRequest represents a cost estimation request
type EstimateRequest struct {
	Model           string `json:"model"`
	DurationSeconds int    `json:"duration_seconds"`
	VideoCount      int    `json:"video_count"`
}

// EstimateResponse represents a cost estimation result
type EstimateResponse struct {
	PerVideo       PerVideoResponse   `json:"per_video"`
	VideoCount     int                `json:"video_count"`
	ResearchCharge float64            `json:"research_charge_usd"`
	TotalBatchCost float64            `json:"total_batch_cost_usd"`
	ProviderCosts  map[string]float64 `json:"provider_costs_usd"`
}

// PerVideoResponse breaks one video's cost into components
type PerVideoResponse struct {
	BaseCost    float64 `json:"base_cost_usd"`
	LLMCost     float64 `json:"llm_cost_usd"`
	StorageCost float64 `json:"storage_cost_usd"`
	Total       float64 `json:"total_usd"`
}

// Estimate handles POST /v1/costs/estimate
func (h *CostHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.calculator.BatchCost(
		models.VideoModel(req.Model),
		models.Duration(req.DurationSeconds),
		req.VideoCount,
	)
	if err != nil {
		http.Error(w, "Failed to estimate cost: "+err.Error(), http.StatusBadRequest)
		return
	}

	providerCosts := make(map[string]float64, len(result.ProviderCosts))
	for account, cost := range result.ProviderCosts {
		providerCosts[string(account)] = cost
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(EstimateResponse{
		PerVideo: PerVideoResponse{
			BaseCost:    result.PerVideo.BaseCost,
			LLMCost:     result.PerVideo.LLMCost,
			StorageCost: result.PerVideo.StorageCost,
			Total:       result.PerVideo.Total,
		},
		VideoCount:     result.VideoCount,
		ResearchCharge: result.ResearchCharge,
		TotalBatchCost: result.TotalBatchCost,
		ProviderCosts:  providerCosts,
	})
}

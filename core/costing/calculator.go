package costing

import (
	"fmt"

	"video-orchestrator/core/models"
	"video-orchestrator/core/pricing"
)

// Calculator turns (model, duration, count) into itemized, provider-attributed
// cost breakdowns. All methods are pure arithmetic over the pricing table; no
// I/O, deterministic for a given table.
type Calculator struct {
	table *pricing.Table
}

// NewCalculator creates a new calculator over the given pricing table.
func NewCalculator(table *pricing.Table) *Calculator {
	return &Calculator{table: table}
}

// VideoCostBreakdown is the itemized cost of generating one video
type VideoCostBreakdown struct {
	Model       models.VideoModel
	Duration    models.Duration
	BaseCost    float64 // generation unit cost (model x duration lookup)
	LLMCost     float64 // fixed per-video LLM charges
	StorageCost float64
	Total       float64
}

// CostResult is the full cost estimate for a batch
type CostResult struct {
	PerVideo       VideoCostBreakdown
	VideoCount     int
	ResearchCharge float64 // one-time charge, zero for empty batches
	TotalBatchCost float64
	// ProviderCosts attributes every dollar of TotalBatchCost to exactly one
	// upstream billing account; the values always sum to TotalBatchCost.
	ProviderCosts map[models.BillingAccount]float64
}

// PerVideoCost returns the itemized cost of a single video. Fails with
// pricing.ErrInvalidCombination for unsupported (model, duration) pairs.
func (c *Calculator) PerVideoCost(model models.VideoModel, duration models.Duration) (VideoCostBreakdown, error) {
	base, err := c.table.UnitCost(model, duration)
	if err != nil {
		return VideoCostBreakdown{}, err
	}

	b := VideoCostBreakdown{
		Model:       model,
		Duration:    duration,
		BaseCost:    base,
		LLMCost:     c.table.LLMPerVideo(),
		StorageCost: c.table.StorageCost(duration),
	}
	b.Total = b.BaseCost + b.LLMCost + b.StorageCost
	return b, nil
}

// BatchCost returns the cost estimate for count videos of the same model and
// duration. A zero count yields all-zero totals. The batch total is computed
// as the sum of the provider attributions so the partition invariant holds
// exactly, not approximately.
func (c *Calculator) BatchCost(model models.VideoModel, duration models.Duration, count int) (CostResult, error) {
	if count < 0 {
		return CostResult{}, fmt.Errorf("costing: negative video count %d", count)
	}

	perVideo, err := c.PerVideoCost(model, duration)
	if err != nil {
		return CostResult{}, err
	}

	result := CostResult{
		PerVideo:   perVideo,
		VideoCount: count,
		ProviderCosts: map[models.BillingAccount]float64{
			models.AccountVideoAPI: 0,
			models.AccountLLM:      0,
			models.AccountStorage:  0,
		},
	}
	if count == 0 {
		return result, nil
	}

	n := float64(count)
	result.ResearchCharge = c.table.BatchResearch()
	result.ProviderCosts[models.AccountVideoAPI] = perVideo.BaseCost * n
	result.ProviderCosts[models.AccountLLM] = perVideo.LLMCost*n + result.ResearchCharge
	result.ProviderCosts[models.AccountStorage] = perVideo.StorageCost * n

	for _, account := range models.BillingAccounts {
		result.TotalBatchCost += result.ProviderCosts[account]
	}
	return result, nil
}

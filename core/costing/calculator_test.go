package costing

import (
	"math"
	"testing"

	"video-orchestrator/core/models"
	"video-orchestrator/core/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}

func TestPerVideoCost(t *testing.T) {
	calc := NewCalculator(pricing.Default())

	b, err := calc.PerVideoCost(models.ModelStandard, models.DurationMedium)
	require.NoError(t, err)

	assert.Equal(t, 0.50, b.BaseCost)
	assert.Equal(t, 0.04, b.LLMCost)
	assert.InDelta(t, 0.02, b.StorageCost, 1e-9)
	assert.InDelta(t, b.BaseCost+b.LLMCost+b.StorageCost, b.Total, 1e-9)
}

func TestPerVideoCost_InvalidCombination(t *testing.T) {
	calc := NewCalculator(pricing.Default())

	_, err := calc.PerVideoCost(models.ModelStandard, models.Duration(15))
	require.ErrorIs(t, err, pricing.ErrInvalidCombination)
}

func TestBatchCost_ZeroCount(t *testing.T) {
	calc := NewCalculator(pricing.Default())

	result, err := calc.BatchCost(models.ModelPro, models.DurationLong, 0)
	require.NoError(t, err)

	assert.Zero(t, result.TotalBatchCost)
	assert.Zero(t, result.ResearchCharge)
	for account, cost := range result.ProviderCosts {
		assert.Zero(t, cost, "account %s", account)
	}
}

func TestBatchCost_NegativeCount(t *testing.T) {
	calc := NewCalculator(pricing.Default())

	_, err := calc.BatchCost(models.ModelPro, models.DurationLong, -1)
	require.Error(t, err)
}

func TestBatchCost_ProviderAttributionPartitionsTotal(t *testing.T) {
	calc := NewCalculator(pricing.Default())

	for _, model := range []models.VideoModel{models.ModelStandard, models.ModelPro} {
		for _, duration := range []models.Duration{models.DurationShort, models.DurationMedium, models.DurationLong} {
			for _, count := range []int{1, 3, 12, 100, 127} {
				result, err := calc.BatchCost(model, duration, count)
				require.NoError(t, err)

				sum := 0.0
				for _, cost := range result.ProviderCosts {
					sum += cost
				}
				assert.Equal(t, cents(result.TotalBatchCost), cents(sum),
					"model=%s duration=%d count=%d", model, duration, count)
			}
		}
	}
}

func TestBatchCost_NoAccumulationDrift(t *testing.T) {
	calc := NewCalculator(pricing.Default())

	const n = 127
	result, err := calc.BatchCost(models.ModelStandard, models.DurationMedium, n)
	require.NoError(t, err)

	perVideo := (result.TotalBatchCost - result.ResearchCharge) / n
	assert.InDelta(t, result.PerVideo.Total, perVideo, 1e-4)
}

func TestBatchCost_TwelveVideoScenario(t *testing.T) {
	table := pricing.Default()
	calc := NewCalculator(table)

	result, err := calc.BatchCost(models.ModelStandard, models.DurationMedium, 12)
	require.NoError(t, err)

	unit, err := table.UnitCost(models.ModelStandard, models.DurationMedium)
	require.NoError(t, err)

	want := unit*12 + table.LLMPerVideo()*12 + table.StorageCost(models.DurationMedium)*12 + table.BatchResearch()
	assert.Equal(t, cents(want), cents(result.TotalBatchCost))
	assert.Equal(t, 12, result.VideoCount)
}

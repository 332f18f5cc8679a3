package monitoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"video-orchestrator/core/costing"
	"video-orchestrator/core/models"
	"video-orchestrator/core/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	mu      sync.Mutex
	updates []models.StatusUpdate
}

func (p *capturingPublisher) PublishJobStatus(_ context.Context, update models.StatusUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.updates)
}

func completedUpdate(batchID string) models.StatusUpdate {
	return models.StatusUpdate{
		JobID:    "job-1",
		BatchID:  batchID,
		Status:   models.JobStatusCompleted,
		Model:    models.ModelStandard,
		Duration: models.DurationMedium,
		At:       time.Now(),
	}
}

func TestSpendTracker_AccumulatesCompletedVideos(t *testing.T) {
	calc := costing.NewCalculator(pricing.Default())
	st := NewSpendTracker(calc, nil)

	estimate, err := calc.BatchCost(models.ModelStandard, models.DurationMedium, 3)
	require.NoError(t, err)
	st.SetEstimate("batch-1", estimate)

	for i := 0; i < 3; i++ {
		require.NoError(t, st.PublishJobStatus(context.Background(), completedUpdate("batch-1")))
	}

	spend, ok := st.BatchSpend("batch-1")
	require.True(t, ok)
	assert.Equal(t, 3, spend.CompletedVideos)
	// the full batch completed, so actual spend equals the estimate
	assert.InDelta(t, estimate.TotalBatchCost, spend.ActualUSD, 1e-9)
}

func TestSpendTracker_ResearchChargeSpentUpfront(t *testing.T) {
	calc := costing.NewCalculator(pricing.Default())
	st := NewSpendTracker(calc, nil)

	estimate, err := calc.BatchCost(models.ModelPro, models.DurationLong, 2)
	require.NoError(t, err)
	st.SetEstimate("batch-1", estimate)

	spend, ok := st.BatchSpend("batch-1")
	require.True(t, ok)
	assert.InDelta(t, estimate.ResearchCharge, spend.ActualUSD, 1e-9)
	assert.Zero(t, spend.CompletedVideos)
}

func TestSpendTracker_FailedVideosCostNothing(t *testing.T) {
	calc := costing.NewCalculator(pricing.Default())
	st := NewSpendTracker(calc, nil)

	estimate, err := calc.BatchCost(models.ModelStandard, models.DurationShort, 2)
	require.NoError(t, err)
	st.SetEstimate("batch-1", estimate)

	update := completedUpdate("batch-1")
	update.Status = models.JobStatusFailed
	require.NoError(t, st.PublishJobStatus(context.Background(), update))

	spend, ok := st.BatchSpend("batch-1")
	require.True(t, ok)
	assert.Equal(t, 1, spend.FailedVideos)
	assert.InDelta(t, estimate.ResearchCharge, spend.ActualUSD, 1e-9)
}

func TestSpendTracker_ForwardsDownstream(t *testing.T) {
	calc := costing.NewCalculator(pricing.Default())
	next := &capturingPublisher{}
	st := NewSpendTracker(calc, next)

	require.NoError(t, st.PublishJobStatus(context.Background(), completedUpdate("batch-1")))

	update := completedUpdate("batch-1")
	update.Status = models.JobStatusInProgress
	require.NoError(t, st.PublishJobStatus(context.Background(), update))

	assert.Equal(t, 2, next.count())
}

func TestSpendTracker_UnknownBatch(t *testing.T) {
	calc := costing.NewCalculator(pricing.Default())
	st := NewSpendTracker(calc, nil)

	_, ok := st.BatchSpend("missing")
	assert.False(t, ok)

	// terminal update for a batch with no estimate still accumulates
	require.NoError(t, st.PublishJobStatus(context.Background(), completedUpdate("batch-2")))
	spend, ok := st.BatchSpend("batch-2")
	require.True(t, ok)
	assert.Equal(t, 1, spend.CompletedVideos)
}

func TestSpendTracker_FailedCountsTerminalFailuresOnly(t *testing.T) {
	calc := costing.NewCalculator(pricing.Default())
	st := NewSpendTracker(calc, nil)

	estimate, err := calc.BatchCost(models.ModelStandard, models.DurationMedium, 1)
	require.NoError(t, err)
	st.SetEstimate("batch-1", estimate)

	// two failed attempts, each re-queued by the retry path, then success
	for i := 0; i < 2; i++ {
		update := completedUpdate("batch-1")
		update.Status = models.JobStatusFailed
		require.NoError(t, st.PublishJobStatus(context.Background(), update))

		update.Status = models.JobStatusQueued
		require.NoError(t, st.PublishJobStatus(context.Background(), update))
	}
	require.NoError(t, st.PublishJobStatus(context.Background(), completedUpdate("batch-1")))

	spend, ok := st.BatchSpend("batch-1")
	require.True(t, ok)
	assert.Zero(t, spend.FailedVideos, "re-queued attempts are not terminal failures")
	assert.Equal(t, 1, spend.CompletedVideos)
}

func TestSpendTracker_RepeatedFailureCountsOnce(t *testing.T) {
	calc := costing.NewCalculator(pricing.Default())
	st := NewSpendTracker(calc, nil)

	update := completedUpdate("batch-1")
	update.Status = models.JobStatusFailed
	require.NoError(t, st.PublishJobStatus(context.Background(), update))

	update.Status = models.JobStatusQueued
	require.NoError(t, st.PublishJobStatus(context.Background(), update))

	// the final attempt fails for good
	update.Status = models.JobStatusFailed
	require.NoError(t, st.PublishJobStatus(context.Background(), update))

	spend, ok := st.BatchSpend("batch-1")
	require.True(t, ok)
	assert.Equal(t, 1, spend.FailedVideos)
}

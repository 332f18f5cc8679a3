package monitoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"video-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatchSource struct {
	mu        sync.Mutex
	summaries map[string]models.BatchSummary
}

func (s *fakeBatchSource) GetBatchStatus(batchID string) models.BatchSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaries[batchID]
}

func (s *fakeBatchSource) set(summary models.BatchSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.BatchID] = summary
}

type capturingSink struct {
	mu        sync.Mutex
	published []models.BatchSummary
}

func (s *capturingSink) PublishBatchSummary(_ context.Context, summary models.BatchSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, summary)
	return nil
}

func (s *capturingSink) last() (models.BatchSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.published) == 0 {
		return models.BatchSummary{}, false
	}
	return s.published[len(s.published)-1], true
}

func TestBatchWatcher_PublishesUntilTerminal(t *testing.T) {
	source := &fakeBatchSource{summaries: make(map[string]models.BatchSummary)}
	sink := &capturingSink{}
	w := NewBatchWatcher(source, sink, 2*time.Millisecond)
	defer w.StopAll()

	source.set(models.BatchSummary{
		BatchID: "batch-1",
		Total:   4,
		Queued:  2, InProgress: 2,
		Status: models.BatchGenerating,
	})
	w.Watch("batch-1")

	require.Eventually(t, func() bool {
		last, ok := sink.last()
		return ok && last.Status == models.BatchGenerating
	}, 2*time.Second, 2*time.Millisecond)

	source.set(models.BatchSummary{
		BatchID: "batch-1",
		Total:   4, Completed: 4,
		Status:             models.BatchCompleted,
		ProgressPercentage: 100,
	})

	require.Eventually(t, func() bool {
		last, ok := sink.last()
		return ok && last.Status == models.BatchCompleted
	}, 2*time.Second, 2*time.Millisecond)

	// watcher self-stops on a terminal summary
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		_, watching := w.watches["batch-1"]
		return !watching
	}, 2*time.Second, 2*time.Millisecond)
}

func TestBatchWatcher_WatchIsIdempotent(t *testing.T) {
	source := &fakeBatchSource{summaries: make(map[string]models.BatchSummary)}
	sink := &capturingSink{}
	w := NewBatchWatcher(source, sink, time.Hour)
	defer w.StopAll()

	source.set(models.BatchSummary{BatchID: "batch-1", Status: models.BatchGenerating})
	w.Watch("batch-1")
	w.Watch("batch-1")

	w.mu.Lock()
	assert.Len(t, w.watches, 1)
	w.mu.Unlock()
}

func TestBatchWatcher_StopUnknownBatch(t *testing.T) {
	source := &fakeBatchSource{summaries: make(map[string]models.BatchSummary)}
	w := NewBatchWatcher(source, &capturingSink{}, time.Hour)

	w.Stop("never-watched")
}

package monitoring

import (
	"context"
	"log"
	"sync"
	"time"

	"video-orchestrator/core/models"
)

// BatchSource exposes the live aggregate view of a batch.
type BatchSource interface {
	GetBatchStatus(batchID string) models.BatchSummary
}

// SummarySink receives periodic batch summaries for the status board.
type SummarySink interface {
	PublishBatchSummary(ctx context.Context, summary models.BatchSummary) error
}

// BatchWatcher publishes a summary of each watched batch on a fixed interval
// until the batch reaches a terminal status.
type BatchWatcher struct {
	source   BatchSource
	sink     SummarySink
	interval time.Duration

	mu      sync.Mutex
	watches map[string]context.CancelFunc
}

// NewBatchWatcher creates a new batch watcher.
func NewBatchWatcher(source BatchSource, sink SummarySink, interval time.Duration) *BatchWatcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &BatchWatcher{
		source:   source,
		sink:     sink,
		interval: interval,
		watches:  make(map[string]context.CancelFunc),
	}
}

// Watch starts publishing summaries for a batch. Watching an already-watched
// batch is a no-op.
func (w *BatchWatcher) Watch(batchID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watches[batchID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.watches[batchID] = cancel
	go w.loop(ctx, batchID)
}

// Stop stops watching a batch.
func (w *BatchWatcher) Stop(batchID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if cancel, ok := w.watches[batchID]; ok {
		cancel()
		delete(w.watches, batchID)
	}
}

// StopAll stops every watch.
func (w *BatchWatcher) StopAll() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for batchID, cancel := range w.watches {
		cancel()
		delete(w.watches, batchID)
	}
}

func (w *BatchWatcher) loop(ctx context.Context, batchID string) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary := w.source.GetBatchStatus(batchID)
			if err := w.sink.PublishBatchSummary(ctx, summary); err != nil {
				log.Printf("Failed to publish summary for batch %s: %v", batchID, err)
			}
			if terminal(summary.Status) {
				w.Stop(batchID)
				return
			}
		}
	}
}

func terminal(status models.BatchStatus) bool {
	switch status {
	case models.BatchCompleted, models.BatchPartial, models.BatchFailed:
		return true
	}
	return false
}

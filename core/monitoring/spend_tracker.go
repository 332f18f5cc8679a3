package monitoring

import (
	"context"
	"log"
	"sync"
	"time"

	"video-orchestrator/core/costing"
	"video-orchestrator/core/models"
)

// Publisher receives job status updates downstream of the spend tracker.
type Publisher interface {
	PublishJobStatus(ctx context.Context, update models.StatusUpdate) error
}

// SpendTracker accumulates the actual cost of each batch as its videos
// complete and compares it against the pre-submission estimate. It sits in
// front of an optional downstream publisher so a single tracker handle covers
// both concerns.
type SpendTracker struct {
	calc *costing.Calculator
	next Publisher // optional

	mu      sync.RWMutex
	batches map[string]*BatchSpend
	failed  map[string]string // job id -> batch id, jobs currently counted as failed
}

// BatchSpend tracks spend for a single batch
type BatchSpend struct {
	BatchID         string
	EstimatedUSD    float64
	ActualUSD       float64
	CompletedVideos int
	FailedVideos    int
	LastUpdate      time.Time
}

// NewSpendTracker creates a new spend tracker. next may be nil.
func NewSpendTracker(calc *costing.Calculator, next Publisher) *SpendTracker {
	return &SpendTracker{
		calc:    calc,
		next:    next,
		batches: make(map[string]*BatchSpend),
		failed:  make(map[string]string),
	}
}

// SetEstimate records the pre-submission estimate for a batch. The research
// charge is counted as spent immediately: it is incurred at submission
// regardless of how generation goes.
func (st *SpendTracker) SetEstimate(batchID string, estimate costing.CostResult) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.batches[batchID] = &BatchSpend{
		BatchID:      batchID,
		EstimatedUSD: estimate.TotalBatchCost,
		ActualUSD:    estimate.ResearchCharge,
		LastUpdate:   time.Now(),
	}
}

// PublishJobStatus accumulates spend for terminal updates and forwards the
// update downstream.
func (st *SpendTracker) PublishJobStatus(ctx context.Context, update models.StatusUpdate) error {
	switch update.Status {
	case models.JobStatusCompleted:
		st.recordCompleted(update)
	case models.JobStatusFailed:
		st.recordFailed(update)
	case models.JobStatusQueued:
		st.recordRequeued(update)
	}

	if st.next != nil {
		return st.next.PublishJobStatus(ctx, update)
	}
	return nil
}

func (st *SpendTracker) recordCompleted(update models.StatusUpdate) {
	perVideo, err := st.calc.PerVideoCost(update.Model, update.Duration)
	if err != nil {
		log.Printf("Failed to price completed job %s: %v", update.JobID, err)
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	spend := st.ensureBatchLocked(update.BatchID)
	spend.ActualUSD += perVideo.Total
	spend.CompletedVideos++
	spend.LastUpdate = time.Now()

	if spend.EstimatedUSD > 0 && spend.ActualUSD > spend.EstimatedUSD {
		log.Printf("WARNING: Batch %s spend %.2f USD exceeds estimate %.2f USD",
			update.BatchID, spend.ActualUSD, spend.EstimatedUSD)
	}
}

// recordFailed counts a job as failed at most once. The scheduler publishes a
// failed update per attempt; a job headed for auto-retry comes back through
// recordRequeued, so FailedVideos only reflects jobs that are failed now.
func (st *SpendTracker) recordFailed(update models.StatusUpdate) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, counted := st.failed[update.JobID]; counted {
		return
	}
	st.failed[update.JobID] = update.BatchID

	spend := st.ensureBatchLocked(update.BatchID)
	spend.FailedVideos++
	spend.LastUpdate = time.Now()
}

func (st *SpendTracker) recordRequeued(update models.StatusUpdate) {
	st.mu.Lock()
	defer st.mu.Unlock()

	batchID, counted := st.failed[update.JobID]
	if !counted {
		return
	}
	delete(st.failed, update.JobID)

	spend := st.ensureBatchLocked(batchID)
	spend.FailedVideos--
	spend.LastUpdate = time.Now()
}

func (st *SpendTracker) ensureBatchLocked(batchID string) *BatchSpend {
	spend, ok := st.batches[batchID]
	if !ok {
		spend = &BatchSpend{BatchID: batchID}
		st.batches[batchID] = spend
	}
	return spend
}

// BatchSpend returns the current spend record for a batch.
func (st *SpendTracker) BatchSpend(batchID string) (BatchSpend, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	spend, ok := st.batches[batchID]
	if !ok {
		return BatchSpend{}, false
	}
	return *spend, true
}

// StopTracking drops the spend record for a batch.
func (st *SpendTracker) StopTracking(batchID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.batches, batchID)
	for jobID, b := range st.failed {
		if b == batchID {
			delete(st.failed, jobID)
		}
	}
}

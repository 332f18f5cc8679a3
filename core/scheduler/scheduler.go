package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"video-orchestrator/core/failure"
	"video-orchestrator/core/models"
	"video-orchestrator/core/retry"
)

// Capability is the external video-generation API as consumed by the scheduler.
type Capability interface {
	Submit(ctx context.Context, req models.GenerationRequest) (models.SubmitResult, error)
	Poll(ctx context.Context, externalID string) (models.PollResult, error)
}

// Tracker receives status-change notifications for the human-visible status
// board. Writes are best-effort: a tracker failure is logged and never blocks
// the generation pipeline.
type Tracker interface {
	PublishJobStatus(ctx context.Context, update models.StatusUpdate) error
}

// Store is the durable record of jobs. The scheduler's in-memory state is
// reconstructable from it after a restart.
type Store interface {
	SaveJobs(ctx context.Context, jobs []models.GenerationJob) error
	UpdateJob(ctx context.Context, job models.GenerationJob) error
	RecordTransition(ctx context.Context, jobID string, from, to models.JobStatus, reason string) error
	RecordRetryAttempt(ctx context.Context, jobID string, attempt models.RetryAttempt) error
	ListJobsByStatus(ctx context.Context, status models.JobStatus) ([]models.GenerationJob, error)
}

// AssetSink receives completed jobs whose result assets must be fetched
// before their signed URLs expire.
type AssetSink interface {
	Track(assetRef, externalID string, expiresAt time.Time)
}

// Config holds scheduler tuning. Zero values fall back to defaults.
type Config struct {
	MaxConcurrent  int           // at most this many jobs in progress (external rate limit)
	MaxAttempts    int           // attempts per job before terminal failure
	PollInterval   time.Duration // how often in-flight jobs are polled
	CallTimeout    time.Duration // per-call timeout for submit/poll
	AvgJobDuration time.Duration // per-job estimate used for batch ETA
	Clock          func() time.Time
}

func (c *Config) withDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
	if c.AvgJobDuration <= 0 {
		c.AvgJobDuration = 90 * time.Second
	}
	if c.Clock == nil {
		c.Clock = func() time.Time { return time.Now().UTC() }
	}
}

var (
	// ErrJobNotFound is returned when a job id is unknown to the scheduler.
	ErrJobNotFound = errors.New("scheduler: job not found")
	// ErrNotRetryable is returned when a manual retry targets a job that is
	// not in a failed state.
	ErrNotRetryable = errors.New("scheduler: only failed jobs can be retried")
)

// defaultAssetTTL is assumed when the generation API omits the signed-URL
// lifetime of a result asset.
const defaultAssetTTL = 24 * time.Hour

// Scheduler owns the generation queue. It is the only component that mutates
// job status; all mutation is serialized through its mutex while status
// queries take consistent snapshots. At most MaxConcurrent jobs are in
// progress at any observable point, and inFlight always equals the number of
// in-progress jobs.
type Scheduler struct {
	cfg        Config
	capability Capability
	policy     *retry.Policy
	store      Store     // optional
	tracker    Tracker   // optional
	downloads  AssetSink // optional

	mu        sync.Mutex
	jobs      map[string]*models.GenerationJob
	attempts  map[string][]models.RetryAttempt
	queue     *JobQueue
	inFlight  int
	cancelled map[string]bool // batch ids with cancellation requested

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. The capability is required; store,
// tracker and downloads may be nil. A nil policy uses the default backoff.
func NewScheduler(cfg Config, capability Capability, policy *retry.Policy, store Store, tracker Tracker, downloads AssetSink) *Scheduler {
	cfg.withDefaults()
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:        cfg,
		capability: capability,
		policy:     policy,
		store:      store,
		tracker:    tracker,
		downloads:  downloads,
		jobs:       make(map[string]*models.GenerationJob),
		attempts:   make(map[string][]models.RetryAttempt),
		queue:      NewJobQueue(),
		cancelled:  make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start reloads persisted work and keeps the dispatch loop ticking until the
// context is cancelled. The scheduler accepts submissions without Start; the
// loop only covers recovery and delayed-retry admission after restarts.
//
// Recovery policy: queued jobs are reloaded as queued; jobs that were in
// progress when the process died are re-enqueued from scratch. The at-most-K
// concurrency invariant is per-process.
func (s *Scheduler) Start(ctx context.Context) {
	s.recover(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.dispatchLocked()
			s.mu.Unlock()
		}
	}
}

// Stop halts dispatch and all in-flight poll loops.
func (s *Scheduler) Stop() {
	s.cancel()
}

func (s *Scheduler) recover(ctx context.Context) {
	if s.store == nil {
		return
	}

	for _, status := range []models.JobStatus{models.JobStatusQueued, models.JobStatusInProgress} {
		jobs, err := s.store.ListJobsByStatus(ctx, status)
		if err != nil {
			log.Printf("Failed to reload %s jobs: %v", status, err)
			continue
		}

		s.mu.Lock()
		for i := range jobs {
			job := jobs[i]
			if _, exists := s.jobs[job.ID]; exists {
				continue
			}
			job.Status = models.JobStatusQueued
			job.Progress = nil
			job.ExternalID = nil
			job.StartedAt = nil
			if job.QueuedAt.IsZero() {
				job.QueuedAt = s.cfg.Clock()
			}
			s.jobs[job.ID] = &job
			s.queue.Enqueue(job.ID, job.QueuedAt)
		}
		s.dispatchLocked()
		s.mu.Unlock()
	}
}

// SubmitBatch enqueues all jobs of a batch atomically: either every job
// becomes visible in queued state or none does.
func (s *Scheduler) SubmitBatch(ctx context.Context, jobs []models.GenerationJob) error {
	if len(jobs) == 0 {
		return fmt.Errorf("scheduler: batch has no jobs")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before mutating anything.
	seen := make(map[string]bool, len(jobs))
	for i := range jobs {
		if err := validateJob(&jobs[i]); err != nil {
			return err
		}
		if seen[jobs[i].ID] {
			return fmt.Errorf("scheduler: duplicate job id %s in batch", jobs[i].ID)
		}
		if _, exists := s.jobs[jobs[i].ID]; exists {
			return fmt.Errorf("scheduler: job %s already submitted", jobs[i].ID)
		}
		seen[jobs[i].ID] = true
	}

	now := s.cfg.Clock()
	admitted := make([]models.GenerationJob, len(jobs))
	for i := range jobs {
		admitted[i] = jobs[i]
		admitted[i].Status = models.JobStatusQueued
		admitted[i].QueuedAt = now
		admitted[i].Progress = nil
		admitted[i].ExternalID = nil
		admitted[i].ResultAssetRef = nil
		admitted[i].ErrorInfo = nil
		admitted[i].StartedAt = nil
		admitted[i].CompletedAt = nil
		admitted[i].RetryCount = 0
	}

	if s.store != nil {
		if err := s.store.SaveJobs(ctx, admitted); err != nil {
			return fmt.Errorf("persist batch: %w", err)
		}
	}

	// Admission notifications go out before dispatch can pick any of these
	// jobs up, so per-job writes reach the store in transition order.
	for i := range admitted {
		job := admitted[i]
		s.jobs[job.ID] = &job
		s.queue.Enqueue(job.ID, job.QueuedAt)
		s.notify(job, nil, "job_submitted")
	}
	delete(s.cancelled, admitted[0].BatchID)

	s.dispatchLocked()
	return nil
}

// SubmitVideo enqueues a single job.
func (s *Scheduler) SubmitVideo(ctx context.Context, job models.GenerationJob) error {
	return s.SubmitBatch(ctx, []models.GenerationJob{job})
}

func validateJob(job *models.GenerationJob) error {
	switch {
	case job.ID == "":
		return fmt.Errorf("scheduler: job id is required")
	case job.BatchID == "":
		return fmt.Errorf("scheduler: job %s has no batch id", job.ID)
	case job.Prompt == "":
		return fmt.Errorf("scheduler: job %s has no prompt", job.ID)
	case !job.Model.Valid():
		return fmt.Errorf("scheduler: job %s has unsupported model %q", job.ID, job.Model)
	case !job.Duration.Valid():
		return fmt.Errorf("scheduler: job %s has unsupported duration %d", job.ID, job.Duration)
	case !job.AspectRatio.Valid():
		return fmt.Errorf("scheduler: job %s has unsupported aspect ratio %q", job.ID, job.AspectRatio)
	}
	return nil
}

// dispatchLocked admits queued jobs into in-progress until the concurrency
// cap is reached. Callers must hold s.mu.
func (s *Scheduler) dispatchLocked() {
	for s.inFlight < s.cfg.MaxConcurrent {
		jobID, ok := s.queue.PopJob()
		if !ok {
			return
		}

		job, exists := s.jobs[jobID]
		if !exists || job.Status != models.JobStatusQueued {
			// Stale queue entry: the job was cancelled or re-queued since.
			continue
		}

		now := s.cfg.Clock()
		progress := 0
		job.Status = models.JobStatusInProgress
		job.StartedAt = &now
		job.Progress = &progress
		s.inFlight++

		snapshot := cloneJob(job)
		go s.run(snapshot, models.GenerationRequest{
			JobID:       job.ID,
			Prompt:      job.Prompt,
			Model:       job.Model,
			Duration:    job.Duration,
			AspectRatio: job.AspectRatio,
		})
	}
}

// run drives a single job from submission through polling to a terminal
// status. It never returns while the job is still live. All store writes for
// the job happen in this goroutine (or strictly before it was spawned), so
// the durable record moves through the same transitions as the in-memory one.
func (s *Scheduler) run(snapshot models.GenerationJob, req models.GenerationRequest) {
	jobID := snapshot.ID

	from := models.JobStatusQueued
	s.notify(snapshot, &from, "slot_acquired")

	submitCtx, cancel := context.WithTimeout(s.ctx, s.cfg.CallTimeout)
	result, err := s.capability.Submit(submitCtx, req)
	cancel()
	if err != nil {
		// A failed submission call is not an immediate job failure; it is
		// classified and handed to the retry policy like any other error.
		s.handleFailure(jobID, err)
		return
	}

	s.mu.Lock()
	if job, ok := s.jobs[jobID]; ok && job.Status == models.JobStatusInProgress {
		externalID := result.ExternalID
		job.ExternalID = &externalID
	}
	s.mu.Unlock()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}

		if s.batchCancelled(jobID) {
			s.finalizeCancelled(jobID)
			return
		}

		pollCtx, cancel := context.WithTimeout(s.ctx, s.cfg.CallTimeout)
		poll, err := s.capability.Poll(pollCtx, result.ExternalID)
		cancel()
		if err != nil {
			s.handleFailure(jobID, err)
			return
		}

		switch poll.State.JobStatus() {
		case models.JobStatusCompleted:
			s.complete(jobID, result.ExternalID, poll)
			return
		case models.JobStatusFailed:
			if poll.State == models.StateRejected {
				s.handleFailure(jobID, &failure.ModerationError{Reason: poll.Message})
			} else {
				s.handleFailure(jobID, fmt.Errorf("generation failed upstream: %s", poll.Message))
			}
			return
		default:
			s.updateProgress(jobID, poll.Progress)
		}
	}
}

func (s *Scheduler) updateProgress(jobID string, progress int) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != models.JobStatusInProgress {
		s.mu.Unlock()
		return
	}
	job.Progress = &progress
	snapshot := cloneJob(job)
	s.mu.Unlock()

	if s.tracker != nil {
		if err := s.tracker.PublishJobStatus(s.ctx, s.statusUpdate(snapshot)); err != nil {
			log.Printf("Tracking write failed for job %s: %v", jobID, err)
		}
	}
}

func (s *Scheduler) complete(jobID, externalID string, poll models.PollResult) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != models.JobStatusInProgress {
		s.mu.Unlock()
		return
	}

	now := s.cfg.Clock()
	assetRef := poll.AssetRef
	job.Status = models.JobStatusCompleted
	job.Progress = nil
	job.ResultAssetRef = &assetRef
	job.CompletedAt = &now
	s.inFlight--
	s.settleAttemptsLocked(jobID, models.AttemptSucceeded)

	snapshot := cloneJob(job)
	s.dispatchLocked()
	s.mu.Unlock()

	from := models.JobStatusInProgress
	s.notify(snapshot, &from, "generation_succeeded")

	if s.downloads != nil && assetRef != "" {
		expires := poll.AssetExpiresAt
		if expires.IsZero() {
			expires = now.Add(defaultAssetTTL)
		}
		s.downloads.Track(assetRef, externalID, expires)
	}
}

// handleFailure classifies a failed attempt and either schedules an automatic
// retry or settles the job as failed. The job keeps its slot accounting
// correct: inFlight drops exactly once per attempt.
func (s *Scheduler) handleFailure(jobID string, cause error) {
	rec := failure.Classify(cause)

	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != models.JobStatusInProgress {
		s.mu.Unlock()
		return
	}

	job.RetryCount++
	job.Status = models.JobStatusFailed
	job.Progress = nil
	job.ErrorInfo = &rec
	s.inFlight--

	autoRetry := !s.cancelled[job.BatchID] &&
		s.policy.ShouldAutoRetry(rec, job.RetryCount, s.cfg.MaxAttempts)

	// This failure settles whatever retry attempt was pending before it.
	s.settleAttemptsLocked(jobID, models.AttemptFailed)
	var attempt models.RetryAttempt
	if autoRetry {
		attempt, _ = retry.NewAttempt(job.RetryCount, rec.Message, "")
		s.attempts[jobID] = append(s.attempts[jobID], attempt)
	}

	delay := s.policy.Delay(job.RetryCount, rec.Category)
	snapshot := cloneJob(job)
	s.dispatchLocked()
	s.mu.Unlock()

	from := models.JobStatusInProgress
	if autoRetry {
		s.notify(snapshot, &from, "attempt_failed")
		if s.store != nil {
			if err := s.store.RecordRetryAttempt(s.ctx, jobID, attempt); err != nil {
				log.Printf("Failed to record retry attempt for job %s: %v", jobID, err)
			}
		}
		time.AfterFunc(delay, func() { s.requeue(jobID) })
		return
	}
	s.notify(snapshot, &from, "terminal_failure")
}

// requeue moves a failed job back to queued after its backoff delay, at the
// back of the queue with a fresh queue time.
func (s *Scheduler) requeue(jobID string) {
	select {
	case <-s.ctx.Done():
		return
	default:
	}

	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != models.JobStatusFailed || s.cancelled[job.BatchID] {
		s.mu.Unlock()
		return
	}

	now := s.cfg.Clock()
	job.Status = models.JobStatusQueued
	job.QueuedAt = now
	job.ErrorInfo = nil
	job.StartedAt = nil
	job.ExternalID = nil
	s.queue.Enqueue(jobID, now)

	// Notify before dispatch: dispatch may hand this very job to a fresh run
	// goroutine, whose in-progress write must land after this queued one.
	snapshot := cloneJob(job)
	from := models.JobStatusFailed
	s.notify(snapshot, &from, "auto_retry")
	s.dispatchLocked()
	s.mu.Unlock()
}

// RetryJob re-enqueues a failed job at the operator's request, optionally
// with an edited prompt. Manual retry bypasses the auto-retry policy but
// still produces an auditable attempt record.
func (s *Scheduler) RetryJob(jobID, modifiedPrompt string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	if job.Status != models.JobStatusFailed {
		s.mu.Unlock()
		return ErrNotRetryable
	}

	summary := ""
	if job.ErrorInfo != nil {
		summary = job.ErrorInfo.Message
	}
	attempt, err := retry.NewAttempt(job.RetryCount+1, summary, modifiedPrompt)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.attempts[jobID] = append(s.attempts[jobID], attempt)

	if modifiedPrompt != "" {
		job.Prompt = modifiedPrompt
	}
	now := s.cfg.Clock()
	job.Status = models.JobStatusQueued
	job.QueuedAt = now
	job.ErrorInfo = nil
	job.StartedAt = nil
	job.ExternalID = nil
	s.queue.Enqueue(jobID, now)
	delete(s.cancelled, job.BatchID)

	snapshot := cloneJob(job)
	from := models.JobStatusFailed
	s.notify(snapshot, &from, "manual_retry")
	s.dispatchLocked()
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.RecordRetryAttempt(s.ctx, jobID, attempt); err != nil {
			log.Printf("Failed to record retry attempt for job %s: %v", jobID, err)
		}
	}
	return nil
}

// CancelBatch marks a batch for cancellation. Queued jobs are removed before
// they ever start; in-progress jobs settle once their in-flight call returns;
// completed and failed jobs are untouched. Safe to call repeatedly.
func (s *Scheduler) CancelBatch(batchID string) {
	s.mu.Lock()
	s.cancelled[batchID] = true
	var removed []string
	for id, job := range s.jobs {
		if job.BatchID != batchID || job.Status != models.JobStatusQueued {
			continue
		}
		s.queue.Remove(id)
		delete(s.jobs, id)
		delete(s.attempts, id)
		removed = append(removed, id)
	}
	s.mu.Unlock()

	if s.store != nil {
		for _, id := range removed {
			if err := s.store.RecordTransition(s.ctx, id, models.JobStatusQueued, models.JobStatusFailed, "batch_cancelled"); err != nil {
				log.Printf("Failed to record cancellation of job %s: %v", id, err)
			}
		}
	}
}

func (s *Scheduler) batchCancelled(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	return ok && s.cancelled[job.BatchID]
}

func (s *Scheduler) finalizeCancelled(jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status != models.JobStatusInProgress {
		s.mu.Unlock()
		return
	}

	rec := models.ErrorRecord{
		Category:   models.ErrorUnknown,
		Message:    "batch cancelled",
		OccurredAt: s.cfg.Clock(),
		Retryable:  false,
	}
	job.Status = models.JobStatusFailed
	job.Progress = nil
	job.ErrorInfo = &rec
	s.inFlight--
	s.settleAttemptsLocked(jobID, models.AttemptFailed)

	snapshot := cloneJob(job)
	s.dispatchLocked()
	s.mu.Unlock()

	from := models.JobStatusInProgress
	s.notify(snapshot, &from, "batch_cancelled")
}

// GetStatus returns a snapshot of one job.
func (s *Scheduler) GetStatus(jobID string) (models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return models.GenerationJob{}, ErrJobNotFound
	}
	return cloneJob(job), nil
}

// GetQueuedJobs returns a snapshot of all queued jobs, earliest first.
// Later scheduler mutation is not visible through the returned slice.
func (s *Scheduler) GetQueuedJobs() []models.GenerationJob {
	return s.jobsWithStatus(models.JobStatusQueued)
}

// GetInProgressJobs returns a snapshot of all in-progress jobs.
func (s *Scheduler) GetInProgressJobs() []models.GenerationJob {
	return s.jobsWithStatus(models.JobStatusInProgress)
}

func (s *Scheduler) jobsWithStatus(status models.JobStatus) []models.GenerationJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.GenerationJob
	for _, job := range s.jobs {
		if job.Status == status {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuedAt.Before(out[j].QueuedAt) })
	return out
}

// GetQueueSummary returns aggregate counts across all tracked jobs.
func (s *Scheduler) GetQueueSummary() models.QueueSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var summary models.QueueSummary
	for _, job := range s.jobs {
		switch job.Status {
		case models.JobStatusQueued:
			summary.QueuedCount++
		case models.JobStatusInProgress:
			summary.InProgressCount++
		case models.JobStatusCompleted:
			summary.CompletedCount++
		case models.JobStatusFailed:
			summary.FailedCount++
		}
	}
	return summary
}

// GetBatchStatus derives the aggregate view of one batch from a consistent
// snapshot: no job is counted in two buckets.
func (s *Scheduler) GetBatchStatus(batchID string) models.BatchSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := models.BatchSummary{BatchID: batchID}
	for _, job := range s.jobs {
		if job.BatchID != batchID {
			continue
		}
		summary.Total++
		switch job.Status {
		case models.JobStatusQueued:
			summary.Queued++
		case models.JobStatusInProgress:
			summary.InProgress++
		case models.JobStatusCompleted:
			summary.Completed++
		case models.JobStatusFailed:
			summary.Failed++
		}
	}

	// Empty batches are an explicit case, not a precedence fallthrough.
	switch {
	case summary.Total == 0:
		summary.Status = models.BatchInitializing
	case summary.Completed == summary.Total:
		summary.Status = models.BatchCompleted
	case summary.Failed == summary.Total:
		summary.Status = models.BatchFailed
	case summary.Queued+summary.InProgress == 0:
		summary.Status = models.BatchPartial
	default:
		summary.Status = models.BatchGenerating
	}

	if summary.Total > 0 {
		summary.ProgressPercentage = int(math.Round(float64(summary.Completed) / float64(summary.Total) * 100))
	}

	if remaining := summary.Queued + summary.InProgress; remaining > 0 {
		waves := (remaining + s.cfg.MaxConcurrent - 1) / s.cfg.MaxConcurrent
		summary.EstimatedCompletion = time.Duration(waves) * s.cfg.AvgJobDuration
	}
	return summary
}

// GetRetryAttempts returns the audit trail of retries for one job.
func (s *Scheduler) GetRetryAttempts(jobID string) []models.RetryAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.RetryAttempt, len(s.attempts[jobID]))
	copy(out, s.attempts[jobID])
	return out
}

// settleAttemptsLocked stamps the outcome on the latest pending attempt.
// Callers must hold s.mu.
func (s *Scheduler) settleAttemptsLocked(jobID string, outcome models.AttemptOutcome) {
	attempts := s.attempts[jobID]
	for i := len(attempts) - 1; i >= 0; i-- {
		if attempts[i].Outcome == models.AttemptPending {
			attempts[i].Outcome = outcome
			return
		}
	}
}

// notify pushes a job snapshot to the durable store and the tracking board.
// Both are best-effort here: the in-memory state already transitioned.
// Callers invoke it in transition order for any one job, so the durable
// record never moves backwards.
func (s *Scheduler) notify(snapshot models.GenerationJob, from *models.JobStatus, reason string) {
	if s.store != nil {
		if err := s.store.UpdateJob(s.ctx, snapshot); err != nil {
			log.Printf("Failed to persist job %s: %v", snapshot.ID, err)
		}
		if from != nil {
			if err := s.store.RecordTransition(s.ctx, snapshot.ID, *from, snapshot.Status, reason); err != nil {
				log.Printf("Failed to record transition for job %s: %v", snapshot.ID, err)
			}
		}
	}
	if s.tracker != nil {
		if err := s.tracker.PublishJobStatus(s.ctx, s.statusUpdate(snapshot)); err != nil {
			log.Printf("Tracking write failed for job %s: %v", snapshot.ID, err)
		}
	}
}

func (s *Scheduler) statusUpdate(job models.GenerationJob) models.StatusUpdate {
	update := models.StatusUpdate{
		JobID:    job.ID,
		BatchID:  job.BatchID,
		Status:   job.Status,
		Model:    job.Model,
		Duration: job.Duration,
		Progress: job.Progress,
		Error:    job.ErrorInfo,
		At:       s.cfg.Clock(),
	}
	if job.ResultAssetRef != nil {
		update.ResultAssetRef = *job.ResultAssetRef
	}
	return update
}

// cloneJob copies a job including its pointer fields, so snapshots cannot be
// mutated out from under callers.
func cloneJob(job *models.GenerationJob) models.GenerationJob {
	out := *job
	if job.Progress != nil {
		p := *job.Progress
		out.Progress = &p
	}
	if job.ExternalID != nil {
		v := *job.ExternalID
		out.ExternalID = &v
	}
	if job.ResultAssetRef != nil {
		v := *job.ResultAssetRef
		out.ResultAssetRef = &v
	}
	if job.ErrorInfo != nil {
		v := *job.ErrorInfo
		out.ErrorInfo = &v
	}
	if job.StartedAt != nil {
		v := *job.StartedAt
		out.StartedAt = &v
	}
	if job.CompletedAt != nil {
		v := *job.CompletedAt
		out.CompletedAt = &v
	}
	return out
}

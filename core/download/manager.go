package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"video-orchestrator/core/failure"
	"video-orchestrator/core/models"
	"video-orchestrator/core/retry"
)

// AssetFetcher streams a finished asset from the generation API.
type AssetFetcher interface {
	FetchAsset(ctx context.Context, externalID, variant string) (io.ReadCloser, error)
}

// AssetStore is where fetched assets land durably.
type AssetStore interface {
	Put(ctx context.Context, key string, body io.Reader) (string, error)
}

// Store optionally persists download jobs across restarts.
type Store interface {
	SaveDownload(ctx context.Context, job models.DownloadJob) error
	UpdateDownload(ctx context.Context, job models.DownloadJob) error
}

var (
	// ErrDownloadNotFound is returned for an unknown asset ref.
	ErrDownloadNotFound = errors.New("download: asset not tracked")
	// ErrExpired is returned when a retry targets an asset whose signed URL
	// has lapsed; the source job must be regenerated instead.
	ErrExpired = errors.New("download: asset url expired")
	// ErrNotRetryable is returned when a retry targets a download that is not
	// in a failed state.
	ErrNotRetryable = errors.New("download: only failed downloads can be retried")
)

// Config holds download manager tuning. Zero values fall back to defaults.
type Config struct {
	MaxConcurrent int
	MaxAttempts   int
	FetchTimeout  time.Duration
	Variant       string // asset variant requested from the generation API
	Clock         func() time.Time
}

func (c *Config) withDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 2
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 5 * time.Minute
	}
	if c.Variant == "" {
		c.Variant = "source"
	}
	if c.Clock == nil {
		c.Clock = func() time.Time { return time.Now().UTC() }
	}
}

// Manager tracks post-completion asset retrieval. It runs the same kind of
// bounded-concurrency state machine as the generation scheduler, but download
// jobs carry a hard external expiry generation jobs do not, and a failed
// download never implies the source generation failed. Expiry is a computed
// property of now versus expiresAt, checked lazily on every read; there is no
// background expiry timer.
type Manager struct {
	cfg     Config
	fetcher AssetFetcher
	assets  AssetStore
	store   Store // optional
	policy  *retry.Policy

	mu       sync.Mutex
	jobs     map[string]*models.DownloadJob
	queue    []string
	inFlight int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a download manager. Fetcher and assets are required;
// store may be nil. A nil policy uses the default backoff.
func NewManager(cfg Config, fetcher AssetFetcher, assets AssetStore, store Store, policy *retry.Policy) *Manager {
	cfg.withDefaults()
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:     cfg,
		fetcher: fetcher,
		assets:  assets,
		store:   store,
		policy:  policy,
		jobs:    make(map[string]*models.DownloadJob),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop halts all in-flight downloads.
func (m *Manager) Stop() {
	m.cancel()
}

// Track registers a completed generation's asset for retrieval before its
// signed URL expires. Tracking the same asset ref twice is a no-op.
func (m *Manager) Track(assetRef, externalID string, expiresAt time.Time) {
	m.mu.Lock()
	if _, exists := m.jobs[assetRef]; exists {
		m.mu.Unlock()
		return
	}

	job := &models.DownloadJob{
		AssetRef:   assetRef,
		ExternalID: externalID,
		Status:     models.DownloadPending,
		ExpiresAt:  expiresAt,
		CreatedAt:  m.cfg.Clock(),
	}
	m.jobs[assetRef] = job
	m.queue = append(m.queue, assetRef)
	snapshot := *job
	m.dispatchLocked()
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.SaveDownload(m.ctx, snapshot); err != nil {
			log.Printf("Failed to persist download %s: %v", assetRef, err)
		}
	}
}

// dispatchLocked starts pending downloads until the concurrency cap is
// reached. Callers must hold m.mu.
func (m *Manager) dispatchLocked() {
	for m.inFlight < m.cfg.MaxConcurrent && len(m.queue) > 0 {
		assetRef := m.queue[0]
		m.queue = m.queue[1:]

		job, exists := m.jobs[assetRef]
		if !exists || job.Status != models.DownloadPending {
			continue
		}
		if m.expireLocked(job) {
			continue
		}

		job.Status = models.DownloadDownloading
		m.inFlight++
		go m.run(assetRef, job.ExternalID)
	}
}

func (m *Manager) run(assetRef, externalID string) {
	ctx, cancel := context.WithTimeout(m.ctx, m.cfg.FetchTimeout)
	defer cancel()

	uri, err := m.transfer(ctx, assetRef, externalID)
	if err != nil {
		m.settleFailure(assetRef, err)
		return
	}

	m.mu.Lock()
	job, ok := m.jobs[assetRef]
	if !ok || job.Status != models.DownloadDownloading {
		m.mu.Unlock()
		return
	}
	now := m.cfg.Clock()
	job.Status = models.DownloadCompleted
	job.StorageURI = uri
	job.CompletedAt = &now
	job.LastError = ""
	m.inFlight--
	snapshot := *job
	m.dispatchLocked()
	m.mu.Unlock()

	m.persist(snapshot)
}

func (m *Manager) transfer(ctx context.Context, assetRef, externalID string) (string, error) {
	body, err := m.fetcher.FetchAsset(ctx, externalID, m.cfg.Variant)
	if err != nil {
		return "", &failure.DownloadError{Err: err}
	}
	defer body.Close()

	uri, err := m.assets.Put(ctx, assetRef, body)
	if err != nil {
		return "", &failure.DownloadError{Err: err}
	}
	return uri, nil
}

func (m *Manager) settleFailure(assetRef string, cause error) {
	rec := failure.Classify(cause)

	m.mu.Lock()
	job, ok := m.jobs[assetRef]
	if !ok || job.Status != models.DownloadDownloading {
		m.mu.Unlock()
		return
	}

	job.Attempts++
	job.Status = models.DownloadFailed
	job.LastError = rec.Message
	m.inFlight--

	now := m.cfg.Clock()
	autoRetry := job.Attempts < m.cfg.MaxAttempts && now.Before(job.ExpiresAt)
	delay := m.policy.Delay(job.Attempts, models.ErrorDownload)
	snapshot := *job
	m.dispatchLocked()
	m.mu.Unlock()

	m.persist(snapshot)
	if autoRetry {
		time.AfterFunc(delay, func() { m.requeue(assetRef) })
	}
}

func (m *Manager) requeue(assetRef string) {
	select {
	case <-m.ctx.Done():
		return
	default:
	}

	m.mu.Lock()
	job, ok := m.jobs[assetRef]
	if !ok || job.Status != models.DownloadFailed || m.expireLocked(job) {
		m.mu.Unlock()
		return
	}
	job.Status = models.DownloadPending
	m.queue = append(m.queue, assetRef)
	m.dispatchLocked()
	m.mu.Unlock()
}

// RetryDownload re-enqueues a failed download at the operator's request. It
// fails with ErrExpired once the signed URL has lapsed: expired assets need
// their source job regenerated, which is the scheduler's concern.
func (m *Manager) RetryDownload(assetRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[assetRef]
	if !ok {
		return ErrDownloadNotFound
	}
	if m.expireLocked(job) {
		return fmt.Errorf("%w: asset %s", ErrExpired, assetRef)
	}
	if job.Status != models.DownloadFailed {
		return ErrNotRetryable
	}

	job.Status = models.DownloadPending
	m.queue = append(m.queue, assetRef)
	m.dispatchLocked()
	return nil
}

// GetDownloadStatus returns a snapshot of one download job.
func (m *Manager) GetDownloadStatus(assetRef string) (models.DownloadJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[assetRef]
	if !ok {
		return models.DownloadJob{}, ErrDownloadNotFound
	}
	m.expireLocked(job)
	return *job, nil
}

// GetPendingDownloads returns a snapshot of downloads still waiting for a
// slot, oldest first.
func (m *Manager) GetPendingDownloads() []models.DownloadJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.DownloadJob
	for _, job := range m.jobs {
		m.expireLocked(job)
		if job.Status == models.DownloadPending {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// GetExpiringDownloads returns unfinished downloads whose signed URL lapses
// within the window, soonest first. Operators use this to act before assets
// become unrecoverable.
func (m *Manager) GetExpiringDownloads(window time.Duration) []models.DownloadJob {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.cfg.Clock()
	var out []models.DownloadJob
	for _, job := range m.jobs {
		m.expireLocked(job)
		switch job.Status {
		case models.DownloadCompleted, models.DownloadExpired:
			continue
		}
		if job.ExpiresAt.Sub(now) <= window {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out
}

// GetDownloadSummary returns aggregate counts across all tracked downloads.
func (m *Manager) GetDownloadSummary() models.DownloadSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	var summary models.DownloadSummary
	for _, job := range m.jobs {
		m.expireLocked(job)
		switch job.Status {
		case models.DownloadPending:
			summary.PendingCount++
		case models.DownloadDownloading:
			summary.DownloadingCount++
		case models.DownloadCompleted:
			summary.CompletedCount++
		case models.DownloadFailed:
			summary.FailedCount++
		case models.DownloadExpired:
			summary.ExpiredCount++
		}
	}
	return summary
}

// expireLocked applies the lazy expiry transition and reports whether the job
// is expired. Jobs already completed never expire; an in-flight transfer is
// left to finish or fail on its own. Callers must hold m.mu.
func (m *Manager) expireLocked(job *models.DownloadJob) bool {
	if job.Status == models.DownloadExpired {
		return true
	}
	if job.Status == models.DownloadCompleted || job.Status == models.DownloadDownloading {
		return false
	}
	if m.cfg.Clock().Before(job.ExpiresAt) {
		return false
	}

	job.Status = models.DownloadExpired
	snapshot := *job
	if m.store != nil {
		go func() {
			if err := m.store.UpdateDownload(m.ctx, snapshot); err != nil {
				log.Printf("Failed to persist expiry of download %s: %v", snapshot.AssetRef, err)
			}
		}()
	}
	return true
}

func (m *Manager) persist(snapshot models.DownloadJob) {
	if m.store == nil {
		return
	}
	if err := m.store.UpdateDownload(m.ctx, snapshot); err != nil {
		log.Printf("Failed to persist download %s: %v", snapshot.AssetRef, err)
	}
}

package models

import "time"

// GenerationJob represents one request to produce a single video variant
type GenerationJob struct {
	ID             string
	BatchID        string
	Prompt         string
	Model          VideoModel
	Duration       Duration
	AspectRatio    AspectRatio
	Status         JobStatus
	Progress       *int    // 0-100, set only while in progress
	ExternalID     *string // identifier assigned by the generation API on accept
	ResultAssetRef *string // set only on completion
	ErrorInfo      *ErrorRecord
	RetryCount     int
	QueuedAt       time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
}

// VideoModel is the generation model tier
type VideoModel string

const (
	ModelStandard VideoModel = "standard"
	ModelPro      VideoModel = "pro"
)

// Valid reports whether the model is one of the supported tiers.
func (m VideoModel) Valid() bool {
	return m == ModelStandard || m == ModelPro
}

// Duration is the requested clip length in seconds
type Duration int

const (
	DurationShort  Duration = 5
	DurationMedium Duration = 10
	DurationLong   Duration = 20
)

// Valid reports whether the duration is one of the supported clip lengths.
func (d Duration) Valid() bool {
	return d == DurationShort || d == DurationMedium || d == DurationLong
}

// AspectRatio is the output frame aspect ratio
type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

// Valid reports whether the aspect ratio is supported.
func (a AspectRatio) Valid() bool {
	return a == AspectLandscape || a == AspectPortrait || a == AspectSquare
}

// JobStatus represents the current status of a generation job
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ErrorCategory classifies a job failure
type ErrorCategory string

const (
	ErrorContentPolicy ErrorCategory = "content_policy"
	ErrorTransientAPI  ErrorCategory = "transient_api_error"
	ErrorRateLimited   ErrorCategory = "rate_limited"
	ErrorTimeout       ErrorCategory = "timeout"
	ErrorDownload      ErrorCategory = "download_failed"
	ErrorUnknown       ErrorCategory = "unknown"
)

// ErrorRecord captures a classified job failure
type ErrorRecord struct {
	Category   ErrorCategory
	Message    string
	OccurredAt time.Time
	Retryable  bool
}

// AttemptOutcome is the recorded result of a retry attempt
type AttemptOutcome string

const (
	AttemptPending   AttemptOutcome = "pending"
	AttemptSucceeded AttemptOutcome = "succeeded"
	AttemptFailed    AttemptOutcome = "failed"
)

// RetryAttempt is an auditable record of one retry of a failed job
type RetryAttempt struct {
	AttemptNumber        int
	Timestamp            time.Time
	PreviousErrorSummary string
	ModifiedInput        string // e.g. an operator-edited prompt; empty if unchanged
	Outcome              AttemptOutcome
}

// BatchStatus is the derived aggregate status of a batch
type BatchStatus string

const (
	BatchInitializing BatchStatus = "initializing"
	BatchGenerating   BatchStatus = "generating"
	BatchCompleted    BatchStatus = "completed"
	BatchPartial      BatchStatus = "partial"
	BatchFailed       BatchStatus = "failed"
)

// BatchSummary is a derived aggregate view of one batch. It is computed on
// demand and never stored.
type BatchSummary struct {
	BatchID             string
	Total               int
	Queued              int
	InProgress          int
	Completed           int
	Failed              int
	Status              BatchStatus
	ProgressPercentage  int
	EstimatedCompletion time.Duration // zero once no jobs remain
}

// QueueSummary is an aggregate view of the whole scheduler
type QueueSummary struct {
	QueuedCount     int
	InProgressCount int
	CompletedCount  int
	FailedCount     int
}

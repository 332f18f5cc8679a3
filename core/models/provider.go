package models

import "time"

// GenerationRequest is the input contract of the external generation capability
type GenerationRequest struct {
	JobID       string
	Prompt      string
	Model       VideoModel
	Duration    Duration
	AspectRatio AspectRatio
}

// SubmitResult is returned by the generation capability when a job is accepted
type SubmitResult struct {
	ExternalID string
	State      GenerationState
}

// PollResult is one status observation of an external generation job
type PollResult struct {
	State          GenerationState
	Progress       int // 0-100, meaningful while rendering
	AssetRef       string
	AssetExpiresAt time.Time // signed-URL lifetime for the result asset
	Message        string    // vendor-supplied detail on failure/rejection
}

// GenerationState is the status vocabulary of the external generation API
type GenerationState string

const (
	StateAccepted  GenerationState = "accepted"
	StateRendering GenerationState = "rendering"
	StateSucceeded GenerationState = "succeeded"
	StateFailed    GenerationState = "failed"
	StateRejected  GenerationState = "rejected" // content moderation
)

// JobStatus maps an external generation state onto a job status. The mapping
// is total: any state the vendor adds later falls through to in-progress, so
// an unrecognized value keeps the job live rather than misclassifying it as
// terminal.
func (s GenerationState) JobStatus() JobStatus {
	switch s {
	case StateSucceeded:
		return JobStatusCompleted
	case StateFailed, StateRejected:
		return JobStatusFailed
	case StateAccepted, StateRendering:
		return JobStatusInProgress
	default:
		return JobStatusInProgress
	}
}

// Terminal reports whether the external state is final.
func (s GenerationState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateRejected
}

// BillingAccount identifies the upstream account a cost component is billed to
type BillingAccount string

const (
	AccountVideoAPI BillingAccount = "video_api"
	AccountLLM      BillingAccount = "llm"
	AccountStorage  BillingAccount = "storage"
)

// BillingAccounts lists every account costs may be attributed to.
var BillingAccounts = []BillingAccount{AccountVideoAPI, AccountLLM, AccountStorage}

// StatusUpdate is the record pushed to the external tracking store whenever a
// job changes state. Tracking is best-effort and never authoritative.
type StatusUpdate struct {
	JobID          string
	BatchID        string
	Status         JobStatus
	Model          VideoModel
	Duration       Duration
	Progress       *int
	ResultAssetRef string
	Error          *ErrorRecord
	At             time.Time
}

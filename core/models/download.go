package models

import "time"

// DownloadStatus represents the current status of a download job
type DownloadStatus string

const (
	DownloadPending     DownloadStatus = "pending"
	DownloadDownloading DownloadStatus = "downloading"
	DownloadCompleted   DownloadStatus = "completed"
	DownloadFailed      DownloadStatus = "failed"
	DownloadExpired     DownloadStatus = "expired"
)

// DownloadJob tracks retrieval of one generated asset. The generation API
// hands out time-limited signed URLs; once ExpiresAt passes, an incomplete
// download can no longer be retried without regenerating the source job.
type DownloadJob struct {
	AssetRef    string
	ExternalID  string
	Status      DownloadStatus
	ExpiresAt   time.Time
	Attempts    int
	StorageURI  string // where the asset landed once completed
	LastError   string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// DownloadSummary is an aggregate view of the download manager
type DownloadSummary struct {
	PendingCount     int
	DownloadingCount int
	CompletedCount   int
	FailedCount      int
	ExpiredCount     int
}

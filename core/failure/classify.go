package failure

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"video-orchestrator/core/models"
)

// APIError is a non-2xx response from the generation API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation API returned %d: %s", e.StatusCode, e.Body)
}

// ModerationError is a content-policy rejection from the generation API.
type ModerationError struct {
	Reason string
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("content rejected by moderation: %s", e.Reason)
}

// DownloadError wraps an asset-fetch failure that happened after the
// generation job itself succeeded.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string { return "asset download failed: " + e.Err.Error() }
func (e *DownloadError) Unwrap() error { return e.Err }

// retryable is the single source of truth for retryability per category.
// No other component re-derives it.
var retryable = map[models.ErrorCategory]bool{
	models.ErrorContentPolicy: false,
	models.ErrorTransientAPI:  true,
	models.ErrorRateLimited:   true,
	models.ErrorTimeout:       true,
	models.ErrorDownload:      true,
	models.ErrorUnknown:       true, // conservatively retryable, bounded attempts
}

// Retryable reports whether the category permits automatic retry.
func Retryable(category models.ErrorCategory) bool {
	return retryable[category]
}

// Classify maps a raw failure into a typed error record. HTTP 4xx other than
// 429 and moderation rejections are content-policy failures; 429 is rate
// limiting; 5xx and connection errors are transient; deadline and network
// timeouts are timeouts; anything unmapped is unknown.
func Classify(err error) models.ErrorRecord {
	category := categorize(err)
	return models.ErrorRecord{
		Category:   category,
		Message:    err.Error(),
		OccurredAt: time.Now().UTC(),
		Retryable:  retryable[category],
	}
}

func categorize(err error) models.ErrorCategory {
	var moderation *ModerationError
	if errors.As(err, &moderation) {
		return models.ErrorContentPolicy
	}

	var download *DownloadError
	if errors.As(err, &download) {
		return models.ErrorDownload
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return models.ErrorRateLimited
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return models.ErrorContentPolicy
		case apiErr.StatusCode >= 500:
			return models.ErrorTransientAPI
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.ErrorTimeout
		}
		return models.ErrorTransientAPI
	}

	return models.ErrorUnknown
}

package failure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"video-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

type connErr struct{}

func (connErr) Error() string   { return "connection refused" }
func (connErr) Timeout() bool   { return false }
func (connErr) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  models.ErrorCategory
		retryable bool
	}{
		{"moderation rejection", &ModerationError{Reason: "violence"}, models.ErrorContentPolicy, false},
		{"http 400", &APIError{StatusCode: 400}, models.ErrorContentPolicy, false},
		{"http 422", &APIError{StatusCode: 422}, models.ErrorContentPolicy, false},
		{"http 429", &APIError{StatusCode: 429}, models.ErrorRateLimited, true},
		{"http 500", &APIError{StatusCode: 500}, models.ErrorTransientAPI, true},
		{"http 503", &APIError{StatusCode: 503}, models.ErrorTransientAPI, true},
		{"deadline exceeded", context.DeadlineExceeded, models.ErrorTimeout, true},
		{"wrapped deadline", fmt.Errorf("poll: %w", context.DeadlineExceeded), models.ErrorTimeout, true},
		{"network timeout", timeoutErr{}, models.ErrorTimeout, true},
		{"connection refused", connErr{}, models.ErrorTransientAPI, true},
		{"asset fetch failure", &DownloadError{Err: errors.New("truncated body")}, models.ErrorDownload, true},
		{"wrapped api error", fmt.Errorf("submit: %w", &APIError{StatusCode: 429}), models.ErrorRateLimited, true},
		{"unmapped", errors.New("something odd"), models.ErrorUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Classify(tt.err)
			assert.Equal(t, tt.category, rec.Category)
			assert.Equal(t, tt.retryable, rec.Retryable)
			assert.NotEmpty(t, rec.Message)
			assert.False(t, rec.OccurredAt.IsZero())
		})
	}
}

func TestRetryable_MatchesClassification(t *testing.T) {
	assert.False(t, Retryable(models.ErrorContentPolicy))
	assert.True(t, Retryable(models.ErrorRateLimited))
	assert.True(t, Retryable(models.ErrorUnknown))
}

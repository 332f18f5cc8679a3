package retry

import (
	"fmt"
	"time"

	"video-orchestrator/core/models"
)

// Policy decides whether a failed job is retried automatically and with what
// delay. It never resubmits jobs itself; the scheduler owns resubmission.
type Policy struct {
	// BaseDelay seeds the exponential backoff for most retryable categories.
	BaseDelay time.Duration
	// RateLimitedBaseDelay seeds backoff for rate-limit failures; the upstream
	// API needs longer to shed load than a blip needs to pass.
	RateLimitedBaseDelay time.Duration
	// MaxDelay caps the backoff regardless of attempt count.
	MaxDelay time.Duration
}

// DefaultPolicy returns the production backoff configuration.
func DefaultPolicy() *Policy {
	return &Policy{
		BaseDelay:            2 * time.Second,
		RateLimitedBaseDelay: 30 * time.Second,
		MaxDelay:             5 * time.Minute,
	}
}

// ShouldAutoRetry reports whether a failed attempt should be re-enqueued
// automatically. Always false once attemptCount reaches maxAttempts or when
// the error category is non-retryable, regardless of category.
func (p *Policy) ShouldAutoRetry(rec models.ErrorRecord, attemptCount, maxAttempts int) bool {
	if attemptCount >= maxAttempts {
		return false
	}
	return rec.Retryable
}

// Delay returns the backoff before retry attemptCount for the given category:
// exponential from the category base, capped at MaxDelay.
func (p *Policy) Delay(attemptCount int, category models.ErrorCategory) time.Duration {
	base := p.BaseDelay
	if category == models.ErrorRateLimited {
		base = p.RateLimitedBaseDelay
	}
	if attemptCount < 1 {
		attemptCount = 1
	}

	delay := base
	for i := 1; i < attemptCount; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// NewAttempt builds an auditable retry-attempt record. It is a pure
// constructor: recording an attempt does not resubmit the job.
func NewAttempt(attemptNumber int, previousErrorSummary, modifiedInput string) (models.RetryAttempt, error) {
	if attemptNumber < 1 {
		return models.RetryAttempt{}, fmt.Errorf("retry: attempt number must be >= 1, got %d", attemptNumber)
	}
	return models.RetryAttempt{
		AttemptNumber:        attemptNumber,
		Timestamp:            time.Now().UTC(),
		PreviousErrorSummary: previousErrorSummary,
		ModifiedInput:        modifiedInput,
		Outcome:              models.AttemptPending,
	}, nil
}

package tracking

import (
	"context"
	"encoding/json"
	"time"

	"video-orchestrator/core/models"

	"github.com/redis/go-redis/v9"
)

// Tracker is the status board backing store. All tracking writes go through
// here. Implementations must be safe for concurrent use.
type Tracker interface {
	PublishJobStatus(ctx context.Context, update models.StatusUpdate) error
	PublishBatchSummary(ctx context.Context, summary models.BatchSummary) error
	GetJobStatus(ctx context.Context, jobID string) (models.StatusUpdate, bool, error)
	GetBatchSummary(ctx context.Context, batchID string) (models.BatchSummary, bool, error)
	Ping(ctx context.Context) error
}

// RedisTracker implements the Tracker interface using go-redis/v9. Entries
// carry a TTL so the board self-cleans after a batch goes quiet.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTracker creates a new RedisTracker from a Redis URL.
func NewRedisTracker(redisURL string, ttl time.Duration) (*RedisTracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTracker{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (t *RedisTracker) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *RedisTracker) PublishJobStatus(ctx context.Context, update models.StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return t.client.Set(ctx, JobStatusKey(update.JobID), payload, t.ttl).Err()
}

func (t *RedisTracker) GetJobStatus(ctx context.Context, jobID string) (models.StatusUpdate, bool, error) {
	val, err := t.client.Get(ctx, JobStatusKey(jobID)).Bytes()
	if err == redis.Nil {
		return models.StatusUpdate{}, false, nil
	}
	if err != nil {
		return models.StatusUpdate{}, false, err
	}
	var update models.StatusUpdate
	if err := json.Unmarshal(val, &update); err != nil {
		return models.StatusUpdate{}, false, err
	}
	return update, true, nil
}

func (t *RedisTracker) PublishBatchSummary(ctx context.Context, summary models.BatchSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return t.client.Set(ctx, BatchSummaryKey(summary.BatchID), payload, t.ttl).Err()
}

func (t *RedisTracker) GetBatchSummary(ctx context.Context, batchID string) (models.BatchSummary, bool, error) {
	val, err := t.client.Get(ctx, BatchSummaryKey(batchID)).Bytes()
	if err == redis.Nil {
		return models.BatchSummary{}, false, nil
	}
	if err != nil {
		return models.BatchSummary{}, false, err
	}
	var summary models.BatchSummary
	if err := json.Unmarshal(val, &summary); err != nil {
		return models.BatchSummary{}, false, err
	}
	return summary, true, nil
}

package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"video-orchestrator/core/models"
	"video-orchestrator/core/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupDB connects to the Postgres named by TEST_DATABASE_URL, or skips.
func setupDB(t *testing.T) *repository.DB {
	t.Helper()
	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}
	db, err := repository.NewDB(databaseURL)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })
	return db
}

func testJob(batchID string) models.GenerationJob {
	return models.GenerationJob{
		ID:          uuid.NewString(),
		BatchID:     batchID,
		Prompt:      "a product reveal over a marble counter",
		Model:       models.ModelStandard,
		Duration:    models.DurationMedium,
		AspectRatio: models.AspectLandscape,
		Status:      models.JobStatusQueued,
		QueuedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSaveJobs_Roundtrip(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewJobRepository(db)
	ctx := context.Background()

	batchID := uuid.NewString()
	jobs := []models.GenerationJob{testJob(batchID), testJob(batchID)}
	require.NoError(t, repo.SaveJobs(ctx, jobs))

	got, err := repo.GetJob(ctx, jobs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, jobs[0].Prompt, got.Prompt)
	assert.Equal(t, models.JobStatusQueued, got.Status)
	assert.Nil(t, got.Progress)
	assert.Nil(t, got.ErrorInfo)

	byBatch, err := repo.ListJobsByBatch(ctx, batchID)
	require.NoError(t, err)
	assert.Len(t, byBatch, 2)
}

func TestSaveJobs_RecordsSubmissionEvent(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewJobRepository(db)
	events := repository.NewEventRepository(db)
	ctx := context.Background()

	job := testJob(uuid.NewString())
	require.NoError(t, repo.SaveJobs(ctx, []models.GenerationJob{job}))

	got, err := events.GetJobEvents(ctx, job.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].FromStatus)
	assert.Equal(t, models.JobStatusQueued, got[0].ToStatus)
	assert.Equal(t, "job_submitted", got[0].Reason)
}

func TestUpdateJob_PersistsFailureDetail(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewJobRepository(db)
	ctx := context.Background()

	job := testJob(uuid.NewString())
	require.NoError(t, repo.SaveJobs(ctx, []models.GenerationJob{job}))

	job.Status = models.JobStatusFailed
	job.RetryCount = 2
	job.ErrorInfo = &models.ErrorRecord{
		Category:   models.ErrorRateLimited,
		Message:    "429 from generation api",
		OccurredAt: time.Now().UTC().Truncate(time.Microsecond),
		Retryable:  true,
	}
	require.NoError(t, repo.UpdateJob(ctx, job))

	got, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, 2, got.RetryCount)
	require.NotNil(t, got.ErrorInfo)
	assert.Equal(t, models.ErrorRateLimited, got.ErrorInfo.Category)
	assert.True(t, got.ErrorInfo.Retryable)
}

func TestRecordTransition_UpdatesStatusAndAppendsEvent(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewJobRepository(db)
	events := repository.NewEventRepository(db)
	ctx := context.Background()

	job := testJob(uuid.NewString())
	require.NoError(t, repo.SaveJobs(ctx, []models.GenerationJob{job}))

	require.NoError(t, repo.RecordTransition(ctx, job.ID, models.JobStatusQueued, models.JobStatusInProgress, "slot_acquired"))

	got, err := repo.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusInProgress, got.Status)

	history, err := events.GetJobEvents(ctx, job.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// newest first
	assert.Equal(t, "slot_acquired", history[0].Reason)
	require.NotNil(t, history[0].FromStatus)
	assert.Equal(t, models.JobStatusQueued, *history[0].FromStatus)
}

func TestListJobsByStatus_OldestFirst(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewJobRepository(db)
	ctx := context.Background()

	batchID := uuid.NewString()
	older := testJob(batchID)
	older.QueuedAt = time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	newer := testJob(batchID)
	require.NoError(t, repo.SaveJobs(ctx, []models.GenerationJob{newer, older}))

	jobs, err := repo.ListJobsByStatus(ctx, models.JobStatusQueued)
	require.NoError(t, err)

	var ours []models.GenerationJob
	for _, j := range jobs {
		if j.BatchID == batchID {
			ours = append(ours, j)
		}
	}
	require.Len(t, ours, 2)
	assert.Equal(t, older.ID, ours[0].ID)
	assert.Equal(t, newer.ID, ours[1].ID)
}

func TestRecordRetryAttempt_Roundtrip(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewJobRepository(db)
	ctx := context.Background()

	job := testJob(uuid.NewString())
	require.NoError(t, repo.SaveJobs(ctx, []models.GenerationJob{job}))

	attempt := models.RetryAttempt{
		AttemptNumber:        1,
		Timestamp:            time.Now().UTC().Truncate(time.Microsecond),
		PreviousErrorSummary: "timeout polling generation api",
		ModifiedInput:        "a calmer product reveal",
		Outcome:              models.AttemptPending,
	}
	require.NoError(t, repo.RecordRetryAttempt(ctx, job.ID, attempt))

	got, err := repo.GetRetryAttempts(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, attempt.PreviousErrorSummary, got[0].PreviousErrorSummary)
	assert.Equal(t, models.AttemptPending, got[0].Outcome)
}

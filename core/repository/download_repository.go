package repository

import (
	"context"
	"database/sql"

	"video-orchestrator/core/models"
)

// DownloadRepository handles database operations for download jobs. It
// implements the download manager's store.
type DownloadRepository struct {
	db *DB
}

// NewDownloadRepository creates a new download repository
func NewDownloadRepository(db *DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// SaveDownload inserts a new download record
func (r *DownloadRepository) SaveDownload(ctx context.Context, job models.DownloadJob) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO downloads (asset_ref, external_id, status, expires_at, attempts, storage_uri, last_error, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (asset_ref) DO NOTHING
	`,
		job.AssetRef,
		job.ExternalID,
		job.Status,
		job.ExpiresAt,
		job.Attempts,
		job.StorageURI,
		job.LastError,
		job.CreatedAt,
		job.CompletedAt,
	)
	return err
}

// UpdateDownload overwrites the stored state of one download
func (r *DownloadRepository) UpdateDownload(ctx context.Context, job models.DownloadJob) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE downloads SET
			status = $2, attempts = $3, storage_uri = $4, last_error = $5, completed_at = $6
		WHERE asset_ref = $1
	`,
		job.AssetRef,
		job.Status,
		job.Attempts,
		job.StorageURI,
		job.LastError,
		job.CompletedAt,
	)
	return err
}

// ListDownloadsByStatus retrieves downloads in a given status, oldest first
func (r *DownloadRepository) ListDownloadsByStatus(ctx context.Context, status models.DownloadStatus) ([]models.DownloadJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT asset_ref, external_id, status, expires_at, attempts, storage_uri, last_error, created_at, completed_at
		FROM downloads
		WHERE status = $1
		ORDER BY created_at ASC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.DownloadJob
	for rows.Next() {
		var job models.DownloadJob
		var completedAt sql.NullTime

		if err := rows.Scan(
			&job.AssetRef,
			&job.ExternalID,
			&job.Status,
			&job.ExpiresAt,
			&job.Attempts,
			&job.StorageURI,
			&job.LastError,
			&job.CreatedAt,
			&completedAt,
		); err != nil {
			return nil, err
		}

		if completedAt.Valid {
			job.CompletedAt = &completedAt.Time
		}

		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

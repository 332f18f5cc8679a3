package repository

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

// DB wraps the sql connection pool
type DB struct {
	*sql.DB
}

// NewDB connects to Postgres and verifies the connection
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db}, nil
}

// InitSchema creates the tables if they do not exist
func (db *DB) InitSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS generation_jobs (
			id UUID PRIMARY KEY,
			batch_id UUID NOT NULL,
			prompt TEXT NOT NULL,
			model TEXT NOT NULL,
			duration_seconds INT NOT NULL,
			aspect_ratio TEXT NOT NULL,
			status TEXT NOT NULL,
			progress INT,
			external_id TEXT,
			result_asset_ref TEXT,
			error_category TEXT,
			error_message TEXT,
			error_retryable BOOLEAN,
			error_occurred_at TIMESTAMPTZ,
			retry_count INT NOT NULL DEFAULT 0,
			queued_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_generation_jobs_batch ON generation_jobs (batch_id);
		CREATE INDEX IF NOT EXISTS idx_generation_jobs_status ON generation_jobs (status);

		CREATE TABLE IF NOT EXISTS job_events (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL,
			at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			from_status TEXT,
			to_status TEXT NOT NULL,
			reason TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_job_events_job ON job_events (job_id);

		CREATE TABLE IF NOT EXISTS retry_attempts (
			id BIGSERIAL PRIMARY KEY,
			job_id UUID NOT NULL,
			attempt_number INT NOT NULL,
			at TIMESTAMPTZ NOT NULL,
			previous_error TEXT NOT NULL,
			modified_input TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_retry_attempts_job ON retry_attempts (job_id);

		CREATE TABLE IF NOT EXISTS downloads (
			asset_ref TEXT PRIMARY KEY,
			external_id TEXT NOT NULL,
			status TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			storage_uri TEXT NOT NULL DEFAULT '',
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS idx_downloads_status ON downloads (status);
	`
	_, err := db.Exec(schema)
	return err
}

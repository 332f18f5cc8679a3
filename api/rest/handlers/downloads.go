package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"video-orchestrator/core/download"
	"video-orchestrator/core/models"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	manager *download.Manager
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(manager *download.Manager) *DownloadHandler {
	return &DownloadHandler{manager: manager}
}

// DownloadResponse represents one download job
type DownloadResponse struct {
	AssetRef    string     `json:"asset_ref"`
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Attempts    int        `json:"attempts"`
	StorageURI  string     `json:"storage_uri,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func downloadResponse(job models.DownloadJob) DownloadResponse {
	return DownloadResponse{
		AssetRef:    job.AssetRef,
		Status:      string(job.Status),
		ExpiresAt:   job.ExpiresAt,
		Attempts:    job.Attempts,
		StorageURI:  job.StorageURI,
		LastError:   job.LastError,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
}

// GetDownload handles GET /v1/downloads/status. Asset refs contain slashes,
// so the ref travels as a query parameter rather than a path segment.
func (h *DownloadHandler) GetDownload(w http.ResponseWriter, r *http.Request) {
	assetRef := r.URL.Query().Get("asset_ref")
	if assetRef == "" {
		http.Error(w, "asset_ref is required", http.StatusBadRequest)
		return
	}

	job, err := h.manager.GetDownloadStatus(assetRef)
	if err != nil {
		http.Error(w, "Download not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(downloadResponse(job))
}

// RetryDownloadRequest represents the request to retry a failed download
type RetryDownloadRequest struct {
	AssetRef string `json:"asset_ref"`
}

// RetryDownload handles POST /v1/downloads/retry
func (h *DownloadHandler) RetryDownload(w http.ResponseWriter, r *http.Request) {
	var req RetryDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AssetRef == "" {
		http.Error(w, "asset_ref is required", http.StatusBadRequest)
		return
	}

	err := h.manager.RetryDownload(req.AssetRef)
	switch {
	case errors.Is(err, download.ErrDownloadNotFound):
		http.Error(w, "Download not found", http.StatusNotFound)
		return
	case errors.Is(err, download.ErrExpired):
		http.Error(w, "Asset URL expired; regenerate the source job", http.StatusGone)
		return
	case errors.Is(err, download.ErrNotRetryable):
		http.Error(w, "Only failed downloads can be retried", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "Failed to retry download: "+err.Error(), http.StatusInternalServerError)
		return
	}

	job, err := h.manager.GetDownloadStatus(req.AssetRef)
	if err != nil {
		http.Error(w, "Download not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(downloadResponse(job))
}

// GetSummary handles GET /v1/downloads
func (h *DownloadHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary := h.manager.GetDownloadSummary()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"pending_count":     summary.PendingCount,
		"downloading_count": summary.DownloadingCount,
		"completed_count":   summary.CompletedCount,
		"failed_count":      summary.FailedCount,
		"expired_count":     summary.ExpiredCount,
	})
}

// GetExpiring handles GET /v1/downloads/expiring
func (h *DownloadHandler) GetExpiring(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if param := r.URL.Query().Get("window"); param != "" {
		parsed, err := time.ParseDuration(param)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid window", http.StatusBadRequest)
			return
		}
		window = parsed
	}

	jobs := h.manager.GetExpiringDownloads(window)
	items := make([]DownloadResponse, len(jobs))
	for i, job := range jobs {
		items[i] = downloadResponse(job)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"window": window.String(),
		"items":  items,
	})
}

package videoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"video-orchestrator/core/download"
	"video-orchestrator/core/failure"
	"video-orchestrator/core/models"
	"video-orchestrator/core/scheduler"
)

// Client talks to the external video generation API. It implements both the
// scheduler's generation capability and the download manager's asset fetcher.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a new video API client. Per-operation deadlines come from
// the caller's context; the underlying transport carries no timeout of its own.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

type submitRequest struct {
	Prompt          string `json:"prompt"`
	Model           string `json:"model"`
	DurationSeconds int    `json:"duration_seconds"`
	AspectRatio     string `json:"aspect_ratio"`
	ClientReference string `json:"client_reference"`
}

type submitResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type pollResponse struct {
	State    string `json:"state"`
	Progress int    `json:"progress"`
	Asset    struct {
		Ref       string    `json:"ref"`
		ExpiresAt time.Time `json:"expires_at"`
	} `json:"asset"`
	Message string `json:"message"`
}

// Submit sends one generation request to the API.
func (c *Client) Submit(ctx context.Context, req models.GenerationRequest) (models.SubmitResult, error) {
	payload, err := json.Marshal(submitRequest{
		Prompt:          req.Prompt,
		Model:           string(req.Model),
		DurationSeconds: int(req.Duration),
		AspectRatio:     string(req.AspectRatio),
		ClientReference: req.JobID,
	})
	if err != nil {
		return models.SubmitResult{}, err
	}

	u := fmt.Sprintf("%s/v1/generations", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return models.SubmitResult{}, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return models.SubmitResult{}, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return models.SubmitResult{}, err
	}

	var body submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.SubmitResult{}, fmt.Errorf("decoding submit response: %w", err)
	}
	if body.ID == "" {
		return models.SubmitResult{}, fmt.Errorf("submit response missing generation id")
	}

	return models.SubmitResult{
		ExternalID: body.ID,
		State:      models.GenerationState(body.State),
	}, nil
}

// Poll fetches the current state of one external generation job.
func (c *Client) Poll(ctx context.Context, externalID string) (models.PollResult, error) {
	u := fmt.Sprintf("%s/v1/generations/%s", c.baseURL, externalID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.PollResult{}, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return models.PollResult{}, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return models.PollResult{}, err
	}

	var body pollResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.PollResult{}, fmt.Errorf("decoding poll response: %w", err)
	}

	return models.PollResult{
		State:          models.GenerationState(body.State),
		Progress:       body.Progress,
		AssetRef:       body.Asset.Ref,
		AssetExpiresAt: body.Asset.ExpiresAt,
		Message:        body.Message,
	}, nil
}

// FetchAsset streams one result asset. The caller owns the returned body.
func (c *Client) FetchAsset(ctx context.Context, externalID, variant string) (io.ReadCloser, error) {
	u := fmt.Sprintf("%s/v1/generations/%s/assets/%s", c.baseURL, externalID, variant)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &failure.APIError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	return resp.Body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}

// checkStatus converts a non-2xx response into a typed error. Moderation
// rejections come back as 422 with a moderation code and get their own type
// so the classifier never confuses them with other client errors.
func (c *Client) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	if resp.StatusCode == http.StatusUnprocessableEntity {
		var body submitResponse
		if err := json.Unmarshal(snippet, &body); err == nil && body.Error.Code == "moderation_blocked" {
			return &failure.ModerationError{Reason: body.Error.Message}
		}
	}

	return &failure.APIError{StatusCode: resp.StatusCode, Body: string(snippet)}
}

// Compile-time checks against the consumer interfaces.
var (
	_ scheduler.Capability  = (*Client)(nil)
	_ download.AssetFetcher = (*Client)(nil)
)

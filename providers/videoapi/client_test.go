package videoapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"video-orchestrator/core/failure"
	"video-orchestrator/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func testRequest() models.GenerationRequest {
	return models.GenerationRequest{
		JobID:       "job-1",
		Prompt:      "a sneaker rotating on a pedestal",
		Model:       models.ModelPro,
		Duration:    models.DurationMedium,
		AspectRatio: models.AspectLandscape,
	}
}

func TestSubmit_Accepted(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body submitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pro", body.Model)
		assert.Equal(t, 10, body.DurationSeconds)
		assert.Equal(t, "job-1", body.ClientReference)

		json.NewEncoder(w).Encode(map[string]string{"id": "gen-abc", "state": "accepted"})
	})

	c := NewClient(ts.URL, "test-key")
	result, err := c.Submit(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "gen-abc", result.ExternalID)
	assert.Equal(t, models.StateAccepted, result.State)
}

func TestSubmit_RateLimited(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	c := NewClient(ts.URL, "test-key")
	_, err := c.Submit(context.Background(), testRequest())

	var apiErr *failure.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestSubmit_ModerationRejection(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    "moderation_blocked",
				"message": "prompt violates content policy",
			},
		})
	})

	c := NewClient(ts.URL, "test-key")
	_, err := c.Submit(context.Background(), testRequest())

	var modErr *failure.ModerationError
	require.ErrorAs(t, err, &modErr)
	assert.Equal(t, "prompt violates content policy", modErr.Reason)
	assert.Equal(t, models.ErrorContentPolicy, failure.Classify(err).Category)
}

func TestSubmit_MissingID(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"state": "accepted"})
	})

	c := NewClient(ts.URL, "test-key")
	_, err := c.Submit(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestPoll_Rendering(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generations/gen-abc", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"state":    "rendering",
			"progress": 62,
		})
	})

	c := NewClient(ts.URL, "test-key")
	poll, err := c.Poll(context.Background(), "gen-abc")
	require.NoError(t, err)
	assert.Equal(t, models.StateRendering, poll.State)
	assert.Equal(t, 62, poll.Progress)
}

func TestPoll_Succeeded(t *testing.T) {
	expires := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"state": "succeeded",
			"asset": map[string]interface{}{
				"ref":        "assets/gen-abc/source.mp4",
				"expires_at": expires,
			},
		})
	})

	c := NewClient(ts.URL, "test-key")
	poll, err := c.Poll(context.Background(), "gen-abc")
	require.NoError(t, err)
	assert.Equal(t, models.StateSucceeded, poll.State)
	assert.Equal(t, "assets/gen-abc/source.mp4", poll.AssetRef)
	assert.Equal(t, expires, poll.AssetExpiresAt)
}

func TestPoll_ServerError(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})

	c := NewClient(ts.URL, "test-key")
	_, err := c.Poll(context.Background(), "gen-abc")

	var apiErr *failure.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, models.ErrorTransientAPI, failure.Classify(err).Category)
}

func TestPoll_ContextDeadline(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	c := NewClient(ts.URL, "test-key")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Poll(ctx, "gen-abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || failure.Classify(err).Category == models.ErrorTimeout)
}

func TestFetchAsset_StreamsBody(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generations/gen-abc/assets/source", r.URL.Path)
		w.Write([]byte("binary video payload"))
	})

	c := NewClient(ts.URL, "test-key")
	body, err := c.FetchAsset(context.Background(), "gen-abc", "source")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "binary video payload", string(data))
}

func TestFetchAsset_Gone(t *testing.T) {
	ts := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "asset expired", http.StatusGone)
	})

	c := NewClient(ts.URL, "test-key")
	_, err := c.FetchAsset(context.Background(), "gen-abc", "source")

	var apiErr *failure.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGone, apiErr.StatusCode)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.PricingFile)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("MAX_CONCURRENT", "8")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg := Load()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, 8, cfg.MaxConcurrent)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("MAX_CONCURRENT", "not-a-number")
	t.Setenv("POLL_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	// Database
	DatabaseURL string

	// Redis tracking board; empty disables tracking
	RedisURL    string
	TrackingTTL time.Duration

	// Server
	ServerPort string

	// Video generation API
	VideoAPIBaseURL string
	VideoAPIKey     string

	// Scheduling
	MaxConcurrent int
	MaxAttempts   int
	PollInterval  time.Duration
	CallTimeout   time.Duration

	// Downloads / storage
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
	DownloadSlots int

	// Pricing table override; empty uses compiled-in defaults
	PricingFile string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL:     getEnv("DATABASE_URL", "postgres://localhost/video_orchestrator?sslmode=disable"),
		RedisURL:        getEnv("REDIS_URL", ""),
		TrackingTTL:     getEnvDuration("TRACKING_TTL", 24*time.Hour),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		VideoAPIBaseURL: getEnv("VIDEO_API_BASE_URL", "https://api.videogen.example.com"),
		VideoAPIKey:     getEnv("VIDEO_API_KEY", ""),
		MaxConcurrent:   getEnvInt("MAX_CONCURRENT", 4),
		MaxAttempts:     getEnvInt("MAX_ATTEMPTS", 3),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 5*time.Second),
		CallTimeout:     getEnvDuration("CALL_TIMEOUT", 30*time.Second),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:        getEnv("S3_BUCKET", "video-orchestrator-assets"),
		S3Prefix:        getEnv("S3_PREFIX", "assets"),
		DownloadSlots:   getEnvInt("DOWNLOAD_SLOTS", 2),
		PricingFile:     getEnv("PRICING_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

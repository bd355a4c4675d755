package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Config struct {
	GraphAPIBaseURL   string
	GraphAPIVersion   string
	PostgresURI       string
	RedisURI          string
	FrontendURL       string
	R2                R2
	SecretKey         string
	PollInterval      time.Duration
	PollTimeout       time.Duration
	StepRetryLimit    int
	StepRetryBackoff  time.Duration
	StampTolerance    time.Duration
	StepCacheTTL      time.Duration
	RecoveryLookback  time.Duration
	WorkerConcurrency int
}

func LoadConfig() *Config {
	return &Config{
		GraphAPIBaseURL: getEnv("GRAPH_API_BASE_URL", "https://graph.instagram.com"),
		GraphAPIVersion: getEnv("GRAPH_API_VERSION", "v21.0"),
		PostgresURI:     getEnv("POSTGRES_URI", ""),
		RedisURI:        getEnv("REDIS_URI", ""),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		SecretKey:         getEnv("SECRET_KEY", ""),
		PollInterval:      getDuration("CONTAINER_POLL_INTERVAL", 5*time.Second),
		PollTimeout:       getDuration("CONTAINER_POLL_TIMEOUT", 5*time.Minute),
		StepRetryLimit:    getInt("PUBLISH_STEP_RETRIES", 3),
		StepRetryBackoff:  getDuration("PUBLISH_STEP_BACKOFF", time.Second),
		StampTolerance:    getDuration("SCHEDULE_STAMP_TOLERANCE", 60*time.Second),
		StepCacheTTL:      getDuration("STEP_CACHE_TTL", 24*time.Hour),
		RecoveryLookback:  getDuration("RECOVERY_LOOKBACK", 24*time.Hour),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 10),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

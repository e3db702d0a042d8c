package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Snapshot store; empty keeps sessions in memory only.
	RedisURL string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Editing sessions
	SessionTTL time.Duration

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Headline keywords, colon separated.
	TodoKeywords string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("ORGTREE_API_KEY"),

		RedisURL: os.Getenv("REDIS_URL"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		SessionTTL: envDuration("SESSION_TTL", 24*time.Hour),

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 1500),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 200),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		TodoKeywords: envOr("TODO_KEYWORDS", "TODO:DONE"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1500
	}
	if cfg.DefaultChunkOverlap < 0 {
		cfg.DefaultChunkOverlap = 200
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ORGTREE_API_KEY is required")
	}
	if c.DefaultChunkOverlap >= c.DefaultChunkSize {
		return fmt.Errorf("DEFAULT_CHUNK_OVERLAP (%d) must be smaller than DEFAULT_CHUNK_SIZE (%d)", c.DefaultChunkOverlap, c.DefaultChunkSize)
	}
	for _, kw := range strings.Split(c.TodoKeywords, ":") {
		if kw == "" || strings.ContainsAny(kw, " \t*") {
			return fmt.Errorf("TODO_KEYWORDS: invalid keyword %q", kw)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

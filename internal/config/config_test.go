package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ORGTREE_API_KEY", "k")
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected default port 8090, got %q", cfg.Port)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected 24h session TTL, got %s", cfg.SessionTTL)
	}
	if cfg.TodoKeywords != "TODO:DONE" {
		t.Errorf("expected TODO:DONE, got %q", cfg.TodoKeywords)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid default config, got %v", err)
	}
}

func TestLoad_ClampsInvalidValues(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("MAX_QUEUE_SIZE", "zero")
	t.Setenv("JOB_TTL", "-1m")
	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Errorf("expected worker count clamped to 4, got %d", cfg.WorkerCount)
	}
	if cfg.MaxQueueSize != 100 {
		t.Errorf("expected queue size fallback 100, got %d", cfg.MaxQueueSize)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected job TTL clamped to 1h, got %s", cfg.JobTTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"missing key", func(c *Config) { c.APIKey = "" }, true},
		{"overlap too large", func(c *Config) { c.DefaultChunkOverlap = c.DefaultChunkSize }, true},
		{"empty keyword", func(c *Config) { c.TodoKeywords = "TODO::DONE" }, true},
		{"keyword with space", func(c *Config) { c.TodoKeywords = "IN PROGRESS" }, true},
		{"custom keywords", func(c *Config) { c.TodoKeywords = "TODO:WAIT:DONE" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ORGTREE_API_KEY", "k")
			cfg := Load()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

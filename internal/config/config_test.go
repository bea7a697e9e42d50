package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.SchedulerInterval != 30*time.Second {
		t.Errorf("SchedulerInterval = %v, want 30s", cfg.SchedulerInterval)
	}
	if cfg.PublishTimeout != 60*time.Second {
		t.Errorf("PublishTimeout = %v, want 60s", cfg.PublishTimeout)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.FailFastPermanent {
		t.Error("FailFastPermanent should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "10")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("SCHEDULER_INTERVAL", "1m")
	t.Setenv("FAIL_FAST_PERMANENT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", cfg.Concurrency)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.SchedulerInterval != time.Minute {
		t.Errorf("SchedulerInterval = %v, want 1m", cfg.SchedulerInterval)
	}
	if !cfg.FailFastPermanent {
		t.Error("FailFastPermanent should be true")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad int", "WORKER_CONCURRENCY", "many"},
		{"bad duration", "POLL_INTERVAL", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%q: expected error", tt.key, tt.value)
			}
		})
	}
}

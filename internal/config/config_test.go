package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("OPENAI_MODEL_NAME", "")
	t.Setenv("EXTERNAL_CALL_TIMEOUT", "")
	t.Setenv("WORKER_IN_PROCESS", "")
	t.Setenv("DIRECTORY_CACHE_TTL", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %s", cfg.OpenAIModel)
	}
	if cfg.OpenAITemperature != 0.2 {
		t.Fatalf("expected default temperature 0.2, got %v", cfg.OpenAITemperature)
	}
	if cfg.ExternalCallTimeout != 15*time.Second {
		t.Fatalf("expected 15s external timeout, got %s", cfg.ExternalCallTimeout)
	}
	if cfg.StateBackend != "memory" {
		t.Fatalf("expected memory state backend, got %s", cfg.StateBackend)
	}
	if !cfg.WorkerInProcess {
		t.Fatalf("expected in-process worker by default")
	}
	if cfg.DirectoryCacheTTL != 10*time.Minute {
		t.Fatalf("expected 10m directory cache ttl, got %s", cfg.DirectoryCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STATE_BACKEND", " Postgres ")
	t.Setenv("OPENAI_TEMPERATURE", "0.5")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("STATE_TTL", "12h")
	t.Setenv("USE_MEMORY_QUEUE", "false")
	t.Setenv("WEBCHAT_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("BOOKING_ARCHIVE_BUCKET", "healthai-archive")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.StateBackend != "postgres" {
		t.Fatalf("expected normalized backend, got %q", cfg.StateBackend)
	}
	if cfg.OpenAITemperature != 0.5 {
		t.Fatalf("expected temperature override, got %v", cfg.OpenAITemperature)
	}
	if cfg.WorkerCount != 8 {
		t.Fatalf("expected worker count override, got %d", cfg.WorkerCount)
	}
	if cfg.StateTTL != 12*time.Hour {
		t.Fatalf("expected state ttl override, got %s", cfg.StateTTL)
	}
	if cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue disabled")
	}
	if len(cfg.WebchatAllowedOrigins) != 2 || cfg.WebchatAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("expected two trimmed origins, got %v", cfg.WebchatAllowedOrigins)
	}
	if cfg.BookingArchiveBucket != "healthai-archive" {
		t.Fatalf("expected archive bucket override, got %q", cfg.BookingArchiveBucket)
	}
}

func TestExternalTimeoutIsClamped(t *testing.T) {
	t.Setenv("EXTERNAL_CALL_TIMEOUT", "2s")
	if got := Load().ExternalCallTimeout; got != 10*time.Second {
		t.Fatalf("expected lower clamp 10s, got %s", got)
	}
	t.Setenv("EXTERNAL_CALL_TIMEOUT", "1m")
	if got := Load().ExternalCallTimeout; got != 20*time.Second {
		t.Fatalf("expected upper clamp 20s, got %s", got)
	}
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("OPENAI_TEMPERATURE", "warm")
	t.Setenv("LOCK_TTL", "soon")
	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected default worker count, got %d", cfg.WorkerCount)
	}
	if cfg.OpenAITemperature != 0.2 {
		t.Fatalf("expected default temperature, got %v", cfg.OpenAITemperature)
	}
	if cfg.LockTTL != 90*time.Second {
		t.Fatalf("expected default lock ttl, got %s", cfg.LockTTL)
	}
}

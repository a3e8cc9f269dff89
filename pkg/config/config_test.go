package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadReadsEnvironment(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENVIRONMENT", "DATABASE_PATH", "JWT_SECRET", "CORS_ORIGINS",
		"REDIS_ADDR", "REDIS_CHANNEL", "VAPID_PUBLIC_KEY", "VAPID_PRIVATE_KEY",
		"ASSISTANT_MIN_WAIT", "ASSISTANT_MAX_WAIT", "WELCOME_WAIT",
	} {
		os.Unsetenv(key)
	}

	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_PATH", "/var/lib/whisper/whisper.db")
	t.Setenv("ASSISTANT_MIN_WAIT", "250")
	t.Setenv("ASSISTANT_MAX_WAIT", "2s")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Fatalf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.DatabasePath != "/var/lib/whisper/whisper.db" {
		t.Fatalf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Environment != "development" {
		t.Fatalf("Environment = %q, want default", cfg.Environment)
	}
	if cfg.RedisChannel != "whisper-feed" {
		t.Fatalf("RedisChannel = %q, want default", cfg.RedisChannel)
	}
	if cfg.AssistantMinWait != 250*time.Millisecond {
		t.Fatalf("AssistantMinWait = %v, want 250ms", cfg.AssistantMinWait)
	}
	if cfg.AssistantMaxWait != 2*time.Second {
		t.Fatalf("AssistantMaxWait = %v, want 2s", cfg.AssistantMaxWait)
	}
}

func TestParseWaitFallsBackOnGarbage(t *testing.T) {
	if got := parseWait("not-a-number", time.Second); got != time.Second {
		t.Fatalf("parseWait garbage = %v, want 1s", got)
	}
	if got := parseWait("-5", time.Second); got != time.Second {
		t.Fatalf("parseWait negative = %v, want 1s", got)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.DefaultVoiceID != DefaultVoiceID {
		t.Fatalf("DefaultVoiceID = %q, want %q", cfg.DefaultVoiceID, DefaultVoiceID)
	}
	if cfg.DefaultReplicaID != DefaultReplicaID {
		t.Fatalf("DefaultReplicaID = %q, want %q", cfg.DefaultReplicaID, DefaultReplicaID)
	}
	if cfg.VideoPollInterval != 10*time.Second {
		t.Fatalf("VideoPollInterval = %v, want 10s", cfg.VideoPollInterval)
	}
	if cfg.VideoPollMaxAttempts != 30 {
		t.Fatalf("VideoPollMaxAttempts = %d, want 30", cfg.VideoPollMaxAttempts)
	}
	if cfg.DeepSeekAPIKey != "" {
		t.Fatalf("DeepSeekAPIKey = %q, want empty default", cfg.DeepSeekAPIKey)
	}
	if cfg.AvatarGatewayURL != "http://localhost:8080/v1/avatar/proxy" {
		t.Fatalf("AvatarGatewayURL = %q, want local proxy default", cfg.AvatarGatewayURL)
	}
}

func TestLoadOverridesPollBudget(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("VIDEO_POLL_INTERVAL", "250ms")
	t.Setenv("VIDEO_POLL_MAX_ATTEMPTS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.VideoPollInterval != 250*time.Millisecond {
		t.Fatalf("VideoPollInterval = %v, want 250ms", cfg.VideoPollInterval)
	}
	if cfg.VideoPollMaxAttempts != 5 {
		t.Fatalf("VideoPollMaxAttempts = %d, want 5", cfg.VideoPollMaxAttempts)
	}
}

func TestLoadRejectsInvalidPollAttempts(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("VIDEO_POLL_MAX_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want non-positive attempts rejected")
	}
}

func TestLoadTrimsMediaPublicBaseURL(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("MEDIA_PUBLIC_BASE_URL", "https://cdn.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MediaPublicBaseURL != "https://cdn.example.com" {
		t.Fatalf("MediaPublicBaseURL = %q, want trailing slash trimmed", cfg.MediaPublicBaseURL)
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"LOG_PRETTY",
		"DEEPSEEK_API_KEY",
		"DEEPSEEK_BASE_URL",
		"DEEPSEEK_MODEL",
		"ELEVENLABS_API_KEY",
		"ELEVENLABS_BASE_URL",
		"TAVUS_API_KEY",
		"TAVUS_BASE_URL",
		"AVATAR_GATEWAY_URL",
		"DEFAULT_VOICE_ID",
		"DEFAULT_REPLICA_ID",
		"VIDEO_POLL_INTERVAL",
		"VIDEO_POLL_MAX_ATTEMPTS",
		"DATABASE_URL",
		"MEDIA_DIR",
		"MEDIA_PUBLIC_BASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

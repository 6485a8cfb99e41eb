package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default provider identifiers used when a user or soul has not configured
// a custom voice or replica. "Has custom" is defined as id != default.
const (
	DefaultVoiceID   = "pNInz6obpgDQGcFmaJgB"
	DefaultReplicaID = "rca8a38779a8"
)

// Config contains all runtime settings for the Mirror Me service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogPretty        bool

	AllowAnyOrigin bool

	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string

	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string

	TavusAPIKey      string
	TavusBaseURL     string
	AvatarGatewayURL string

	DefaultVoiceID   string
	DefaultReplicaID string

	VideoPollInterval    time.Duration
	VideoPollMaxAttempts int

	DatabaseURL        string
	MediaDir           string
	MediaPublicBaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "mirrorme"),
		DeepSeekBaseURL:    envOrDefault("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
		DeepSeekModel:      envOrDefault("DEEPSEEK_MODEL", "deepseek-chat"),
		ElevenLabsBaseURL:  envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		TavusBaseURL:       envOrDefault("TAVUS_BASE_URL", "https://tavusapi.com"),
		DefaultVoiceID:     envOrDefault("DEFAULT_VOICE_ID", DefaultVoiceID),
		DefaultReplicaID:   envOrDefault("DEFAULT_REPLICA_ID", DefaultReplicaID),
		DeepSeekAPIKey:     envTrimmed("DEEPSEEK_API_KEY"),
		ElevenLabsAPIKey:   envTrimmed("ELEVENLABS_API_KEY"),
		TavusAPIKey:        envTrimmed("TAVUS_API_KEY"),
		AvatarGatewayURL:   envOrDefault("AVATAR_GATEWAY_URL", "http://localhost:8080/v1/avatar/proxy"),
		DatabaseURL:        envTrimmed("DATABASE_URL"),
		MediaDir:           envOrDefault("MEDIA_DIR", "./data/media"),
		MediaPublicBaseURL: envOrDefault("MEDIA_PUBLIC_BASE_URL", "http://localhost:8080"),
		ShutdownTimeout:    15 * time.Second,
		// 30 attempts at 10s mirrors the product's "5 minutes max" budget
		// for avatar video completion.
		VideoPollInterval:    10 * time.Second,
		VideoPollMaxAttempts: 30,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.VideoPollInterval, err = durationFromEnv("VIDEO_POLL_INTERVAL", cfg.VideoPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.VideoPollMaxAttempts, err = intFromEnv("VIDEO_POLL_MAX_ATTEMPTS", cfg.VideoPollMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.LogPretty, err = boolFromEnv("LOG_PRETTY", cfg.LogPretty)
	if err != nil {
		return Config{}, err
	}

	if cfg.VideoPollInterval <= 0 {
		return Config{}, fmt.Errorf("VIDEO_POLL_INTERVAL must be positive")
	}
	if cfg.VideoPollMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("VIDEO_POLL_MAX_ATTEMPTS must be positive")
	}
	if strings.TrimSpace(cfg.DefaultVoiceID) == "" {
		return Config{}, fmt.Errorf("DEFAULT_VOICE_ID must not be empty")
	}
	cfg.MediaPublicBaseURL = strings.TrimRight(cfg.MediaPublicBaseURL, "/")

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

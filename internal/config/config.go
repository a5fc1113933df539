package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the companion front-end service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin     bool
	CORSOrigins        []string
	RateLimitPerMinute int

	AuthSecret string

	CaptureProvider        string
	CaptureOpenTimeout     time.Duration
	CaptureFinalizeTimeout time.Duration
	CaptureMaxListen       time.Duration

	ScriptedTranscript    string
	ScriptedFinalizeDelay time.Duration

	HostTranscriptURL   string
	HostTranscriptToken string

	ContentPath string

	DatabaseURL      string
	MemoryFetchLimit int

	PushEnabled       bool
	PushQueueTTL      time.Duration
	PushSweepInterval time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "mira"),
		AllowAnyOrigin:   false,
		// auto picks scripted when SCRIPTED_TRANSCRIPT is set, remote otherwise.
		CaptureProvider:          envOrDefault("CAPTURE_PROVIDER", "auto"),
		ScriptedTranscript:       stringsTrimSpace("SCRIPTED_TRANSCRIPT"),
		HostTranscriptURL:        stringsTrimSpace("HOST_TRANSCRIPT_URL"),
		HostTranscriptToken:      stringsTrimSpace("HOST_TRANSCRIPT_TOKEN"),
		ContentPath:              stringsTrimSpace("CONTENT_PATH"),
		AuthSecret:               stringsTrimSpace("AUTH_SECRET"),
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		RateLimitPerMinute:       120,
		MemoryFetchLimit:         50,
		PushEnabled:              true,
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 2 * time.Minute,
		CaptureOpenTimeout:       3 * time.Second,
		CaptureFinalizeTimeout:   8 * time.Second,
		CaptureMaxListen:         30 * time.Second,
		ScriptedFinalizeDelay:    150 * time.Millisecond,
		PushQueueTTL:             24 * time.Hour,
		PushSweepInterval:        time.Minute,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.CORSOrigins = splitList(stringsTrimSpace("APP_CORS_ORIGINS"))
	cfg.RateLimitPerMinute, err = intFromEnv("APP_RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureOpenTimeout, err = durationFromEnv("CAPTURE_OPEN_TIMEOUT", cfg.CaptureOpenTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureFinalizeTimeout, err = durationFromEnv("CAPTURE_FINALIZE_TIMEOUT", cfg.CaptureFinalizeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CaptureMaxListen, err = durationFromEnv("CAPTURE_MAX_LISTEN", cfg.CaptureMaxListen)
	if err != nil {
		return Config{}, err
	}
	cfg.ScriptedFinalizeDelay, err = durationFromEnv("SCRIPTED_FINALIZE_DELAY", cfg.ScriptedFinalizeDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryFetchLimit, err = intFromEnv("MEMORY_FETCH_LIMIT", cfg.MemoryFetchLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.PushEnabled, err = boolFromEnv("PUSH_ENABLED", cfg.PushEnabled)
	if err != nil {
		return Config{}, err
	}
	cfg.PushQueueTTL, err = durationFromEnv("PUSH_QUEUE_TTL", cfg.PushQueueTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.PushSweepInterval, err = durationFromEnv("PUSH_SWEEP_INTERVAL", cfg.PushSweepInterval)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.RateLimitPerMinute <= 0 {
		return Config{}, fmt.Errorf("APP_RATE_LIMIT_PER_MINUTE must be positive")
	}
	switch cfg.CaptureProvider {
	case "auto", "remote", "scripted":
	default:
		return Config{}, fmt.Errorf("CAPTURE_PROVIDER must be one of auto, remote, scripted")
	}
	if cfg.CaptureOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("CAPTURE_OPEN_TIMEOUT must be positive")
	}
	if cfg.CaptureFinalizeTimeout <= 0 {
		return Config{}, fmt.Errorf("CAPTURE_FINALIZE_TIMEOUT must be positive")
	}
	if cfg.CaptureMaxListen < 0 {
		return Config{}, fmt.Errorf("CAPTURE_MAX_LISTEN must be >= 0 (0 disables the cap)")
	}
	if cfg.ScriptedFinalizeDelay < 0 {
		return Config{}, fmt.Errorf("SCRIPTED_FINALIZE_DELAY must be >= 0")
	}
	if cfg.MemoryFetchLimit <= 0 {
		return Config{}, fmt.Errorf("MEMORY_FETCH_LIMIT must be positive")
	}
	if cfg.PushQueueTTL <= 0 {
		return Config{}, fmt.Errorf("PUSH_QUEUE_TTL must be positive")
	}
	if cfg.PushSweepInterval <= 0 {
		return Config{}, fmt.Errorf("PUSH_SWEEP_INTERVAL must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = trimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
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
	v := stringsTrimSpace(key)
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
	v := strings.ToLower(stringsTrimSpace(key))
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

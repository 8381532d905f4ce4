package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration sourced from environment variables.
type Config struct {
	ListenAddr        string
	DeviceIndex       int
	SampleInterval    time.Duration
	RefreshInterval   time.Duration
	DisplayDuration   time.Duration
	HistoryMaxSamples int
	ChannelCapacity   int
	SendPolicy        string
	AllowedOrigins    []string
	EnablePrometheus  bool
	EnablePprof       bool
	LogLevel          slog.Level
	WS                WebsocketConfig
}

// WebsocketConfig captures tunables for WebSocket handling.
type WebsocketConfig struct {
	MaxClients   int
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
}

// Load parses configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:        ":8080",
		DeviceIndex:       0,
		SampleInterval:    100 * time.Millisecond,
		RefreshInterval:   250 * time.Millisecond,
		DisplayDuration:   60 * time.Second,
		HistoryMaxSamples: 3000,
		ChannelCapacity:   100,
		SendPolicy:        "block",
		AllowedOrigins:    []string{"*"},
		EnablePrometheus:  false,
		EnablePprof:       false,
		LogLevel:          slog.LevelInfo,
		WS: WebsocketConfig{
			MaxClients:   1024,
			WriteTimeout: 3 * time.Second,
			ReadTimeout:  30 * time.Second,
		},
	}

	if value := strings.TrimSpace(os.Getenv("APP_LISTEN_ADDR")); value != "" {
		cfg.ListenAddr = value
	}

	if value := strings.TrimSpace(os.Getenv("APP_DEVICE_INDEX")); value != "" {
		index, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_DEVICE_INDEX: %w", err)
		}
		if index < 0 {
			return Config{}, fmt.Errorf("APP_DEVICE_INDEX must be >= 0")
		}
		cfg.DeviceIndex = index
	}

	if value := strings.TrimSpace(os.Getenv("APP_SAMPLE_INTERVAL")); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_SAMPLE_INTERVAL: %w", err)
		}
		if duration <= 0 {
			return Config{}, fmt.Errorf("APP_SAMPLE_INTERVAL must be > 0")
		}
		cfg.SampleInterval = duration
	}

	if value := strings.TrimSpace(os.Getenv("APP_REFRESH_INTERVAL")); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_REFRESH_INTERVAL: %w", err)
		}
		if duration <= 0 {
			return Config{}, fmt.Errorf("APP_REFRESH_INTERVAL must be > 0")
		}
		cfg.RefreshInterval = duration
	}

	if value := strings.TrimSpace(os.Getenv("APP_DISPLAY_DURATION")); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_DISPLAY_DURATION: %w", err)
		}
		if duration < 0 {
			return Config{}, fmt.Errorf("APP_DISPLAY_DURATION must be >= 0")
		}
		// Zero means an unbounded window capped only by sample count.
		cfg.DisplayDuration = duration
	}

	if value := strings.TrimSpace(os.Getenv("APP_HISTORY_MAX_SAMPLES")); value != "" {
		maxSamples, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_HISTORY_MAX_SAMPLES: %w", err)
		}
		if maxSamples < 0 {
			return Config{}, fmt.Errorf("APP_HISTORY_MAX_SAMPLES must be >= 0")
		}
		cfg.HistoryMaxSamples = maxSamples
	}

	if value := strings.TrimSpace(os.Getenv("APP_CHANNEL_CAPACITY")); value != "" {
		capacity, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_CHANNEL_CAPACITY: %w", err)
		}
		if capacity <= 0 {
			return Config{}, fmt.Errorf("APP_CHANNEL_CAPACITY must be > 0")
		}
		cfg.ChannelCapacity = capacity
	}

	if value := strings.TrimSpace(os.Getenv("APP_SEND_POLICY")); value != "" {
		policy := strings.ToLower(value)
		if policy != "block" && policy != "drop_oldest" {
			return Config{}, fmt.Errorf("APP_SEND_POLICY must be %q or %q, got %q", "block", "drop_oldest", value)
		}
		cfg.SendPolicy = policy
	}

	if value := strings.TrimSpace(os.Getenv("APP_ALLOWED_ORIGINS")); value != "" {
		origins := splitAndTrim(value, ",")
		if len(origins) == 0 {
			return Config{}, fmt.Errorf("APP_ALLOWED_ORIGINS must not be empty")
		}
		cfg.AllowedOrigins = origins
	}

	if value := strings.TrimSpace(os.Getenv("APP_ENABLE_PROMETHEUS")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_ENABLE_PROMETHEUS: %w", err)
		}
		cfg.EnablePrometheus = enabled
	}

	if value := strings.TrimSpace(os.Getenv("APP_ENABLE_PPROF")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_ENABLE_PPROF: %w", err)
		}
		cfg.EnablePprof = enabled
	}

	if value := strings.TrimSpace(os.Getenv("APP_LOG_LEVEL")); value != "" {
		level, err := parseLogLevel(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}

	if value := strings.TrimSpace(os.Getenv("APP_WS_MAX_CLIENTS")); value != "" {
		maxClients, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_WS_MAX_CLIENTS: %w", err)
		}
		if maxClients <= 0 {
			return Config{}, fmt.Errorf("APP_WS_MAX_CLIENTS must be > 0")
		}
		cfg.WS.MaxClients = maxClients
	}

	if value := strings.TrimSpace(os.Getenv("APP_WS_WRITE_TIMEOUT")); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_WS_WRITE_TIMEOUT: %w", err)
		}
		if timeout <= 0 {
			return Config{}, fmt.Errorf("APP_WS_WRITE_TIMEOUT must be > 0")
		}
		cfg.WS.WriteTimeout = timeout
	}

	if value := strings.TrimSpace(os.Getenv("APP_WS_READ_TIMEOUT")); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse APP_WS_READ_TIMEOUT: %w", err)
		}
		if timeout <= 0 {
			return Config{}, fmt.Errorf("APP_WS_READ_TIMEOUT must be > 0")
		}
		cfg.WS.ReadTimeout = timeout
	}

	return cfg, nil
}

func splitAndTrim(value, sep string) []string {
	raw := strings.Split(value, sep)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseLogLevel(input string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level %q", input)
	}
}

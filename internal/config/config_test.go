package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected ListenAddr %q", cfg.ListenAddr)
	}
	if cfg.DeviceIndex != 0 {
		t.Fatalf("unexpected DeviceIndex %d", cfg.DeviceIndex)
	}
	if cfg.SampleInterval != 100*time.Millisecond {
		t.Fatalf("unexpected SampleInterval %s", cfg.SampleInterval)
	}
	if cfg.RefreshInterval != 250*time.Millisecond {
		t.Fatalf("unexpected RefreshInterval %s", cfg.RefreshInterval)
	}
	if cfg.DisplayDuration != 60*time.Second {
		t.Fatalf("unexpected DisplayDuration %s", cfg.DisplayDuration)
	}
	if cfg.HistoryMaxSamples != 3000 {
		t.Fatalf("unexpected HistoryMaxSamples %d", cfg.HistoryMaxSamples)
	}
	if cfg.ChannelCapacity != 100 {
		t.Fatalf("unexpected ChannelCapacity %d", cfg.ChannelCapacity)
	}
	if cfg.SendPolicy != "block" {
		t.Fatalf("unexpected SendPolicy %q", cfg.SendPolicy)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected LogLevel %v", cfg.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("APP_DEVICE_INDEX", "1")
	t.Setenv("APP_SAMPLE_INTERVAL", "500ms")
	t.Setenv("APP_REFRESH_INTERVAL", "1s")
	t.Setenv("APP_DISPLAY_DURATION", "5m")
	t.Setenv("APP_HISTORY_MAX_SAMPLES", "500")
	t.Setenv("APP_CHANNEL_CAPACITY", "32")
	t.Setenv("APP_SEND_POLICY", "drop_oldest")
	t.Setenv("APP_ALLOWED_ORIGINS", "https://example.com, https://other.test")
	t.Setenv("APP_ENABLE_PROMETHEUS", "true")
	t.Setenv("APP_ENABLE_PPROF", "true")
	t.Setenv("APP_LOG_LEVEL", "debug")
	t.Setenv("APP_WS_MAX_CLIENTS", "2048")
	t.Setenv("APP_WS_WRITE_TIMEOUT", "10s")
	t.Setenv("APP_WS_READ_TIMEOUT", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("ListenAddr override failed, got %q", cfg.ListenAddr)
	}
	if cfg.DeviceIndex != 1 {
		t.Fatalf("DeviceIndex override failed, got %d", cfg.DeviceIndex)
	}
	if cfg.SampleInterval != 500*time.Millisecond {
		t.Fatalf("SampleInterval override failed, got %s", cfg.SampleInterval)
	}
	if cfg.RefreshInterval != time.Second {
		t.Fatalf("RefreshInterval override failed, got %s", cfg.RefreshInterval)
	}
	if cfg.DisplayDuration != 5*time.Minute {
		t.Fatalf("DisplayDuration override failed, got %s", cfg.DisplayDuration)
	}
	if cfg.HistoryMaxSamples != 500 {
		t.Fatalf("HistoryMaxSamples override failed, got %d", cfg.HistoryMaxSamples)
	}
	if cfg.ChannelCapacity != 32 {
		t.Fatalf("ChannelCapacity override failed, got %d", cfg.ChannelCapacity)
	}
	if cfg.SendPolicy != "drop_oldest" {
		t.Fatalf("SendPolicy override failed, got %q", cfg.SendPolicy)
	}
	wantOrigins := []string{"https://example.com", "https://other.test"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, wantOrigins) {
		t.Fatalf("AllowedOrigins mismatch: %+v", cfg.AllowedOrigins)
	}
	if !cfg.EnablePrometheus {
		t.Fatalf("EnablePrometheus override failed")
	}
	if !cfg.EnablePprof {
		t.Fatalf("EnablePprof override failed")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel override failed, got %v", cfg.LogLevel)
	}
	if cfg.WS.MaxClients != 2048 {
		t.Fatalf("WS.MaxClients override failed, got %d", cfg.WS.MaxClients)
	}
	if cfg.WS.WriteTimeout != 10*time.Second {
		t.Fatalf("WS.WriteTimeout override failed, got %s", cfg.WS.WriteTimeout)
	}
	if cfg.WS.ReadTimeout != 45*time.Second {
		t.Fatalf("WS.ReadTimeout override failed, got %s", cfg.WS.ReadTimeout)
	}
}

func TestLoadZeroDisplayDurationMeansUnbounded(t *testing.T) {
	t.Setenv("APP_DISPLAY_DURATION", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DisplayDuration != 0 {
		t.Fatalf("expected zero DisplayDuration, got %s", cfg.DisplayDuration)
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	testCases := []struct {
		name string
		key  string
		val  string
	}{
		{"InvalidDeviceIndex", "APP_DEVICE_INDEX", "first"},
		{"NegativeDeviceIndex", "APP_DEVICE_INDEX", "-1"},
		{"NegativeSampleInterval", "APP_SAMPLE_INTERVAL", "-1s"},
		{"ZeroSampleInterval", "APP_SAMPLE_INTERVAL", "0"},
		{"InvalidRefreshInterval", "APP_REFRESH_INTERVAL", "fast"},
		{"NegativeDisplayDuration", "APP_DISPLAY_DURATION", "-1m"},
		{"InvalidHistoryMaxSamples", "APP_HISTORY_MAX_SAMPLES", "many"},
		{"NegativeHistoryMaxSamples", "APP_HISTORY_MAX_SAMPLES", "-1"},
		{"InvalidChannelCapacity", "APP_CHANNEL_CAPACITY", "big"},
		{"NonPositiveChannelCapacity", "APP_CHANNEL_CAPACITY", "0"},
		{"UnknownSendPolicy", "APP_SEND_POLICY", "drop_newest"},
		{"InvalidOrigins", "APP_ALLOWED_ORIGINS", ","},
		{"InvalidPrometheusBool", "APP_ENABLE_PROMETHEUS", "maybe"},
		{"InvalidLogLevel", "APP_LOG_LEVEL", "loud"},
		{"InvalidWSMaxClients", "APP_WS_MAX_CLIENTS", "zero"},
		{"NonPositiveWSMaxClients", "APP_WS_MAX_CLIENTS", "0"},
		{"InvalidWSWriteTimeout", "APP_WS_WRITE_TIMEOUT", "nope"},
		{"NegativeWSWriteTimeout", "APP_WS_WRITE_TIMEOUT", "-1s"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tc.key, tc.val)
			}
		})
	}
}

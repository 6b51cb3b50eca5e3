package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// helper to build a valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	return DefaultConfig()
}

func TestValidate_DefaultConfig(t *testing.T) {
	cfg := validBaseConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
}

func TestValidate_SenderDisabled_AllowsZeroValues(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Sender.Enabled = false
	// Zero out sender values to ensure they are ignored when disabled.
	cfg.Sender.URL = ""
	cfg.Sender.JWTSecret = ""
	cfg.Sender.TokenTTL = 0
	cfg.Sender.MaxBatch = 0
	cfg.Sender.FlushInterval = 0
	cfg.Sender.MessagesPerSecond = 0
	cfg.Sender.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when sender disabled, got error: %v", err)
	}
}

func TestValidate_DisabledDetector_SkipsThresholdChecks(t *testing.T) {
	cfg := validBaseConfig()
	cfg.Detectors.AudioDesync.Disabled = true
	cfg.Detectors.AudioDesync.AlertOnThreshold = 0
	cfg.Detectors.AudioDesync.AlertOffThreshold = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid for disabled detector, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "server address must not be empty",
			mutate: func(c *Config) {
				c.Server.Address = ""
			},
		},
		{
			name: "monitor interval must be > 0",
			mutate: func(c *Config) {
				c.Monitor.Interval = 0
			},
		},
		{
			name: "collect timeout must be > 0",
			mutate: func(c *Config) {
				c.Monitor.CollectTimeout = 0
			},
		},
		{
			name: "prune grace must be >= 0",
			mutate: func(c *Config) {
				c.Store.PruneGrace = map[string]time.Duration{"inbound-rtp": -time.Second}
			},
		},
		{
			name: "scoring window size must be > 0",
			mutate: func(c *Config) {
				c.Scoring.WindowSize = 0
			},
		},
		{
			name: "audio desync on threshold must exceed off threshold",
			mutate: func(c *Config) {
				c.Detectors.AudioDesync.AlertOnThreshold = 0.05
				c.Detectors.AudioDesync.AlertOffThreshold = 0.1
			},
		},
		{
			name: "cpu thresholds must not be equal",
			mutate: func(c *Config) {
				c.Detectors.CPUPerformance.AlertOnThreshold = 0.1
				c.Detectors.CPUPerformance.AlertOffThreshold = 0.1
			},
		},
		{
			name: "stuck track duration must be > 0",
			mutate: func(c *Config) {
				c.Detectors.StuckTrack.MinStuckDuration = 0
			},
		},
		{
			name: "long connect threshold must be > 0",
			mutate: func(c *Config) {
				c.Detectors.LongConnect.Threshold = 0
			},
		},
		{
			name: "low score on threshold must be below off threshold",
			mutate: func(c *Config) {
				c.Detectors.LowScore.AlertOnThreshold = 3.0
				c.Detectors.LowScore.AlertOffThreshold = 2.5
			},
		},
		{
			name: "sender url required when enabled",
			mutate: func(c *Config) {
				c.Sender.Enabled = true
				c.Sender.URL = ""
			},
		},
		{
			name: "sender jwt secret required when enabled",
			mutate: func(c *Config) {
				c.Sender.Enabled = true
				c.Sender.JWTSecret = ""
			},
		},
		{
			name: "sender messages per second must be > 0 when enabled",
			mutate: func(c *Config) {
				c.Sender.Enabled = true
				c.Sender.MessagesPerSecond = 0
			},
		},
		{
			name: "redis address required when enabled",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Address = ""
			},
		},
		{
			name: "redis queue required when enabled",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Queue = ""
			},
		},
		{
			name: "rtcp tap address required when enabled",
			mutate: func(c *Config) {
				c.RTCPTap.Enabled = true
				c.RTCPTap.Address = ""
			},
		},
		{
			name: "tracing sample rate must be in range",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.SampleRate = 1.5
			},
		},
		{
			name: "logging level must not be empty",
			mutate: func(c *Config) {
				c.Logging.Level = ""
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected fallback to defaults, got error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default server address, got %q", cfg.Server.Address)
	}
	if cfg.Monitor.Interval != time.Second {
		t.Fatalf("expected default monitor interval, got %v", cfg.Monitor.Interval)
	}
}

func TestLoad_ReadsYAMLAndKeepsDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("monitor:\n  interval: 2s\nscoring:\n  window_size: 20\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected config to load, got error: %v", err)
	}
	if cfg.Monitor.Interval != 2*time.Second {
		t.Fatalf("expected interval 2s, got %v", cfg.Monitor.Interval)
	}
	if cfg.Scoring.WindowSize != 20 {
		t.Fatalf("expected window size 20, got %d", cfg.Scoring.WindowSize)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default server address to survive partial file, got %q", cfg.Server.Address)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RTCSCOPE_SERVER_ADDRESS", ":9090")
	t.Setenv("RTCSCOPE_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected fallback to defaults, got error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Fatalf("expected env override for server address, got %q", cfg.Server.Address)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env override for log level, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidConfigFailsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("monitor:\n  interval: 0s\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for zero interval")
	}
}

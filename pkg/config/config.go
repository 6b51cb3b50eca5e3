package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address           string        `yaml:"address"`
		ReadTimeout       time.Duration `yaml:"read_timeout"`
		WriteTimeout      time.Duration `yaml:"write_timeout"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
	} `yaml:"server"`

	Monitor struct {
		Interval       time.Duration `yaml:"interval"`
		CollectTimeout time.Duration `yaml:"collect_timeout"`
	} `yaml:"monitor"`

	Store struct {
		PruneGrace map[string]time.Duration `yaml:"prune_grace"`
	} `yaml:"store"`

	Client struct {
		ClientID string `yaml:"client_id"`
		CallID   string `yaml:"call_id"`
	} `yaml:"client"`

	Scoring struct {
		WindowSize int `yaml:"window_size"`
	} `yaml:"scoring"`

	Detectors struct {
		Congestion struct {
			Disabled bool `yaml:"disabled"`
		} `yaml:"congestion"`

		AudioDesync struct {
			Disabled          bool    `yaml:"disabled"`
			AlertOnThreshold  float64 `yaml:"alert_on_threshold"`
			AlertOffThreshold float64 `yaml:"alert_off_threshold"`
		} `yaml:"audio_desync"`

		CPUPerformance struct {
			Disabled          bool    `yaml:"disabled"`
			AlertOnThreshold  float64 `yaml:"alert_on_threshold"`
			AlertOffThreshold float64 `yaml:"alert_off_threshold"`
		} `yaml:"cpu_performance"`

		VideoFreeze struct {
			Disabled bool `yaml:"disabled"`
		} `yaml:"video_freeze"`

		StuckTrack struct {
			Disabled         bool          `yaml:"disabled"`
			MinStuckDuration time.Duration `yaml:"min_stuck_duration"`
		} `yaml:"stuck_track"`

		LongConnect struct {
			Disabled  bool          `yaml:"disabled"`
			Threshold time.Duration `yaml:"threshold"`
		} `yaml:"long_connect"`

		LowScore struct {
			Disabled          bool    `yaml:"disabled"`
			AlertOnThreshold  float64 `yaml:"alert_on_threshold"`
			AlertOffThreshold float64 `yaml:"alert_off_threshold"`
		} `yaml:"low_score"`
	} `yaml:"detectors"`

	Sender struct {
		Enabled           bool          `yaml:"enabled"`
		URL               string        `yaml:"url"`
		JWTSecret         string        `yaml:"jwt_secret"`
		TokenTTL          time.Duration `yaml:"token_ttl"`
		MaxBatch          int           `yaml:"max_batch"`
		FlushInterval     time.Duration `yaml:"flush_interval"`
		MessagesPerSecond float64       `yaml:"messages_per_second"`
		Burst             int           `yaml:"burst"`
		MaxRetries        int           `yaml:"max_retries"`
	} `yaml:"sender"`

	Redis struct {
		Enabled     bool   `yaml:"enabled"`
		Address     string `yaml:"address"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		PoolSize    int    `yaml:"pool_size"`
		Queue       string `yaml:"queue"`
		MaxQueueLen int64  `yaml:"max_queue_len"`
	} `yaml:"redis"`

	RTCPTap struct {
		Enabled bool   `yaml:"enabled"`
		Address string `yaml:"address"`
	} `yaml:"rtcp_tap"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Monitor
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be > 0")
	}
	if c.Monitor.CollectTimeout <= 0 {
		return fmt.Errorf("monitor.collect_timeout must be > 0")
	}

	// Store
	for kind, grace := range c.Store.PruneGrace {
		if grace < 0 {
			return fmt.Errorf("store.prune_grace[%s] must be >= 0", kind)
		}
	}

	// Scoring
	if c.Scoring.WindowSize <= 0 {
		return fmt.Errorf("scoring.window_size must be > 0")
	}

	// Detectors
	if !c.Detectors.AudioDesync.Disabled {
		if c.Detectors.AudioDesync.AlertOnThreshold <= c.Detectors.AudioDesync.AlertOffThreshold {
			return fmt.Errorf("detectors.audio_desync.alert_on_threshold must be > alert_off_threshold")
		}
	}
	if !c.Detectors.CPUPerformance.Disabled {
		if c.Detectors.CPUPerformance.AlertOnThreshold <= c.Detectors.CPUPerformance.AlertOffThreshold {
			return fmt.Errorf("detectors.cpu_performance.alert_on_threshold must be > alert_off_threshold")
		}
	}
	if !c.Detectors.StuckTrack.Disabled && c.Detectors.StuckTrack.MinStuckDuration <= 0 {
		return fmt.Errorf("detectors.stuck_track.min_stuck_duration must be > 0")
	}
	if !c.Detectors.LongConnect.Disabled && c.Detectors.LongConnect.Threshold <= 0 {
		return fmt.Errorf("detectors.long_connect.threshold must be > 0")
	}
	if !c.Detectors.LowScore.Disabled {
		if c.Detectors.LowScore.AlertOnThreshold >= c.Detectors.LowScore.AlertOffThreshold {
			return fmt.Errorf("detectors.low_score.alert_on_threshold must be < alert_off_threshold")
		}
	}

	// Sender
	if c.Sender.Enabled {
		if c.Sender.URL == "" {
			return fmt.Errorf("sender.url must not be empty when sender.enabled=true")
		}
		if c.Sender.JWTSecret == "" {
			return fmt.Errorf("sender.jwt_secret must not be empty when sender.enabled=true")
		}
		if c.Sender.TokenTTL <= 0 {
			return fmt.Errorf("sender.token_ttl must be > 0 when sender.enabled=true")
		}
		if c.Sender.MaxBatch <= 0 {
			return fmt.Errorf("sender.max_batch must be > 0 when sender.enabled=true")
		}
		if c.Sender.FlushInterval <= 0 {
			return fmt.Errorf("sender.flush_interval must be > 0 when sender.enabled=true")
		}
		if c.Sender.MessagesPerSecond <= 0 {
			return fmt.Errorf("sender.messages_per_second must be > 0 when sender.enabled=true")
		}
		if c.Sender.Burst <= 0 {
			return fmt.Errorf("sender.burst must be > 0 when sender.enabled=true")
		}
		if c.Sender.MaxRetries < 0 {
			return fmt.Errorf("sender.max_retries must be >= 0 when sender.enabled=true")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
		if c.Redis.Queue == "" {
			return fmt.Errorf("redis.queue must not be empty when redis.enabled=true")
		}
		if c.Redis.MaxQueueLen <= 0 {
			return fmt.Errorf("redis.max_queue_len must be > 0 when redis.enabled=true")
		}
	}

	// RTCP tap
	if c.RTCPTap.Enabled && c.RTCPTap.Address == "" {
		return fmt.Errorf("rtcp_tap.address must not be empty when rtcp_tap.enabled=true")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be in [0, 1]")
		}
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second
	cfg.Server.RequestsPerSecond = 0 // disabled
	cfg.Server.Burst = 0

	cfg.Monitor.Interval = time.Second
	cfg.Monitor.CollectTimeout = time.Second

	cfg.Scoring.WindowSize = 10

	cfg.Detectors.AudioDesync.AlertOnThreshold = 0.1
	cfg.Detectors.AudioDesync.AlertOffThreshold = 0.05
	cfg.Detectors.CPUPerformance.AlertOnThreshold = 0.1
	cfg.Detectors.CPUPerformance.AlertOffThreshold = 0.05
	cfg.Detectors.StuckTrack.MinStuckDuration = 5 * time.Second
	cfg.Detectors.LongConnect.Threshold = 5 * time.Second
	cfg.Detectors.LowScore.AlertOnThreshold = 2.5
	cfg.Detectors.LowScore.AlertOffThreshold = 3.0

	cfg.Sender.Enabled = false
	cfg.Sender.URL = "ws://localhost:8081/samples"
	cfg.Sender.JWTSecret = "change-me-in-production"
	cfg.Sender.TokenTTL = 15 * time.Minute
	cfg.Sender.MaxBatch = 10
	cfg.Sender.FlushInterval = 5 * time.Second
	cfg.Sender.MessagesPerSecond = 10
	cfg.Sender.Burst = 20
	cfg.Sender.MaxRetries = 3

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.Queue = "rtcscope:samples"
	cfg.Redis.MaxQueueLen = 1000

	cfg.RTCPTap.Enabled = false
	cfg.RTCPTap.Address = "127.0.0.1:5005"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if addr := os.Getenv("RTCSCOPE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if level := os.Getenv("RTCSCOPE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if url := os.Getenv("RTCSCOPE_SENDER_URL"); url != "" {
		c.Sender.URL = url
	}
	if secret := os.Getenv("RTCSCOPE_SENDER_JWT_SECRET"); secret != "" {
		c.Sender.JWTSecret = secret
	}
	if addr := os.Getenv("RTCSCOPE_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
	}
}

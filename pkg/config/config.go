package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen     string           `yaml:"listen"`
	DBPath     string           `yaml:"db"`
	AdminToken string           `yaml:"admin_token"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Blacklist  BlacklistConfig  `yaml:"blacklist"`
	Whitelist  WhitelistConfig  `yaml:"whitelist"`
	DeviceRate DeviceRateConfig `yaml:"device_rate_limit"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

type UpstreamConfig struct {
	URL            string `yaml:"url"`
	APIToken       string `yaml:"api_token"`
	RequestTimeout int    `yaml:"request_timeout_s"`
	RetryInitialMs int    `yaml:"retry_initial_ms"`
	RetryMaxMs     int    `yaml:"retry_max_ms"`
	RetryMaxTries  int    `yaml:"retry_max_attempts"`
}

type BlacklistConfig struct {
	Enabled      bool `yaml:"enabled"`
	BlockDelayMs int  `yaml:"block_delay_ms"`
}

type WhitelistConfig struct {
	Enabled bool `yaml:"enabled"`
	// EnforceMode controls behavior on internal validation errors:
	// true denies the request, false logs a warning and lets it through.
	EnforceMode bool `yaml:"enforce_mode"`
}

type DeviceRateConfig struct {
	Requests         int `yaml:"requests"`
	WindowSeconds    int `yaml:"window_s"`
	AcquireTimeoutMs int `yaml:"acquire_timeout_ms"`
}

type CleanupConfig struct {
	IntervalSeconds int `yaml:"interval_s"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	LogSpans    bool    `yaml:"log_spans"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "gatehouse.db",
		Upstream: UpstreamConfig{
			URL:            "http://localhost:9000",
			RequestTimeout: 10,
			RetryInitialMs: 500,
			RetryMaxMs:     5000,
			RetryMaxTries:  3,
		},
		Blacklist: BlacklistConfig{
			Enabled:      true,
			BlockDelayMs: 1000,
		},
		Whitelist: WhitelistConfig{
			Enabled:     false,
			EnforceMode: false,
		},
		DeviceRate: DeviceRateConfig{
			Requests:         10,
			WindowSeconds:    60,
			AcquireTimeoutMs: 100,
		},
		Cleanup: CleanupConfig{
			IntervalSeconds: 300,
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
		Tracing: TracingConfig{
			Endpoint:    "",
			Insecure:    false,
			SampleRatio: 1,
			LogSpans:    false,
		},
	}
}

// Load reads config from file with env var overrides
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if listen := os.Getenv("GATEHOUSE_LISTEN"); listen != "" {
		cfg.Listen = listen
	}
	if upstream := os.Getenv("GATEHOUSE_UPSTREAM_URL"); upstream != "" {
		cfg.Upstream.URL = upstream
	}
	if token := os.Getenv("GATEHOUSE_UPSTREAM_TOKEN"); token != "" {
		cfg.Upstream.APIToken = token
	}
	if token := os.Getenv("GATEHOUSE_ADMIN_TOKEN"); token != "" {
		cfg.AdminToken = token
	}
	if level := os.Getenv("GATEHOUSE_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Upstream.URL == "" {
		return ErrMissingUpstreamURL
	}
	if c.Blacklist.BlockDelayMs < 0 {
		return ErrNegativeBlockDelay
	}
	if c.DeviceRate.Requests <= 0 {
		c.DeviceRate.Requests = 10
	}
	if c.DeviceRate.WindowSeconds <= 0 {
		c.DeviceRate.WindowSeconds = 60
	}
	if c.DeviceRate.AcquireTimeoutMs <= 0 {
		c.DeviceRate.AcquireTimeoutMs = 100
	}
	if c.Cleanup.IntervalSeconds <= 0 {
		c.Cleanup.IntervalSeconds = 300
	}
	if c.Upstream.RequestTimeout <= 0 {
		c.Upstream.RequestTimeout = 10
	}
	if c.Upstream.RetryInitialMs <= 0 {
		c.Upstream.RetryInitialMs = 500
	}
	if c.Upstream.RetryMaxMs < c.Upstream.RetryInitialMs {
		c.Upstream.RetryMaxMs = c.Upstream.RetryInitialMs
	}
	if c.Upstream.RetryMaxTries < 0 {
		c.Upstream.RetryMaxTries = 3
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}
	return nil
}

var (
	ErrMissingUpstreamURL = &Error{"upstream engine URL is required"}
	ErrNegativeBlockDelay = &Error{"block delay must not be negative"}
)

type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

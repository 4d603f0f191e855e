package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Download DownloadConfig `mapstructure:"download"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// HTTPConfig contains HTTP client configuration
type HTTPConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	Timeout       string `mapstructure:"timeout"`
	RetryMax      int    `mapstructure:"retry_max"`
	RetryWaitMin  string `mapstructure:"retry_wait_min"`
	RetryWaitMax  string `mapstructure:"retry_wait_max"`
	UserAgent     string `mapstructure:"user_agent"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

// DownloadConfig contains download manager settings
type DownloadConfig struct {
	TempDir           string `mapstructure:"temp_dir"`
	BufferSizeKB      int    `mapstructure:"buffer_size_kb"`
	MaxBytesPerSecond int64  `mapstructure:"max_bytes_per_second"`
	ProgressInterval  string `mapstructure:"progress_interval"`
	TempFileMaxAge    string `mapstructure:"temp_file_max_age"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig contains journal database settings
type DatabaseConfig struct {
	Path             string `mapstructure:"path"`
	JournalRetention string `mapstructure:"journal_retention"`
}

// MetricsConfig contains the Prometheus endpoint settings
type MetricsConfig struct {
	BindAddr string `mapstructure:"bind_addr"`
}

// Load loads configuration from the specified file path. An empty path
// uses defaults and FETCHKIT_* environment variables only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("fetchkit")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.base_url", "")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.retry_max", 0)
	v.SetDefault("http.retry_wait_min", "500ms")
	v.SetDefault("http.retry_wait_max", "10s")
	v.SetDefault("http.user_agent", "fetchkit/1.0")
	v.SetDefault("http.skip_tls_verify", false)
	v.SetDefault("download.temp_dir", filepath.Join(os.TempDir(), "fetchkit"))
	v.SetDefault("download.buffer_size_kb", 64)
	v.SetDefault("download.max_bytes_per_second", 0)
	v.SetDefault("download.progress_interval", "250ms")
	v.SetDefault("download.temp_file_max_age", "24h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("database.path", "")
	v.SetDefault("database.journal_retention", "720h")
	v.SetDefault("metrics.bind_addr", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTP.BaseURL != "" {
		u, err := url.Parse(c.HTTP.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("http.base_url must be an absolute URL: %q", c.HTTP.BaseURL)
		}
	}
	if c.HTTP.RetryMax < 0 || c.HTTP.RetryMax > 10 {
		return fmt.Errorf("http.retry_max must be between 0 and 10")
	}

	durations := map[string]string{
		"http.timeout":               c.HTTP.Timeout,
		"http.retry_wait_min":        c.HTTP.RetryWaitMin,
		"http.retry_wait_max":        c.HTTP.RetryWaitMax,
		"download.progress_interval": c.Download.ProgressInterval,
		"download.temp_file_max_age": c.Download.TempFileMaxAge,
		"database.journal_retention": c.Database.JournalRetention,
	}
	for key, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	if c.Download.TempDir == "" {
		return fmt.Errorf("download.temp_dir is required")
	}
	if c.Download.BufferSizeKB < 0 {
		return fmt.Errorf("download.buffer_size_kb must not be negative")
	}
	if c.Download.MaxBytesPerSecond < 0 {
		return fmt.Errorf("download.max_bytes_per_second must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetTimeout returns the one-shot request timeout as time.Duration
func (c *HTTPConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetRetryWaitMin returns the minimum retry backoff as time.Duration
func (c *HTTPConfig) GetRetryWaitMin() time.Duration {
	d, _ := time.ParseDuration(c.RetryWaitMin)
	if d == 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetRetryWaitMax returns the maximum retry backoff as time.Duration
func (c *HTTPConfig) GetRetryWaitMax() time.Duration {
	d, _ := time.ParseDuration(c.RetryWaitMax)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetBufferSize returns the download buffer size in bytes
func (c *DownloadConfig) GetBufferSize() int {
	if c.BufferSizeKB <= 0 {
		return 64 * 1024 // 64KB default
	}
	return c.BufferSizeKB * 1024
}

// GetProgressInterval returns the minimum time between progress updates
func (c *DownloadConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	return d
}

// GetTempFileMaxAge returns the age after which partial downloads are swept
func (c *DownloadConfig) GetTempFileMaxAge() time.Duration {
	d, _ := time.ParseDuration(c.TempFileMaxAge)
	if d == 0 {
		return 24 * time.Hour
	}
	return d
}

// GetPath returns the journal path, defaulting to the temp directory
func (c *DatabaseConfig) GetPath(tempDir string) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(tempDir, "journal.db")
}

// GetJournalRetention returns how long journal entries are kept
func (c *DatabaseConfig) GetJournalRetention() time.Duration {
	d, _ := time.ParseDuration(c.JournalRetention)
	if d == 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

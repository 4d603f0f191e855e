package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.HTTP.GetTimeout())
	assert.Equal(t, 0, cfg.HTTP.RetryMax)
	assert.Equal(t, "fetchkit/1.0", cfg.HTTP.UserAgent)
	assert.Equal(t, 64*1024, cfg.Download.GetBufferSize())
	assert.Equal(t, 250*time.Millisecond, cfg.Download.GetProgressInterval())
	assert.Equal(t, 24*time.Hour, cfg.Download.GetTempFileMaxAge())
	assert.Equal(t, filepath.Join(cfg.Download.TempDir, "journal.db"), cfg.Database.GetPath(cfg.Download.TempDir))
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Metrics.BindAddr)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
http:
  base_url: https://api.example.com/v2
  timeout: 5s
  retry_max: 2
download:
  temp_dir: /var/tmp/fk
  buffer_size_kb: 256
  max_bytes_per_second: 1048576
  progress_interval: 1s
logging:
  level: debug
  format: json
database:
  path: /var/lib/fk/journal.db
metrics:
  bind_addr: 127.0.0.1:9100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v2", cfg.HTTP.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTP.GetTimeout())
	assert.Equal(t, 2, cfg.HTTP.RetryMax)
	assert.Equal(t, "/var/tmp/fk", cfg.Download.TempDir)
	assert.Equal(t, 256*1024, cfg.Download.GetBufferSize())
	assert.Equal(t, int64(1048576), cfg.Download.MaxBytesPerSecond)
	assert.Equal(t, time.Second, cfg.Download.GetProgressInterval())
	assert.Equal(t, "/var/lib/fk/journal.db", cfg.Database.GetPath(cfg.Download.TempDir))
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.BindAddr)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FETCHKIT_LOGGING_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTP:     HTTPConfig{Timeout: "1s"},
			Download: DownloadConfig{TempDir: "/tmp/x"},
			Logging:  LoggingConfig{Level: "info", Format: "text"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"relative base url", func(c *Config) { c.HTTP.BaseURL = "api/v1" }},
		{"negative retries", func(c *Config) { c.HTTP.RetryMax = -1 }},
		{"bad timeout", func(c *Config) { c.HTTP.Timeout = "soon" }},
		{"bad progress interval", func(c *Config) { c.Download.ProgressInterval = "1 second" }},
		{"no temp dir", func(c *Config) { c.Download.TempDir = "" }},
		{"negative rate", func(c *Config) { c.Download.MaxBytesPerSecond = -5 }},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

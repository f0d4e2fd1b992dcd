package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Service  ServiceConfig  `toml:"service"`
	Upload   UploadConfig   `toml:"upload"`
	History  HistoryConfig  `toml:"history"`
	Audio    AudioConfig    `toml:"audio"`
	Database DatabaseConfig `toml:"database"`
}

// ServiceConfig contains the remote separation service settings.
type ServiceConfig struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout_sec"` // per poll/cancel/delete call; uploads are unbounded
}

// UploadConfig contains submission and progress-polling settings.
type UploadConfig struct {
	MaxUploadMB    int `toml:"max_upload_mb"`
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// HistoryConfig bounds the persisted result history.
type HistoryConfig struct {
	Capacity int `toml:"capacity"`
}

// AudioConfig contains playback output settings.
type AudioConfig struct {
	BufferMS int    `toml:"buffer_ms"`
	CacheDir string `toml:"cache_dir"` // downloaded stems land here; empty means os.TempDir
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidConfig)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MaxUploadBytes converts the configured limit to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Upload.MaxUploadMB) * 1024 * 1024
}

// PollInterval converts the configured poll interval to a [time.Duration].
func (c *Config) PollInterval() time.Duration {
	if c.Upload.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.Upload.PollIntervalMS) * time.Millisecond
}

// RequestTimeout converts the configured request timeout to a [time.Duration].
func (c *Config) RequestTimeout() time.Duration {
	if c.Service.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Service.RequestTimeout) * time.Second
}

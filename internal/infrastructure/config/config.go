package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all sessiond configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Desktop   DesktopConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// MaxConnections caps concurrently accepted connections; 0 means no cap.
	MaxConnections int  `envconfig:"MAX_CONNECTIONS" default:"256"`
	Compression    bool `envconfig:"HTTP_COMPRESSION" default:"true"`
}

// Addr joins host and port.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds per-IP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// StorageConfig selects the session record backend.
type StorageConfig struct {
	Driver     string `envconfig:"STORAGE_DRIVER" default:"file"`
	Dir        string `envconfig:"STORAGE_DIR" default:"./data/sessions"`
	SQLitePath string `envconfig:"STORAGE_SQLITE_PATH" default:"./data/sessions.db"`
}

// DesktopConfig wires the live desktop providers.
type DesktopConfig struct {
	// Mounts are "name=dir" pairs, e.g. "home:/=./vfs/home".
	Mounts       []string `envconfig:"VFS_MOUNTS" default:"home:/=./vfs/home"`
	CaptureRoot  string   `envconfig:"CAPTURE_ROOT" default:"home:/"`
	SettingsFile string   `envconfig:"SETTINGS_FILE" default:"./data/settings.json"`
	// AppTypes get the passthrough window serializer.
	AppTypes []string `envconfig:"APP_TYPES" default:"generic"`
}

var drivers = map[string]bool{"file": true, "sqlite": true, "memory": true}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if !drivers[c.Storage.Driver] {
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if len(c.Desktop.Mounts) == 0 {
		return fmt.Errorf("at least one VFS mount is required")
	}
	if !strings.Contains(c.Desktop.CaptureRoot, ":/") {
		return fmt.Errorf("capture root %q is not a mount path", c.Desktop.CaptureRoot)
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("max connections must not be negative, got %d", c.Server.MaxConnections)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit.RequestsPerSecond)
	}
	return nil
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8000",
			Host:           "0.0.0.0",
			MaxConnections: 256,
			Compression:    true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Storage: StorageConfig{
			Driver:     "file",
			Dir:        "./data/sessions",
			SQLitePath: "./data/sessions.db",
		},
		Desktop: DesktopConfig{
			Mounts:       []string{"home:/=./vfs/home"},
			CaptureRoot:  "home:/",
			SettingsFile: "./data/settings.json",
			AppTypes:     []string{"generic"},
		},
	}
}

// Package config handles configuration loading and validation for supportrelay.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hay-kot/criterio"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverJSONFile = "jsonfile"
)

// Config holds the application configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Store     StoreConfig     `yaml:"store"`
	Relay     RelayConfig     `yaml:"relay"`
	Directory DirectoryConfig `yaml:"directory"`
	DataDir   string          `yaml:"-"` // set by caller, not from config file
}

// HTTPConfig configures the HTTP listener.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	AllowedOrigins    []string      `yaml:"allowed_origins"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and tunes the message store.
type StoreConfig struct {
	Driver          string        `yaml:"driver"` // postgres or jsonfile; inferred from dsn when empty
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	DataDir         string        `yaml:"data_dir"` // jsonfile only
}

// RelayConfig tunes the websocket transport.
type RelayConfig struct {
	SendQueueSize int           `yaml:"send_queue_size"`
	MaxFrameBytes int64         `yaml:"max_frame_bytes"`
	PingInterval  time.Duration `yaml:"ping_interval"`
	PongWait      time.Duration `yaml:"pong_wait"`
	WriteWait     time.Duration `yaml:"write_wait"`
}

// DirectoryConfig tunes the conversation directory.
type DirectoryConfig struct {
	PreviewLength int `yaml:"preview_length"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   15 * time.Second,
		},
		Store: StoreConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Relay: RelayConfig{
			SendQueueSize: 64,
			MaxFrameBytes: 16 << 10,
			PingInterval:  50 * time.Second,
			PongWait:      60 * time.Second,
			WriteWait:     10 * time.Second,
		},
		Directory: DirectoryConfig{
			PreviewLength: 80,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
// DATABASE_URL and PORT from the environment override the file.
func Load(configPath, dataDir string) (*Config, error) {
	return load(configPath, dataDir, os.LookupEnv)
}

func load(configPath, dataDir string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyEnv(lookupEnv)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyEnv applies the deployment environment variables.
func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) {
	if dsn, ok := lookupEnv("DATABASE_URL"); ok && dsn != "" {
		c.Store.DSN = dsn
	}
	if port, ok := lookupEnv("PORT"); ok && port != "" {
		c.HTTP.Addr = ":" + port
	}
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaults.HTTP.Addr
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = defaults.HTTP.ReadHeaderTimeout
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = defaults.HTTP.ShutdownTimeout
	}

	if c.Store.Driver == "" {
		c.Store.Driver = DriverJSONFile
		if c.Store.DSN != "" {
			c.Store.Driver = DriverPostgres
		}
	}
	if c.Store.DataDir == "" && c.DataDir != "" {
		c.Store.DataDir = filepath.Join(c.DataDir, "conversations")
	}
	if c.Store.MaxOpenConns == 0 {
		c.Store.MaxOpenConns = defaults.Store.MaxOpenConns
	}
	if c.Store.MaxIdleConns == 0 {
		c.Store.MaxIdleConns = defaults.Store.MaxIdleConns
	}
	if c.Store.ConnMaxLifetime == 0 {
		c.Store.ConnMaxLifetime = defaults.Store.ConnMaxLifetime
	}

	if c.Relay.SendQueueSize == 0 {
		c.Relay.SendQueueSize = defaults.Relay.SendQueueSize
	}
	if c.Relay.MaxFrameBytes == 0 {
		c.Relay.MaxFrameBytes = defaults.Relay.MaxFrameBytes
	}
	if c.Relay.PingInterval == 0 {
		c.Relay.PingInterval = defaults.Relay.PingInterval
	}
	if c.Relay.PongWait == 0 {
		c.Relay.PongWait = defaults.Relay.PongWait
	}
	if c.Relay.WriteWait == 0 {
		c.Relay.WriteWait = defaults.Relay.WriteWait
	}
}

// Validate checks that the configuration is valid. Errors are reported per
// field as criterio.FieldErrors.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.HTTP.Addr == "" {
		errs = errs.Append("http.addr", fmt.Errorf("cannot be empty"))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = errs.Append("http.shutdown_timeout", fmt.Errorf("cannot be negative"))
	}

	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DSN == "" {
			errs = errs.Append("store.dsn", fmt.Errorf("required for the postgres driver (or set DATABASE_URL)"))
		}
		if c.Store.MaxOpenConns < 1 {
			errs = errs.Append("store.max_open_conns", fmt.Errorf("must be at least 1"))
		}
		if c.Store.MaxIdleConns < 0 {
			errs = errs.Append("store.max_idle_conns", fmt.Errorf("cannot be negative"))
		}
	case DriverJSONFile:
		if c.Store.DataDir == "" {
			errs = errs.Append("store.data_dir", fmt.Errorf("required for the jsonfile driver"))
		}
	default:
		errs = errs.Append("store.driver", fmt.Errorf("unknown driver %q (want %s or %s)", c.Store.Driver, DriverPostgres, DriverJSONFile))
	}

	if c.Relay.SendQueueSize < 1 {
		errs = errs.Append("relay.send_queue_size", fmt.Errorf("must be at least 1"))
	}
	if c.Relay.MaxFrameBytes < 1 {
		errs = errs.Append("relay.max_frame_bytes", fmt.Errorf("must be at least 1"))
	}
	if c.Relay.PongWait <= 0 {
		errs = errs.Append("relay.pong_wait", fmt.Errorf("must be positive"))
	}
	if c.Relay.PingInterval <= 0 || c.Relay.PingInterval >= c.Relay.PongWait {
		errs = errs.Append("relay.ping_interval", fmt.Errorf("must be positive and shorter than relay.pong_wait"))
	}
	if c.Relay.WriteWait <= 0 {
		errs = errs.Append("relay.write_wait", fmt.Errorf("must be positive"))
	}

	if c.Directory.PreviewLength < 0 {
		errs = errs.Append("directory.preview_length", fmt.Errorf("cannot be negative"))
	}

	return errs.ToError()
}

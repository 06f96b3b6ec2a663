package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/gradebook/pkg/database"
	"github.com/JaimeStill/gradebook/pkg/lock"
	"github.com/JaimeStill/gradebook/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvGradebookEnv             = "GRADEBOOK_ENV"
	EnvGradebookShutdownTimeout = "GRADEBOOK_SHUTDOWN_TIMEOUT"
	EnvGradebookVersion         = "GRADEBOOK_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "GRADEBOOK_DB_HOST",
	Port:            "GRADEBOOK_DB_PORT",
	Name:            "GRADEBOOK_DB_NAME",
	User:            "GRADEBOOK_DB_USER",
	Password:        "GRADEBOOK_DB_PASSWORD",
	SSLMode:         "GRADEBOOK_DB_SSL_MODE",
	MaxOpenConns:    "GRADEBOOK_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "GRADEBOOK_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "GRADEBOOK_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "GRADEBOOK_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "GRADEBOOK_STORAGE_PROVIDER",
	ContainerName:    "GRADEBOOK_STORAGE_CONTAINER_NAME",
	ConnectionString: "GRADEBOOK_STORAGE_CONNECTION_STRING",
	MaxListSize:      "GRADEBOOK_STORAGE_MAX_LIST_SIZE",
}

var lockEnv = &lock.Env{
	Provider:    "GRADEBOOK_LOCK_PROVIDER",
	Addr:        "GRADEBOOK_LOCK_ADDR",
	Password:    "GRADEBOOK_LOCK_PASSWORD",
	DB:          "GRADEBOOK_LOCK_DB",
	Prefix:      "GRADEBOOK_LOCK_PREFIX",
	TTL:         "GRADEBOOK_LOCK_TTL",
	ConnTimeout: "GRADEBOOK_LOCK_CONN_TIMEOUT",
}

// Config is the root configuration for the gradebook service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Lock            lock.Config     `toml:"lock"`
	Imports         ImportsConfig   `toml:"imports"`
	API             APIConfig       `toml:"api"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the GRADEBOOK_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvGradebookEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Lock.Merge(&overlay.Lock)
	c.Imports.Merge(&overlay.Imports)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Lock.Finalize(lockEnv); err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	if err := c.Imports.Finalize(); err != nil {
		return fmt.Errorf("imports: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvGradebookShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvGradebookVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvGradebookEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Package config loads the application configuration from environment
// variables (LICENSEGATE_ prefix) with an optional YAML file underneath.
// Environment values take precedence over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/licensegate.log"`
}

// StorageConfig contains storage backend configuration
type StorageConfig struct {
	Path string `yaml:"path" envconfig:"PATH" default:"licensegate.db"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// Load loads configuration from environment variables and, when present,
// the config file named by LICENSEGATE_CONFIG (default config.yaml).
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("LICENSEGATE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := os.Getenv("LICENSEGATE_CONFIG")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = merge(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays env config on top of file config. File values only fill
// fields the environment left at their zero value after default handling,
// so LICENSEGATE_* variables always win.
func merge(fileCfg, envCfg Config) Config {
	if isEnvSet("LICENSEGATE_SERVER_PORT") || fileCfg.Server.Port == 0 {
		fileCfg.Server.Port = envCfg.Server.Port
	}
	if isEnvSet("LICENSEGATE_SERVER_READ_TIMEOUT") || fileCfg.Server.ReadTimeout == 0 {
		fileCfg.Server.ReadTimeout = envCfg.Server.ReadTimeout
	}
	if isEnvSet("LICENSEGATE_SERVER_WRITE_TIMEOUT") || fileCfg.Server.WriteTimeout == 0 {
		fileCfg.Server.WriteTimeout = envCfg.Server.WriteTimeout
	}
	if isEnvSet("LICENSEGATE_SERVER_IDLE_TIMEOUT") || fileCfg.Server.IdleTimeout == 0 {
		fileCfg.Server.IdleTimeout = envCfg.Server.IdleTimeout
	}
	if isEnvSet("LICENSEGATE_SERVER_REQUEST_TIMEOUT") || fileCfg.Server.RequestTimeout == 0 {
		fileCfg.Server.RequestTimeout = envCfg.Server.RequestTimeout
	}
	if isEnvSet("LICENSEGATE_SERVER_SHUTDOWN_TIMEOUT") || fileCfg.Server.ShutdownTimeout == 0 {
		fileCfg.Server.ShutdownTimeout = envCfg.Server.ShutdownTimeout
	}
	if isEnvSet("LICENSEGATE_LOGGING_LEVEL") || fileCfg.Logging.Level == "" {
		fileCfg.Logging.Level = envCfg.Logging.Level
	}
	if isEnvSet("LICENSEGATE_LOGGING_OUTPUT") || fileCfg.Logging.Output == "" {
		fileCfg.Logging.Output = envCfg.Logging.Output
	}
	if isEnvSet("LICENSEGATE_LOGGING_FILE_PATH") || fileCfg.Logging.FilePath == "" {
		fileCfg.Logging.FilePath = envCfg.Logging.FilePath
	}
	if isEnvSet("LICENSEGATE_STORAGE_PATH") || fileCfg.Storage.Path == "" {
		fileCfg.Storage.Path = envCfg.Storage.Path
	}
	if isEnvSet("LICENSEGATE_SECURITY_RATE_LIMIT_ENABLED") {
		fileCfg.Security.RateLimit.Enabled = envCfg.Security.RateLimit.Enabled
	}
	if isEnvSet("LICENSEGATE_SECURITY_RATE_LIMIT_RPS") || fileCfg.Security.RateLimit.RPS == 0 {
		fileCfg.Security.RateLimit.RPS = envCfg.Security.RateLimit.RPS
	}
	if isEnvSet("LICENSEGATE_SECURITY_RATE_LIMIT_BURST") || fileCfg.Security.RateLimit.Burst == 0 {
		fileCfg.Security.RateLimit.Burst = envCfg.Security.RateLimit.Burst
	}
	return fileCfg
}

func isEnvSet(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

// validate checks the loaded configuration for usable values
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path must not be empty")
	}
	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Package config loads CLI configuration from an optional YAML file.
//
// Command-line flags take precedence over the file; the file takes
// precedence over Default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend names accepted in Config.Backend.
const (
	BackendMemory     = "memory"
	BackendSQLite     = "sqlite"
	BackendGormSQLite = "gorm-sqlite"
	BackendPostgres   = "postgres"
	BackendRedis      = "redis"
)

// Config selects the store backend and engine parameters.
type Config struct {
	// Backend is one of memory, sqlite, gorm-sqlite, postgres, redis.
	Backend string `yaml:"backend"`

	// DSN is the database path (sqlite, gorm-sqlite) or connection string
	// (postgres). Ignored by memory and redis.
	DSN string `yaml:"dsn"`

	// MaxAttempts bounds conflict retries per selection.
	MaxAttempts int `yaml:"max_attempts"`

	// Redis configures the redis backend.
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Backend:     BackendSQLite,
		DSN:         "rotation.db",
		MaxAttempts: 5,
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "rotation:",
		},
	}
}

// Load reads path over Default. An empty path returns Default unchanged.
// Unknown keys are rejected so that typos surface instead of silently
// falling back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the backend name and its required settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite, BackendGormSQLite, BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("backend %s requires dsn", c.Backend)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("backend redis requires redis.addr")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	return nil
}

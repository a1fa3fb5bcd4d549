// Package config loads the application configuration from a YAML file
// with environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top level application configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig configures the GIOS REST API client
type ProviderConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// DatabaseConfig holds the relational store connection settings.
// Driver selects the backend: "postgres" (PostGIS) or "sqlite3".
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file location for the sqlite3 driver
	Path string `yaml:"path"`
}

// IngestConfig configures the periodic ingestion runs
type IngestConfig struct {
	// Schedule is a cron expression; every full hour by default
	Schedule string `yaml:"schedule"`
	// ReadingLagHours shifts the reading window back from the current
	// hour to compensate for provider reporting lag
	ReadingLagHours int `yaml:"reading_lag_hours"`
}

// WebConfig configures the station map web server
type WebConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads the configuration file at path, applies defaults and
// environment overrides. A missing file is not an error; defaults
// and environment variables are used instead.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Provider: ProviderConfig{
			BaseURL:        "http://api.gios.gov.pl/pjp-api/rest",
			TimeoutSeconds: 10,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite3",
			Path:     "data/haqs.db",
			Host:     "localhost",
			Port:     5432,
			Database: "haqs",
			User:     "postgres",
			SSLMode:  "disable",
		},
		Ingest: IngestConfig{
			Schedule:        "0 * * * *",
			ReadingLagHours: 1,
		},
		Web: WebConfig{
			Addr: ":8000",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("HAQS_DB_DRIVER")); v != "" {
		cfg.Database.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("HAQS_DB_HOST")); v != "" {
		cfg.Database.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("HAQS_DB_NAME")); v != "" {
		cfg.Database.Database = v
	}
	if v := strings.TrimSpace(os.Getenv("HAQS_DB_USER")); v != "" {
		cfg.Database.User = v
	}
	if v := strings.TrimSpace(os.Getenv("HAQS_DB_PASSWORD")); v != "" {
		cfg.Database.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("HAQS_DB_PATH")); v != "" {
		cfg.Database.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("HAQS_PROVIDER_URL")); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("HAQS_WEB_ADDR")); v != "" {
		cfg.Web.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("HAQS_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}

func (c Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver %q (allowed: postgres, sqlite3)", c.Database.Driver)
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider base_url must not be empty")
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid provider timeout_seconds %d", c.Provider.TimeoutSeconds)
	}
	if c.Ingest.ReadingLagHours < 0 {
		return fmt.Errorf("invalid ingest reading_lag_hours %d", c.Ingest.ReadingLagHours)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// ProviderTimeout returns the HTTP client timeout for provider requests
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// ReadingLag returns the reading window lag as a duration
func (c Config) ReadingLag() time.Duration {
	return time.Duration(c.Ingest.ReadingLagHours) * time.Hour
}

// LogLevel parses the configured log level
func (c Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", c.Log.Level)
	}
}

// DSN builds the database connection string for the configured driver
func (c Config) DSN() string {
	switch c.Database.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			c.Database.Host, c.Database.Port, c.Database.Database,
			c.Database.User, c.Database.Password, c.Database.SSLMode)
	default:
		// foreign_keys=on so the store, not just the pipeline, enforces
		// referential integrity between readings, sensors and stations
		return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.Database.Path)
	}
}

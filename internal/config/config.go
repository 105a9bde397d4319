// Package config provides centralized configuration management for the ingester.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Watch    WatchConfig
	State    StateConfig
	Audit    AuditConfig
	Load     LoadConfig
	Logging  LoggingConfig
	Server   ServerConfig
	Schedule ScheduleConfig
}

// DatabaseConfig holds destination database settings.
type DatabaseConfig struct {
	// Driver selects the backend: postgres or sqlite (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Split connection settings, used when URL is empty
	Username string `env:"DB_USERNAME"`
	Password string `env:"DB_PASSWORD"`
	Host     string `env:"DB_HOST"`
	Port     int    `env:"DB_PORT" default:"5432"`
	Name     string `env:"DB_NAME"`

	// SQLitePath is the database file for the sqlite driver
	SQLitePath string `env:"SQLITE_PATH" default:"mtsload.sqlite"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// WatchConfig lists the directories scanned for test logs.
type WatchConfig struct {
	// Dirs is a comma-separated list of directories
	Dirs []string `env:"WATCH_DIRS"`

	// Legacy single-directory settings
	Directory1 string `env:"DIRECTORY_1"`
	Directory2 string `env:"DIRECTORY_2"`
	Directory3 string `env:"DIRECTORY_3"`
	Directory4 string `env:"DIRECTORY_4"`

	// File is an optional YAML file of directories, each optionally pinned to a station
	File string `env:"WATCH_FILE"`
}

// StateConfig holds resume-state settings.
type StateConfig struct {
	// Dir holds last_lines.txt, etl_log_id.txt and mod_times.txt (default: .)
	Dir string `env:"STATE_DIR" default:"."`
}

// AuditConfig holds run-metadata settings.
type AuditConfig struct {
	// Dir holds the monthly etl_log_YYYY_MM.txt files (default: system_data)
	Dir string `env:"AUDIT_DIR" default:"system_data"`

	// DBEnabled mirrors audit records into the etl_log table (default: true)
	DBEnabled bool `env:"AUDIT_DB_ENABLED" default:"true"`
}

// LoadConfig holds loader settings.
type LoadConfig struct {
	// BatchSize is the number of rows per insert transaction (default: 10000)
	BatchSize int `env:"LOAD_BATCH_SIZE" default:"10000"`

	// Timeout bounds the work on a single file (default: 10m)
	Timeout time.Duration `env:"LOAD_TIMEOUT" default:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// Dir receives the monthly etl_error_log_YYYY_MM.txt files (default: system_data)
	Dir string `env:"LOG_DIR" default:"system_data"`

	// DBEnabled mirrors warn and error records into the error_log table (default: true)
	DBEnabled bool `env:"LOG_DB_ENABLED" default:"true"`
}

// ServerConfig holds status server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 9108)
	Port int `env:"SERVER_PORT" default:"9108"`

	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// ScheduleConfig holds the serve-mode schedule.
type ScheduleConfig struct {
	// Cron is a five-field cron line or descriptor (default: every five minutes)
	Cron string `env:"SCHEDULE_CRON" default:"*/5 * * * *"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DSN returns the PostgreSQL connection string, assembling it from the split
// settings when no URL is configured.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Host == "" || c.Name == "" {
		return ""
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	switch {
	case c.Username != "" && c.Password != "":
		u.User = url.UserPassword(c.Username, c.Password)
	case c.Username != "":
		u.User = url.User(c.Username)
	}
	return u.String()
}

// Directories returns WATCH_DIRS followed by DIRECTORY_1..4, deduplicated and
// in declaration order.
func (c *WatchConfig) Directories() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(d string) {
		if d == "" || seen[d] {
			return
		}
		seen[d] = true
		out = append(out, d)
	}

	for _, d := range c.Dirs {
		add(d)
	}
	for _, d := range []string{c.Directory1, c.Directory2, c.Directory3, c.Directory4} {
		add(d)
	}
	return out
}

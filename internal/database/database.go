// Package database provides the destination backends for ingested records:
// PostgreSQL through pgx and a single-file SQLite store for bench setups.
//
// Both backends implement core.Destination and core.AuditSink and accept
// error-log records from the logging package.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/mtsload/internal/core"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Backend is everything the ingester needs from a destination database.
type Backend interface {
	core.Destination
	core.AuditSink
	InsertErrorLog(ctx context.Context, at time.Time, level, message string) error
	// EnsureBookkeeping creates the etl_log and error_log tables.
	EnsureBookkeeping(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and tunes a backend.
type Config struct {
	Driver          string
	URL             string
	SQLitePath      string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the configured backend and verifies the connection.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case DriverPostgres, "":
		p, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

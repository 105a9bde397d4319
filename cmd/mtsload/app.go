package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/mtsload/internal/config"
	"github.com/JonMunkholm/mtsload/internal/core"
	"github.com/JonMunkholm/mtsload/internal/database"
	"github.com/JonMunkholm/mtsload/internal/logging"
	"github.com/JonMunkholm/mtsload/internal/metrics"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	db       database.Backend
	registry *prometheus.Registry
	service  *core.Service

	closeLog func() error
}

// loadConfig reads the env file (Overload overwrites existing env vars) and
// the configuration, then installs logging.
func loadConfig(opts *rootOptions) (*config.Config, func() error, error) {
	if err := godotenv.Overload(opts.envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("load %s: %w", opts.envFile, err)
		}
		slog.Debug("no env file found, using environment variables", "path", opts.envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	closeLog, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Dir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, closeLog, nil
}

// newApp loads configuration and connects every component.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, closeLog, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, closeLog: closeLog}

	slog.Info("configuration loaded", "config", cfg.String())

	a.db, err = database.Open(ctx, database.Config{
		Driver:          strings.ToLower(cfg.Database.Driver),
		URL:             cfg.Database.DSN(),
		SQLitePath:      cfg.Database.SQLitePath,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := a.db.EnsureBookkeeping(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if cfg.Logging.DBEnabled {
		logging.AttachSink(a.db)
	}

	entries, err := cfg.Watch.WatchEntries()
	if err != nil {
		a.Close()
		return nil, err
	}
	dirs := make([]core.WatchDir, 0, len(entries))
	for _, e := range entries {
		dirs = append(dirs, core.WatchDir{Path: e.Path, Station: e.Station})
	}

	var sink core.AuditSink
	if cfg.Audit.DBEnabled {
		sink = a.db
	}

	a.registry = prometheus.NewRegistry()
	a.service = core.NewService(a.db, core.NewAuditLog(cfg.Audit.Dir, sink), metrics.New(a.registry), core.Options{
		Dirs:        dirs,
		StateDir:    cfg.State.Dir,
		BatchSize:   cfg.Load.BatchSize,
		FileTimeout: cfg.Load.Timeout,
	})

	slog.Info("stations registered", "count", core.StationCount(), "watch_dirs", len(dirs))
	return a, nil
}

// Close releases the database and the log file.
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Warn("close database", "error", err)
		}
	}
	if a.closeLog != nil {
		a.closeLog()
	}
}

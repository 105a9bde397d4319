package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/mtsload/internal/core"
)

// SQLite DSN parameters. The ingester is the only writer, so a single
// connection with immediate transactions is enough.
const (
	sqliteBusyTimeout = "5000"
	sqliteSynchronous = "NORMAL"
	sqliteJournalMode = "WAL"
)

// SQLite is the single-file backend. Table ids use AUTOINCREMENT; the per
// station id base is applied by seeding sqlite_sequence.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	db, err := sql.Open("sqlite3", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	slog.Info("database opened", "driver", DriverSQLite, "path", path)
	return NewSQLite(db), nil
}

// NewSQLite wraps an open *sql.DB.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func sqliteDSN(path string) string {
	params := url.Values{}
	params.Set("_journal_mode", sqliteJournalMode)
	params.Set("_busy_timeout", sqliteBusyTimeout)
	params.Set("_synchronous", sqliteSynchronous)
	params.Set("_txlock", "immediate")
	return path + "?" + params.Encode()
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

// EnsureBookkeeping creates etl_log and error_log.
func (s *SQLite) EnsureBookkeeping(ctx context.Context) error {
	for _, stmt := range sqliteDialect.bookkeeping() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create bookkeeping table: %w", err)
		}
	}
	return nil
}

func (s *SQLite) CreateTable(ctx context.Context, table string, schema core.Schema) error {
	_, err := s.db.ExecContext(ctx, sqliteDialect.createTable(table, schema))
	return err
}

func (s *SQLite) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// SequenceExists reports whether table has a row in sqlite_sequence. The
// sequence name is not used; SQLite keys sequences by table.
func (s *SQLite) SequenceExists(ctx context.Context, table, _ string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_sequence WHERE name = ?`, table).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateSequence seeds sqlite_sequence so the next AUTOINCREMENT id is start.
func (s *SQLite) CreateSequence(ctx context.Context, table, _ string, start int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`, table, start-1)
	return err
}

// BindSequence is a no-op: AUTOINCREMENT already feeds the id column.
func (s *SQLite) BindSequence(context.Context, string, string) error {
	return nil
}

func (s *SQLite) InsertBatch(ctx context.Context, table string, schema core.Schema, rows [][]any) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteDialect.insert(table, schema.Names()))
	if err != nil {
		return 0, fmt.Errorf("prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	var n int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("insert into %s: %w", table, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *SQLite) InsertRunMetadata(ctx context.Context, m core.RunMetadata) error {
	_, err := s.db.ExecContext(ctx, sqliteDialect.insert(etlLogTable, etlLogColumns), sqlRunMetadataArgs(m)...)
	return err
}

func sqlRunMetadataArgs(m core.RunMetadata) []any {
	return []any{
		m.RunID,
		m.StartedAt,
		sqlTime(m.HeaderTimestamp),
		sqlString(m.StationName),
		sqlString(m.TestFileName),
		sqlString(m.Table),
		sqlInt(m.RowsInserted),
		sqlInt(m.MinutesSinceLastRun),
	}
}

func (s *SQLite) InsertErrorLog(ctx context.Context, at time.Time, level, message string) error {
	_, err := s.db.ExecContext(ctx, sqliteDialect.insert(errorLogTable, errorLogColumns), at, level, message)
	return err
}

func sqlString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func sqlInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func sqlTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/mtsload/internal/core"
)

// pgxConn is the subset of *pgxpool.Pool used by Postgres.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// pgMaxIdentifierLength is NAMEDATALEN-1; longer names are truncated by the server.
const pgMaxIdentifierLength = 63

// Postgres is the PostgreSQL backend.
type Postgres struct {
	pool pgxConn
}

// OpenPostgres creates a connection pool for cfg.URL and pings it.
func OpenPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database pool initialized",
		"driver", DriverPostgres,
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns,
		"max_conn_lifetime", poolCfg.MaxConnLifetime,
		"max_conn_idle_time", poolCfg.MaxConnIdleTime,
	)
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// MaxIdentifierLength reports the byte length at which the server truncates
// table and column names.
func (p *Postgres) MaxIdentifierLength() int { return pgMaxIdentifierLength }

// EnsureBookkeeping creates etl_log and error_log.
func (p *Postgres) EnsureBookkeeping(ctx context.Context) error {
	for _, stmt := range postgresDialect.bookkeeping() {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create bookkeeping table: %w", err)
		}
	}
	return nil
}

func (p *Postgres) CreateTable(ctx context.Context, table string, schema core.Schema) error {
	_, err := p.pool.Exec(ctx, postgresDialect.createTable(table, schema))
	return err
}

// TableColumns reads the table's columns from information_schema.
func (p *Postgres) TableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (p *Postgres) SequenceExists(ctx context.Context, _, sequence string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_class WHERE relname = $1 AND relkind = 'S')`,
		sequence,
	).Scan(&exists)
	return exists, err
}

func (p *Postgres) CreateSequence(ctx context.Context, _, sequence string, start int64) error {
	_, err := p.pool.Exec(ctx, createSequenceSQL(sequence, start))
	return err
}

func (p *Postgres) BindSequence(ctx context.Context, table, sequence string) error {
	_, err := p.pool.Exec(ctx, bindSequenceSQL(table, sequence))
	return err
}

func createSequenceSQL(sequence string, start int64) string {
	return fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START WITH %d",
		pgx.Identifier{sequence}.Sanitize(), start)
}

func bindSequenceSQL(table, sequence string) string {
	return fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT nextval(%s::regclass)",
		pgx.Identifier{table}.Sanitize(),
		pgx.Identifier{core.ColumnID}.Sanitize(),
		quoteLiteral(pgx.Identifier{sequence}.Sanitize()),
	)
}

// InsertBatch streams rows with COPY inside one transaction.
func (p *Postgres) InsertBatch(ctx context.Context, table string, schema core.Schema, rows [][]any) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, schema.Names(), pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// InsertRunMetadata mirrors an audit record into etl_log.
func (p *Postgres) InsertRunMetadata(ctx context.Context, m core.RunMetadata) error {
	_, err := p.pool.Exec(ctx, postgresDialect.insert(etlLogTable, etlLogColumns), pgRunMetadataArgs(m)...)
	return err
}

func pgRunMetadataArgs(m core.RunMetadata) []any {
	return []any{
		m.RunID,
		pgtype.Timestamp{Time: m.StartedAt, Valid: true},
		pgTimestamp(m.HeaderTimestamp),
		pgText(m.StationName),
		pgText(m.TestFileName),
		pgText(m.Table),
		pgInt4(m.RowsInserted),
		pgInt4(m.MinutesSinceLastRun),
	}
}

// InsertErrorLog stores one log record in error_log.
func (p *Postgres) InsertErrorLog(ctx context.Context, at time.Time, level, message string) error {
	_, err := p.pool.Exec(ctx, postgresDialect.insert(errorLogTable, errorLogColumns),
		pgtype.Timestamp{Time: at, Valid: true}, level, message)
	return err
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

func pgInt4(n *int) pgtype.Int4 {
	if n == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*n), Valid: true}
}

func pgTimestamp(t *time.Time) pgtype.Timestamp {
	if t == nil {
		return pgtype.Timestamp{}
	}
	return pgtype.Timestamp{Time: *t, Valid: true}
}

package database

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/mtsload/internal/core"
)

func newMockSQLite(t *testing.T) (*SQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLite(db), mock
}

func TestSQLite_TableColumns(t *testing.T) {
	s, mock := newMockSQLite(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name FROM pragma_table_info(?)`)).
		WithArgs("table_top").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("id").AddRow("run_id").AddRow("A"))

	cols, err := s.TableColumns(context.Background(), "table_top")

	require.NoError(t, err)
	assert.Equal(t, []string{"id", "run_id", "A"}, cols)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_Sequence(t *testing.T) {
	s, mock := newMockSQLite(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM sqlite_sequence WHERE name = ?`)).
		WithArgs("rotary").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO sqlite_sequence (name, seq) VALUES (?, ?)`)).
		WithArgs("rotary", int64(1_999_999_999_999_999_999)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	exists, err := s.SequenceExists(context.Background(), "rotary", "rotary_id_seq")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateSequence(context.Background(), "rotary", "rotary_id_seq", 2_000_000_000_000_000_000))
	assert.NoError(t, s.BindSequence(context.Background(), "rotary", "rotary_id_seq"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_InsertBatch(t *testing.T) {
	s, mock := newMockSQLite(t)
	schema := core.Schema{{Name: "run_id", Kind: core.KindInteger}, {Name: "A", Kind: core.KindFloat}}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "table_top" ("run_id", "A") VALUES (?, ?)`))
	prep.ExpectExec().WithArgs(int64(1), 1.5).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(int64(1), 2.5).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	n, err := s.InsertBatch(context.Background(), "table_top", schema, [][]any{{int64(1), 1.5}, {int64(1), 2.5}})

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_InsertBatchRollsBackOnError(t *testing.T) {
	s, mock := newMockSQLite(t)
	schema := core.Schema{{Name: "A", Kind: core.KindFloat}}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "t" ("A") VALUES (?)`))
	prep.ExpectExec().WithArgs(1.0).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(2.0).WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	n, err := s.InsertBatch(context.Background(), "t", schema, [][]any{{1.0}, {2.0}})

	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_InsertRunMetadata(t *testing.T) {
	s, mock := newMockSQLite(t)
	started := time.Date(2024, 11, 5, 13, 0, 0, 0, time.UTC)
	rows := 42

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "etl_log" ("id", "began_at_timestamp", "header_tstamp_first", "station_name", "test_file_name", "table_name", "rows_inserted", "minutes_since_last_run") VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)).
		WithArgs(int64(7), started, nil, "Table Top 2", nil, "table_top", int64(42), nil).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.InsertRunMetadata(context.Background(), core.RunMetadata{
		RunID:        7,
		StartedAt:    started,
		StationName:  "Table Top 2",
		Table:        "table_top",
		RowsInserted: &rows,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_InsertErrorLog(t *testing.T) {
	s, mock := newMockSQLite(t)
	at := time.Date(2024, 11, 5, 13, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "error_log" ("timestamp", "level", "message") VALUES (?, ?, ?)`)).
		WithArgs(at, "ERROR", "batch insert failed").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.InsertErrorLog(context.Background(), at, "ERROR", "batch insert failed"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLite_EnsureBookkeeping(t *testing.T) {
	s, mock := newMockSQLite(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS etl_log")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS error_log")).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureBookkeeping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// openRealSQLite opens a file database, skipping when the driver was built
// without cgo.
func openRealSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "mts.sqlite"))
	if err != nil {
		if strings.Contains(err.Error(), "CGO_ENABLED=0") {
			t.Skip("sqlite3 driver requires cgo")
		}
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_ProvisionAndLoad(t *testing.T) {
	s := openRealSQLite(t)
	ctx := context.Background()
	st := core.Station{Key: "rotary", IDBase: 2_000_000_000_000_000_000}

	lines := []string{"Station Name: R1", "Test File Name: t", "Axial Force\tid", "kN\t-", "1.5\t99", "2.5\t98"}
	scan := core.ParseHeader(lines, 0)
	res := core.DecodeRows(lines, 0, scan, 3)
	require.Len(t, res.Records, 2)

	loader := core.NewLoader(s, core.NewProvisioner(s), 1)
	got := loader.Load(ctx, st, res)
	require.True(t, got.OK, "load error: %v", got.Err)
	assert.Equal(t, 2, got.Inserted)

	cols, err := s.TableColumns(ctx, "rotary")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "run_id", "header_timestamp", "station_name", "Axial Force"}, cols)

	var minID, maxID int64
	require.NoError(t, s.db.QueryRow(`SELECT MIN(id), MAX(id) FROM "rotary"`).Scan(&minID, &maxID))
	assert.Equal(t, int64(2_000_000_000_000_000_000), minID)
	assert.Equal(t, minID+1, maxID)

	require.NoError(t, s.EnsureBookkeeping(ctx))
	require.NoError(t, s.InsertRunMetadata(ctx, core.RunMetadata{RunID: 3, StartedAt: time.Now(), Table: "rotary"}))
	require.NoError(t, s.InsertErrorLog(ctx, time.Now(), "ERROR", "x"))
}

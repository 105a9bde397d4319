package core

// audit.go writes one run-metadata record per file attempt.
//
// Records go to a monthly tab-separated file (etl_log_YYYY_MM.txt) in the
// audit directory and, when a sink is configured, to the etl_log table. The
// file is authoritative: a sink failure is logged and the run continues.

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// AuditTimeLayout formats timestamps in the audit file.
const AuditTimeLayout = "2006-01-02 15:04:05"

var auditColumns = []string{
	"id",
	"began_at_timestamp",
	"header_tstamp_first",
	"station_name",
	"test_file_name",
	"table_name",
	"rows_inserted",
	"minutes_since_last_run",
}

// AuditLog appends run-metadata records.
type AuditLog struct {
	dir  string
	sink AuditSink

	mu sync.Mutex
}

// NewAuditLog writes monthly files under dir. sink may be nil.
func NewAuditLog(dir string, sink AuditSink) *AuditLog {
	return &AuditLog{dir: dir, sink: sink}
}

// FileName returns the audit file used for records started at t.
func (a *AuditLog) FileName(t time.Time) string {
	return filepath.Join(a.dir, fmt.Sprintf("etl_log_%04d_%02d.txt", t.Year(), int(t.Month())))
}

// Append writes m to the monthly file and the sink.
func (a *AuditLog) Append(ctx context.Context, m RunMetadata) error {
	a.mu.Lock()
	err := a.appendFile(m)
	a.mu.Unlock()
	if err != nil {
		return err
	}

	if a.sink != nil {
		if err := a.sink.InsertRunMetadata(ctx, m); err != nil {
			slog.Error("could not mirror run metadata", "run_id", m.RunID, "error", err)
		}
	}
	return nil
}

func (a *AuditLog) appendFile(m RunMetadata) error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	path := a.FileName(m.StartedAt)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	if isNew {
		b.WriteString(strings.Join(auditColumns, "\t"))
		b.WriteByte('\n')
	}
	b.WriteString(strings.Join(auditFields(m), "\t"))
	b.WriteByte('\n')

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

func auditFields(m RunMetadata) []string {
	return []string{
		strconv.FormatInt(m.RunID, 10),
		m.StartedAt.Format(AuditTimeLayout),
		nullableTime(m.HeaderTimestamp),
		nullableString(m.StationName),
		nullableString(m.TestFileName),
		nullableString(m.Table),
		nullableInt(m.RowsInserted),
		nullableInt(m.MinutesSinceLastRun),
	}
}

func nullableTime(t *time.Time) string {
	if t == nil {
		return "NULL"
	}
	return t.Format(AuditTimeLayout)
}

func nullableString(s string) string {
	if s == "" {
		return "NULL"
	}
	return s
}

func nullableInt(n *int) string {
	if n == nil {
		return "NULL"
	}
	return strconv.Itoa(*n)
}

package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_MonthlyFiles(t *testing.T) {
	dir := t.TempDir()
	a := NewAuditLog(dir, nil)

	nov := time.Date(2024, 11, 30, 23, 59, 0, 0, time.UTC)
	dec := time.Date(2024, 12, 1, 0, 1, 0, 0, time.UTC)
	rows, mins := 12, 5

	require.NoError(t, a.Append(context.Background(), RunMetadata{RunID: 1, StartedAt: nov, Table: "rotary", RowsInserted: &rows, MinutesSinceLastRun: &mins}))
	require.NoError(t, a.Append(context.Background(), RunMetadata{RunID: 2, StartedAt: nov, Table: "rotary"}))
	require.NoError(t, a.Append(context.Background(), RunMetadata{RunID: 3, StartedAt: dec, Table: "rotary"}))

	assert.Equal(t, filepath.Join(dir, "etl_log_2024_11.txt"), a.FileName(nov))

	data, err := os.ReadFile(filepath.Join(dir, "etl_log_2024_11.txt"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(auditColumns, "\t"), lines[0])
	assert.Equal(t, "1\t2024-11-30 23:59:00\tNULL\tNULL\tNULL\trotary\t12\t5", lines[1])
	assert.Equal(t, "2\t2024-11-30 23:59:00\tNULL\tNULL\tNULL\trotary\tNULL\tNULL", lines[2])

	data, err = os.ReadFile(filepath.Join(dir, "etl_log_2024_12.txt"))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 2)
}

func TestAuditLog_SinkFailureIsNotFatal(t *testing.T) {
	sink := &memAuditSink{err: errors.New("connection refused")}
	a := NewAuditLog(t.TempDir(), sink)

	err := a.Append(context.Background(), RunMetadata{RunID: 1, StartedAt: time.Now()})

	assert.NoError(t, err)
	assert.Len(t, sink.records, 1)
}

package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// memDestination is an in-memory Destination.
type memDestination struct {
	mu sync.Mutex

	columns   map[string][]string
	rows      map[string][][]any
	sequences map[string]int64

	insertCalls   int
	failInsertAt  int // 1-based call number that fails; 0 never fails
	bindErr       error
	createCalls   int
	sequenceCalls int
}

func newMemDestination() *memDestination {
	return &memDestination{
		columns:   make(map[string][]string),
		rows:      make(map[string][][]any),
		sequences: make(map[string]int64),
	}
}

func (m *memDestination) CreateTable(_ context.Context, table string, schema Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.columns[table]; ok {
		return nil
	}
	m.columns[table] = append([]string{ColumnID}, schema.Names()...)
	return nil
}

func (m *memDestination) TableColumns(_ context.Context, table string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.columns[table], nil
}

func (m *memDestination) SequenceExists(_ context.Context, _, sequence string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sequences[sequence]
	return ok, nil
}

func (m *memDestination) CreateSequence(_ context.Context, _, sequence string, start int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequenceCalls++
	m.sequences[sequence] = start
	return nil
}

func (m *memDestination) BindSequence(context.Context, string, string) error {
	return m.bindErr
}

func (m *memDestination) InsertBatch(_ context.Context, table string, schema Schema, rows [][]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertCalls++
	if m.failInsertAt > 0 && m.insertCalls == m.failInsertAt {
		return 0, errors.New("connection reset by peer")
	}
	for _, r := range rows {
		if len(r) != len(schema) {
			return 0, errors.New("row width does not match schema")
		}
	}
	if cols, ok := m.columns[table]; ok {
		have := make(map[string]bool, len(cols))
		for _, c := range cols {
			have[strings.ToLower(c)] = true
		}
		for _, c := range schema {
			if !have[strings.ToLower(c.Name)] {
				return 0, fmt.Errorf("table %s has no column named %s", table, c.Name)
			}
		}
	}
	m.rows[table] = append(m.rows[table], rows...)
	return int64(len(rows)), nil
}

func (m *memDestination) rowCount(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[table])
}

// memAuditSink collects mirrored run metadata.
type memAuditSink struct {
	mu      sync.Mutex
	records []RunMetadata
	err     error
}

func (s *memAuditSink) InsertRunMetadata(_ context.Context, m RunMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, m)
	return s.err
}

var testStations = []Station{
	{Key: "table_top", Label: "Table Top", Folders: []string{"Table Top"}, IDBase: 1},
	{Key: "rotary", Label: "Rotary", Folders: []string{"T24-64"}, IDBase: 2_000_000_000_000_000_000},
	{Key: "mts_810", Label: "MTS 810", Folders: []string{"MTS 810"}, IDBase: 3_000_000_000_000_000_000},
}

// withTestStations replaces the registry for the duration of the test.
func withTestStations(t *testing.T) {
	t.Helper()
	Clear()
	for _, st := range testStations {
		Register(st)
	}
	t.Cleanup(Clear)
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

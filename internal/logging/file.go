package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrorLogPrefix names the monthly log files.
const ErrorLogPrefix = "etl_error_log"

// MonthlyFile is an io.Writer appending to <dir>/<prefix>_YYYY_MM.txt. The
// file is switched when the calendar month changes.
type MonthlyFile struct {
	dir    string
	prefix string
	now    func() time.Time

	mu    sync.Mutex
	f     *os.File
	month string
}

// NewMonthlyFile creates dir if needed and returns a writer into it.
func NewMonthlyFile(dir, prefix string) (*MonthlyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &MonthlyFile{dir: dir, prefix: prefix, now: time.Now}, nil
}

// Path returns the file used for records written at t.
func (m *MonthlyFile) Path(t time.Time) string {
	return filepath.Join(m.dir, fmt.Sprintf("%s_%s.txt", m.prefix, t.Format("2006_01")))
}

func (m *MonthlyFile) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	month := now.Format("2006_01")
	if m.f == nil || month != m.month {
		if m.f != nil {
			m.f.Close()
			m.f = nil
		}
		f, err := os.OpenFile(m.Path(now), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, err
		}
		m.f, m.month = f, month
	}
	return m.f.Write(p)
}

// Close closes the current file.
func (m *MonthlyFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.f == nil {
		return nil
	}
	err := m.f.Close()
	m.f = nil
	return err
}

package state

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// FirstRunID is the id handed out when no counter file exists.
const FirstRunID int64 = 1

// Counter is the persisted run-id counter. The file holds the next id to use.
type Counter struct {
	path string
}

// NewCounter returns a Counter stored at path.
func NewCounter(path string) *Counter {
	return &Counter{path: path}
}

// Path returns the backing file path.
func (c *Counter) Path() string { return c.path }

// Next returns the next run id. Missing, unreadable or corrupt files yield
// FirstRunID.
func (c *Counter) Next() int64 {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("run counter unreadable, restarting at 1", "path", c.path, "error", err)
		}
		return FirstRunID
	}

	n, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil || n < FirstRunID {
		slog.Warn("run counter corrupt, restarting at 1", "path", c.path, "content", strings.TrimSpace(string(data)))
		return FirstRunID
	}
	return n
}

// Commit records next as the id the following attempt will use.
func (c *Counter) Commit(next int64) error {
	return writeAtomic(c.path, []byte(strconv.FormatInt(next, 10)+"\n"))
}

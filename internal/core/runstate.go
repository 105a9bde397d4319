package core

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/mtsload/internal/state"
)

// RunState is the in-memory view of the persisted resume state for one run.
//
// Resume indexes and modification times are loaded once and saved once at the
// end of the run. The run-id counter is committed after every file attempt so
// ids stay unique even if the process dies mid-run.
type RunState struct {
	resumeFile  *state.IndexFile
	modTimeFile *state.ModTimeFile
	counter     *state.Counter

	resume    map[string]int
	modTimes  map[string]float64
	lastSaved time.Time
	nextRunID int64
}

// LoadRunState reads the state files in dir. It never fails; unreadable files
// start from defaults.
func LoadRunState(dir string) *RunState {
	rs := &RunState{
		resumeFile:  state.NewIndexFile(filepath.Join(dir, state.ResumeFileName)),
		modTimeFile: state.NewModTimeFile(filepath.Join(dir, state.ModTimesFileName)),
		counter:     state.NewCounter(filepath.Join(dir, state.CounterFileName)),
	}
	rs.resume = rs.resumeFile.Load()
	rs.modTimes = rs.modTimeFile.Load()
	rs.lastSaved = rs.resumeFile.LastSaved()
	rs.nextRunID = rs.counter.Next()
	return rs
}

// Get returns the resume index of path, 0 when untracked.
func (r *RunState) Get(path string) int {
	return r.resume[path]
}

// Set records the resume index of path.
func (r *RunState) Set(path string, index int) {
	r.resume[path] = index
}

// ModTime returns the last recorded modification time of path.
func (r *RunState) ModTime(path string) (float64, bool) {
	t, ok := r.modTimes[path]
	return t, ok
}

// SetModTime records the modification time of path.
func (r *RunState) SetModTime(path string, t float64) {
	r.modTimes[path] = t
}

// Tracked reports whether path has any persisted state.
func (r *RunState) Tracked(path string) bool {
	_, ok := r.modTimes[path]
	if !ok {
		_, ok = r.resume[path]
	}
	return ok
}

// NextRunID returns the id for the next file attempt.
func (r *RunState) NextRunID() int64 {
	return r.nextRunID
}

// CommitRunID consumes id and persists id+1. Persistence failures are logged.
func (r *RunState) CommitRunID(id int64) {
	r.nextRunID = id + 1
	if err := r.counter.Commit(r.nextRunID); err != nil {
		slog.Error("could not persist run counter", "path", r.counter.Path(), "next", r.nextRunID, "error", err)
	}
}

// LastSaved is when resume state was last written, zero before the first save.
func (r *RunState) LastSaved() time.Time {
	return r.lastSaved
}

// Resume returns a copy of the resume indexes.
func (r *RunState) Resume() map[string]int {
	out := make(map[string]int, len(r.resume))
	for k, v := range r.resume {
		out[k] = v
	}
	return out
}

// Save persists resume indexes and modification times.
func (r *RunState) Save() error {
	var errs []error
	if err := r.resumeFile.Save(r.resume); err != nil {
		errs = append(errs, fmt.Errorf("save resume indexes: %w", err))
	}
	if err := r.modTimeFile.Save(r.modTimes); err != nil {
		errs = append(errs, fmt.Errorf("save modification times: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	r.lastSaved = r.resumeFile.LastSaved()
	return nil
}

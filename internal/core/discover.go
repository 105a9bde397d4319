package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/JonMunkholm/mtsload/internal/state"
)

// WatchDir is a directory scanned for test logs. Station, when set, pins every
// file in the directory to that station instead of resolving by folder name.
type WatchDir struct {
	Path    string `json:"path"`
	Station string `json:"station,omitempty"`
}

// Candidate is a file selected for processing.
type Candidate struct {
	Path    string
	Dir     WatchDir
	ModTime float64
}

// Discover lists the regular files in dirs whose modification time differs
// from the one recorded in rs, ordered by path. Directories that do not exist
// are skipped; if none exists the run cannot proceed and
// ErrNoWatchedDirectories is returned.
func Discover(dirs []WatchDir, rs *RunState) ([]Candidate, error) {
	var out []Candidate
	existing := 0

	for _, d := range dirs {
		entries, err := os.ReadDir(d.Path)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Warn("watched directory does not exist", "dir", d.Path)
			} else {
				slog.Error("cannot list watched directory", "dir", d.Path, "error", err)
			}
			continue
		}
		existing++

		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			path := filepath.Join(d.Path, e.Name())
			info, err := e.Info()
			if err != nil {
				// Removed since ReadDir; nothing to do.
				continue
			}
			mtime := state.UnixSeconds(info.ModTime())
			if prev, ok := rs.ModTime(path); ok && prev == mtime {
				continue
			}
			out = append(out, Candidate{Path: path, Dir: d, ModTime: mtime})
		}
	}

	if existing == 0 {
		return nil, fmt.Errorf("%w (checked %d)", ErrNoWatchedDirectories, len(dirs))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Bootstrap marks every file currently in dirs as fully consumed: its resume
// index becomes its line count and its modification time is recorded. No
// records are produced. It returns the number of files recorded.
func Bootstrap(dirs []WatchDir, rs *RunState) (int, error) {
	candidates, err := Discover(dirs, rs)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, c := range candidates {
		count, err := CountLines(c.Path)
		if err != nil {
			slog.Warn("skipping unreadable file during bootstrap", "path", c.Path, "error", err)
			continue
		}
		rs.Set(c.Path, count)
		rs.SetModTime(c.Path, c.ModTime)
		n++
	}

	if err := rs.Save(); err != nil {
		return n, err
	}
	return n, nil
}

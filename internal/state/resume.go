package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
)

// File names used inside the state directory.
const (
	ResumeFileName   = "last_lines.txt"
	CounterFileName  = "etl_log_id.txt"
	ModTimesFileName = "mod_times.txt"
)

// IndexFile persists the resume index of every tracked file: the number of
// leading lines already consumed.
type IndexFile struct {
	f tsvFile[int]
}

// NewIndexFile returns an IndexFile stored at path.
func NewIndexFile(path string) *IndexFile {
	return &IndexFile{f: tsvFile[int]{
		path:   path,
		parse:  parseIndex,
		format: strconv.Itoa,
	}}
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative index %d", n)
	}
	return n, nil
}

// Path returns the backing file path.
func (i *IndexFile) Path() string { return i.f.path }

// Load reads the index map. Missing or unreadable files yield an empty map.
func (i *IndexFile) Load() map[string]int { return i.f.load() }

// Save replaces the file with m.
func (i *IndexFile) Save(m map[string]int) error { return i.f.save(m) }

// LastSaved reports when the file was last written, or the zero time when it
// does not exist yet.
func (i *IndexFile) LastSaved() time.Time {
	info, err := os.Stat(i.f.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// ModTimeFile persists the last observed modification time of every tracked
// file, in fractional Unix seconds.
type ModTimeFile struct {
	f tsvFile[float64]
}

// NewModTimeFile returns a ModTimeFile stored at path.
func NewModTimeFile(path string) *ModTimeFile {
	return &ModTimeFile{f: tsvFile[float64]{
		path:   path,
		parse:  func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
		format: FormatModTime,
	}}
}

// Load reads the modification-time map. Missing or unreadable files yield an
// empty map.
func (m *ModTimeFile) Load() map[string]float64 { return m.f.load() }

// Save replaces the file with times.
func (m *ModTimeFile) Save(times map[string]float64) error { return m.f.save(times) }

// ModTime returns the modification time of path in fractional Unix seconds.
func ModTime(path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return UnixSeconds(info.ModTime()), nil
}

// UnixSeconds converts t to fractional Unix seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FormatModTime renders a modification time for the mod-times file.
func FormatModTime(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Exists reports whether path exists. Permission errors count as existing.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}

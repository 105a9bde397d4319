package state

// tsv.go implements the line-oriented "key<TAB>value" files the ingester keeps
// between runs. Keys are absolute file paths; values are written with the
// supplied formatter and read back with the supplied parser.
//
// Loading never fails: a missing file is an empty map, and malformed lines
// are skipped with a warning so that one bad line cannot stall every file.
// Saving writes a sibling temp file and renames it over the original.

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type tsvFile[V any] struct {
	path   string
	parse  func(string) (V, error)
	format func(V) string
}

func (f tsvFile[V]) load() map[string]V {
	out := make(map[string]V)

	file, err := os.Open(f.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("state file unreadable, starting empty", "path", f.path, "error", err)
		}
		return out
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// Paths may legally contain tabs; the value never does.
		idx := strings.LastIndex(line, "\t")
		if idx <= 0 {
			slog.Warn("skipping malformed state line", "path", f.path, "line", lineNum)
			continue
		}
		v, err := f.parse(strings.TrimSpace(line[idx+1:]))
		if err != nil {
			slog.Warn("skipping malformed state line", "path", f.path, "line", lineNum, "error", err)
			continue
		}
		out[line[:idx]] = v
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("state file read stopped early", "path", f.path, "error", err)
	}
	return out
}

func (f tsvFile[V]) save(m map[string]V) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('\t')
		b.WriteString(f.format(m[k]))
		b.WriteByte('\n')
	}
	return writeAtomic(f.path, []byte(b.String()))
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

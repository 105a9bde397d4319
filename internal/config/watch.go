package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// WatchEntry is one directory from the watch file.
type WatchEntry struct {
	Path    string `yaml:"path"`
	Station string `yaml:"station"`
}

type watchFile struct {
	Directories []WatchEntry `yaml:"directories"`
}

// LoadWatchFile reads a YAML watch file:
//
//	directories:
//	  - path: 'C:\Test Data\Table Top'
//	  - path: /mnt/bench/incoming
//	    station: rotary
func LoadWatchFile(path string) ([]WatchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watch file: %w", err)
	}

	var wf watchFile
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("parse watch file %s: %w", path, err)
	}

	var errs []string
	for i := range wf.Directories {
		wf.Directories[i].Path = strings.TrimSpace(wf.Directories[i].Path)
		wf.Directories[i].Station = strings.TrimSpace(wf.Directories[i].Station)
		if wf.Directories[i].Path == "" {
			errs = append(errs, fmt.Sprintf("directories[%d]: path is required", i))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid watch file %s:\n  - %s", path, strings.Join(errs, "\n  - "))
	}
	return wf.Directories, nil
}

// WatchEntries returns every watched directory: WATCH_FILE entries first, then
// WATCH_DIRS and DIRECTORY_1..4. A directory listed twice keeps its first entry.
func (c *WatchConfig) WatchEntries() ([]WatchEntry, error) {
	var entries []WatchEntry
	seen := make(map[string]bool)

	if c.File != "" {
		fromFile, err := LoadWatchFile(c.File)
		if err != nil {
			return nil, err
		}
		for _, e := range fromFile {
			if !seen[e.Path] {
				seen[e.Path] = true
				entries = append(entries, e)
			}
		}
	}
	for _, d := range c.Directories() {
		if !seen[d] {
			seen[d] = true
			entries = append(entries, WatchEntry{Path: d})
		}
	}
	return entries, nil
}

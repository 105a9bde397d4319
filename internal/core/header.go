package core

// header.go locates the next header block of a test log after the resume index.
//
// A log is a sequence of blocks written by the controller:
//
//	Data Header:	...	11/5/2024 1:07:33 PM
//	Station Name: Table Top 2
//	Test File Name: fatigue_0412
//	Time	Axial Force	Axial Displacement      <- header row
//	Sec	kN	mm                                  <- units row
//	0.001	1.25	0.002                           <- data rows
//
// The header row is always the line immediately after "Test File Name:".

import (
	"log/slog"
	"strings"
	"time"
)

const (
	markerDataHeader   = "Data Header:"
	markerStationName  = "Station Name:"
	markerTestFileName = "Test File Name:"

	// A "Data Header:" line carries its timestamp in the last of at least
	// this many tab-separated fields.
	dataHeaderMinFields = 5
)

type headerState int

const (
	stateSeeking headerState = iota
	stateAwaitingHeaderRow
)

// ParseHeader scans lines[from:] and returns the first header block found,
// together with the metadata seen before it. When no header row exists the
// returned scan has an empty Header and HeaderLine of -1.
func ParseHeader(lines []string, from int) HeaderScan {
	scan := HeaderScan{HeaderLine: -1}
	state := stateSeeking

	for i := clampIndex(from, len(lines)); i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		switch {
		case strings.Contains(line, markerDataHeader):
			if ts, ok := dataHeaderTimestamp(line); ok {
				scan.Timestamp = &ts
			} else {
				slog.Debug("data header without usable timestamp", "line", i+1)
			}
		case strings.Contains(line, markerStationName):
			scan.StationName = afterFirstColon(line)
		case strings.Contains(line, markerTestFileName):
			scan.TestFileName = afterFirstColon(line)
			state = stateAwaitingHeaderRow
			continue
		}

		if state == stateAwaitingHeaderRow {
			if line != "" {
				scan.Header = splitFields(line)
				scan.HeaderLine = i
			}
			return scan
		}
	}
	return scan
}

// dataHeaderTimestamp extracts the timestamp of a "Data Header:" line.
func dataHeaderTimestamp(line string) (time.Time, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < dataHeaderMinFields {
		return time.Time{}, false
	}
	ts, err := ParseHeaderTimestamp(parts[len(parts)-1])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func splitFields(line string) []string {
	fields := strings.Split(line, "\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

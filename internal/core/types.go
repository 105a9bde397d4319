package core

import (
	"context"
	"time"
)

// Destination is the relational store that receives decoded records.
// Implemented by the Postgres and SQLite backends in internal/database.
type Destination interface {
	// CreateTable creates table with an auto-assigned "id" column followed by
	// schema, if it does not already exist.
	CreateTable(ctx context.Context, table string, schema Schema) error
	// TableColumns lists the existing table's columns. A missing table yields
	// an empty slice and no error.
	TableColumns(ctx context.Context, table string) ([]string, error)
	SequenceExists(ctx context.Context, table, sequence string) (bool, error)
	CreateSequence(ctx context.Context, table, sequence string, start int64) error
	// BindSequence makes sequence the default source of table's id column.
	BindSequence(ctx context.Context, table, sequence string) error
	// InsertBatch appends rows inside a single transaction and returns the
	// number of rows written. Each row is ordered like schema.
	InsertBatch(ctx context.Context, table string, schema Schema, rows [][]any) (int64, error)
}

// AuditSink receives a copy of every run-metadata record.
type AuditSink interface {
	InsertRunMetadata(ctx context.Context, m RunMetadata) error
}

// ColumnKind is the destination type of a column.
type ColumnKind int

const (
	KindFloat ColumnKind = iota
	KindInteger
	KindTimestamp
	KindText
)

func (k ColumnKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindTimestamp:
		return "timestamp"
	case KindText:
		return "text"
	default:
		return "float"
	}
}

// Reserved column names.
const (
	ColumnID              = "id"
	ColumnRunID           = "run_id"
	ColumnHeaderTimestamp = "header_timestamp"
	ColumnStationName     = "station_name"
)

// Column is one destination column.
type Column struct {
	Name string
	Kind ColumnKind
}

// Schema is an ordered column list.
type Schema []Column

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// WithoutIdentifier drops any column named "id" and returns the positions of
// the columns that were kept.
func (s Schema) WithoutIdentifier() (Schema, []int) {
	kept := make(Schema, 0, len(s))
	idx := make([]int, 0, len(s))
	for i, c := range s {
		if c.Name == ColumnID {
			continue
		}
		kept = append(kept, c)
		idx = append(idx, i)
	}
	return kept, idx
}

// HeaderBlock is the ordered list of measurement names taken from a header row.
type HeaderBlock []string

// HeaderScan is the result of scanning a file for its most recent header block.
type HeaderScan struct {
	Header       HeaderBlock
	Timestamp    *time.Time // last parseable "Data Header:" timestamp
	StationName  string
	TestFileName string
	HeaderLine   int // index of the header row, -1 when none was found
}

// Found reports whether a header row was captured.
func (h HeaderScan) Found() bool { return len(h.Header) > 0 }

// Record is one decoded measurement row.
type Record struct {
	RunID           int64
	HeaderTimestamp *time.Time
	StationName     string
	Values          []float64 // aligned with the header block
	Line            int       // 1-based source line
}

// Row returns the record in schema order: run id, header timestamp, station
// name, then the measurements. Absent metadata is nil.
func (r Record) Row() []any {
	row := make([]any, 0, 3+len(r.Values))
	row = append(row, r.RunID)
	if r.HeaderTimestamp != nil {
		row = append(row, *r.HeaderTimestamp)
	} else {
		row = append(row, nil)
	}
	if r.StationName != "" {
		row = append(row, r.StationName)
	} else {
		row = append(row, nil)
	}
	for _, v := range r.Values {
		row = append(row, v)
	}
	return row
}

// LineError describes a rejected source line.
type LineError struct {
	Line   int // 1-based
	Reason string
	Data   string
}

// DecodeResult is the output of DecodeRows.
type DecodeResult struct {
	Schema   Schema
	Records  []Record
	Rejected []LineError
	Warnings []LineError
	End      int // resume index to persist once the records are stored
}

// Outcome classifies how a single file was handled during a run.
type Outcome string

const (
	OutcomeLoaded               Outcome = "loaded"
	OutcomeNoHeader             Outcome = "no_header"
	OutcomeNoRecords            Outcome = "no_records"
	OutcomeLoadFailed           Outcome = "load_failed"
	OutcomeUnrecognizedCategory Outcome = "unrecognized_category"
	OutcomeMissingFile          Outcome = "missing_file"
	OutcomeReadFailed           Outcome = "read_failed"
)

// Retry reports whether the file must be offered again on the next run even
// if it is not modified in between.
func (o Outcome) Retry() bool {
	return o == OutcomeLoadFailed || o == OutcomeReadFailed
}

// RunMetadata is the audit record written for each file attempt.
type RunMetadata struct {
	RunID               int64
	StartedAt           time.Time
	HeaderTimestamp     *time.Time
	StationName         string
	TestFileName        string
	Table               string
	RowsInserted        *int
	Rejected            int
	MinutesSinceLastRun *int
	Outcome             Outcome
}

// FileResult is the per-file entry of a RunSummary.
type FileResult struct {
	Path     string        `json:"path"`
	Station  string        `json:"station,omitempty"`
	RunID    int64         `json:"run_id,omitempty"`
	Outcome  Outcome       `json:"outcome"`
	Inserted int           `json:"inserted"`
	Rejected int           `json:"rejected"`
	From     int           `json:"from"`
	End      int           `json:"end"`
	Error    string        `json:"error,omitempty"`
	Code     string        `json:"code,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// RunSummary describes one invocation of the pipeline.
type RunSummary struct {
	Session   string        `json:"session"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Files     []FileResult  `json:"files"`
	Inserted  int           `json:"inserted"`
}

// Count returns how many files ended with outcome o.
func (s *RunSummary) Count(o Outcome) int {
	n := 0
	for _, f := range s.Files {
		if f.Outcome == o {
			n++
		}
	}
	return n
}

// Recorder receives pipeline measurements. See internal/metrics.
type Recorder interface {
	FileProcessed(station string, outcome Outcome)
	RowsInserted(station string, n int)
	LinesRejected(station string, n int)
	RunCompleted(d time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) FileProcessed(string, Outcome)     {}
func (nopRecorder) RowsInserted(string, int)          {}
func (nopRecorder) LinesRejected(string, int)         {}
func (nopRecorder) RunCompleted(time.Duration, error) {}

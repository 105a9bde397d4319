package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/mtsload/internal/logging"
)

// DefaultFileTimeout bounds the work spent on a single file.
var DefaultFileTimeout = 10 * time.Minute

// Options configures a Service.
type Options struct {
	Dirs        []WatchDir
	StateDir    string
	BatchSize   int
	FileTimeout time.Duration
}

// Service runs the ingestion pipeline.
type Service struct {
	dest     Destination
	audit    *AuditLog
	recorder Recorder
	opts     Options
	limiter  *RunLimiter

	mu   sync.RWMutex
	last *RunSummary
}

// NewService returns a Service writing to dest. audit and rec may be nil.
func NewService(dest Destination, audit *AuditLog, rec Recorder, opts Options) *Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	if opts.FileTimeout <= 0 {
		opts.FileTimeout = DefaultFileTimeout
	}
	if opts.StateDir == "" {
		opts.StateDir = "."
	}
	return &Service{
		dest:     dest,
		audit:    audit,
		recorder: rec,
		opts:     opts,
		limiter:  NewRunLimiter(),
	}
}

// Dirs returns the watched directories.
func (s *Service) Dirs() []WatchDir { return s.opts.Dirs }

// Limiter exposes the run limiter for status reporting and shutdown.
func (s *Service) Limiter() *RunLimiter { return s.limiter }

// LastSummary returns the summary of the most recent completed run.
func (s *Service) LastSummary() *RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// State loads the persisted run state without holding the run slot.
func (s *Service) State() *RunState {
	return LoadRunState(s.opts.StateDir)
}

// Run performs one ingestion pass over the watched directories. It returns
// ErrRunInProgress when another run holds the slot and
// ErrNoWatchedDirectories when none of the directories exists; every other
// problem is confined to the file it occurred in and reported in the summary.
func (s *Service) Run(ctx context.Context) (*RunSummary, error) {
	if !s.limiter.TryAcquire() {
		return nil, ErrRunInProgress
	}
	defer s.limiter.Release()
	return s.run(ctx)
}

// RunAsync starts a run in the background and returns immediately, or returns
// ErrRunInProgress without starting one.
func (s *Service) RunAsync(ctx context.Context) error {
	if !s.limiter.TryAcquire() {
		return ErrRunInProgress
	}
	go func() {
		defer s.limiter.Release()
		if _, err := s.run(ctx); err != nil {
			slog.Error("background run failed", "error", err, "code", ErrorCode(err))
		}
	}()
	return nil
}

// Bootstrap records the current size of every watched file without loading
// anything. Used once when the ingester is installed on a stand with history.
func (s *Service) Bootstrap(ctx context.Context) (int, error) {
	if !s.limiter.TryAcquire() {
		return 0, ErrRunInProgress
	}
	defer s.limiter.Release()

	rs := LoadRunState(s.opts.StateDir)
	n, err := Bootstrap(s.opts.Dirs, rs)
	if err != nil {
		return n, err
	}
	slog.InfoContext(ctx, "bootstrap complete", "files", n)
	return n, nil
}

func (s *Service) run(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{
		Session:   uuid.NewString(),
		StartedAt: time.Now(),
	}
	ctx = logging.ContextWithSession(ctx, summary.Session)
	logger := logging.FromContext(ctx)
	logger.Info("run started", "trigger", TriggerFromContext(ctx), "dirs", len(s.opts.Dirs))

	rs := LoadRunState(s.opts.StateDir)
	candidates, err := Discover(s.opts.Dirs, rs)
	if err != nil {
		logger.Error("run aborted", "error", err, "code", ErrorCode(err))
		s.recorder.RunCompleted(time.Since(summary.StartedAt), err)
		return nil, err
	}
	logger.Info("files to process", "count", len(candidates))

	loader := NewLoader(s.dest, NewProvisioner(s.dest), s.opts.BatchSize)
	for _, c := range candidates {
		if ctx.Err() != nil {
			logger.Warn("run interrupted", "remaining", len(candidates)-len(summary.Files))
			break
		}

		fr := s.processFile(ctx, rs, loader, c)
		if !fr.Outcome.Retry() {
			rs.SetModTime(c.Path, c.ModTime)
		}
		summary.Files = append(summary.Files, fr)
		summary.Inserted += fr.Inserted
		s.recorder.FileProcessed(fr.Station, fr.Outcome)
	}

	var saveErr error
	if err := rs.Save(); err != nil {
		saveErr = err
		logger.Error("could not persist resume state", "error", err)
	}

	summary.Duration = time.Since(summary.StartedAt)
	s.recorder.RunCompleted(summary.Duration, saveErr)
	logger.Info("run finished",
		"files", len(summary.Files),
		"loaded", summary.Count(OutcomeLoaded),
		"failed", summary.Count(OutcomeLoadFailed),
		"rows_inserted", summary.Inserted,
		"duration_ms", summary.Duration.Milliseconds(),
	)

	s.mu.Lock()
	s.last = summary
	s.mu.Unlock()
	return summary, nil
}

// resolve picks the station for a candidate: a pinned station wins over the
// parent-folder name.
func (s *Service) resolve(c Candidate) Resolution {
	if c.Dir.Station != "" {
		if st, ok := Get(c.Dir.Station); ok {
			return Resolution{Station: st, Folder: filepath.Base(c.Dir.Path), OK: true}
		}
		return Resolution{Folder: c.Dir.Station}
	}
	return ResolvePath(c.Path)
}

// processFile handles one candidate. A panic anywhere below is reported as a
// failed load of this file.
func (s *Service) processFile(ctx context.Context, rs *RunState, loader *Loader, c Candidate) (fr FileResult) {
	start := time.Now()
	fr = FileResult{Path: c.Path}
	logger := logging.WithFields(ctx, "file", c.Path)

	var (
		st      Station
		scan    HeaderScan
		runID   int64
		audited bool
	)
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing: %v", r)
			logger.Error("file processing panicked", "error", err)
			fr.Outcome = OutcomeLoadFailed
			fr.Error = err.Error()
			fr.Code = ErrorCode(err)
			if scan.Found() && !audited {
				s.writeAudit(ctx, logger, rs, runID, start, scan, st, fr)
			}
		}
		fr.Duration = time.Since(start)
	}()

	res := s.resolve(c)
	if !res.OK {
		err := fmt.Errorf("%w: %q", ErrUnrecognizedCategory, res.Folder)
		logger.Error("skipping file", "error", err, "code", ErrorCode(err))
		fr.Outcome = OutcomeUnrecognizedCategory
		fr.Error, fr.Code = err.Error(), ErrorCode(err)
		return fr
	}
	st = res.Station
	fr.Station = st.Key
	logger = logger.With("station", st.Key)

	lines, err := ReadLines(c.Path)
	if err != nil {
		fr.Error, fr.Code = err.Error(), ErrorCode(err)
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("file disappeared before it could be read", "code", fr.Code)
			fr.Outcome = OutcomeMissingFile
		} else {
			logger.Error("cannot read file", "error", err, "code", fr.Code)
			fr.Outcome = OutcomeReadFailed
		}
		return fr
	}

	from := rs.Get(c.Path)
	if from > len(lines) {
		// Truncated or replaced since the last run.
		logger.Warn("file shorter than resume index, restarting from top", "resume", from, "lines", len(lines))
		from = 0
	}
	fr.From, fr.End = from, from

	runID = rs.NextRunID()
	fr.RunID = runID
	defer rs.CommitRunID(runID)
	logger = logging.WithRun(ctx, runID, c.Path).With("station", st.Key)

	fctx, cancel := context.WithTimeout(ctx, s.opts.FileTimeout)
	defer cancel()

	scan = ParseHeader(lines, from)
	if !scan.Found() {
		logger.Info("no new data", "from", from, "code", ErrorCode(ErrNoHeader))
		fr.Outcome = OutcomeNoHeader
		return fr
	}

	decoded := DecodeRows(lines, from, scan, runID)
	for _, w := range decoded.Warnings {
		logger.Warn("data header", "line", w.Line, "reason", w.Reason)
	}
	for _, rej := range decoded.Rejected {
		logger.Warn("rejected line", "line", rej.Line, "reason", rej.Reason)
	}
	fr.Rejected = len(decoded.Rejected)
	s.recorder.LinesRejected(st.Key, fr.Rejected)

	loaded := loader.Load(fctx, st, decoded)
	fr.Inserted = loaded.Inserted
	s.recorder.RowsInserted(st.Key, loaded.Inserted)

	switch {
	case loaded.OK:
		rs.Set(c.Path, decoded.End)
		fr.End = decoded.End
		fr.Outcome = OutcomeLoaded
	case loaded.Err != nil:
		fr.Outcome = OutcomeLoadFailed
		fr.Error, fr.Code = loaded.Err.Error(), ErrorCode(loaded.Err)
	default:
		logger.Info("header found but no valid rows", "from", from, "rejected", fr.Rejected)
		fr.Outcome = OutcomeNoRecords
	}

	audited = true
	s.writeAudit(ctx, logger, rs, runID, start, scan, st, fr)
	return fr
}

func (s *Service) writeAudit(ctx context.Context, logger *slog.Logger, rs *RunState, runID int64, started time.Time, scan HeaderScan, st Station, fr FileResult) {
	if s.audit == nil {
		return
	}

	m := RunMetadata{
		RunID:           runID,
		StartedAt:       started,
		HeaderTimestamp: scan.Timestamp,
		StationName:     scan.StationName,
		TestFileName:    scan.TestFileName,
		Table:           st.Key,
		Rejected:        fr.Rejected,
		Outcome:         fr.Outcome,
	}
	if fr.Outcome == OutcomeLoaded || fr.Inserted > 0 {
		n := fr.Inserted
		m.RowsInserted = &n
	}
	if last := rs.LastSaved(); !last.IsZero() {
		mins := int(started.Sub(last).Minutes())
		m.MinutesSinceLastRun = &mins
	}

	if err := s.audit.Append(ctx, m); err != nil {
		logger.Error("could not write run metadata", "run_id", runID, "error", err)
	}
}

package core

// limiter.go keeps ingestion runs from overlapping inside one process.
//
// Resume indexes and the run counter are read at the start of a run and
// written at the end, so two concurrent runs would re-ingest the same lines.
// Scheduled ticks and HTTP triggers both go through TryAcquire and give up
// immediately when a run is active. Shutdown waits with WaitForDrain.

import (
	"context"
	"sync"
	"time"
)

// RunLimiter is a single-slot semaphore.
type RunLimiter struct {
	slot chan struct{}

	mu      sync.RWMutex
	active  bool
	started time.Time
}

// NewRunLimiter returns an idle limiter.
func NewRunLimiter() *RunLimiter {
	return &RunLimiter{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the slot without blocking and reports whether it did.
func (l *RunLimiter) TryAcquire() bool {
	select {
	case l.slot <- struct{}{}:
		l.mu.Lock()
		l.active = true
		l.started = time.Now()
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees the slot. Must be called once per successful TryAcquire.
func (l *RunLimiter) Release() {
	l.mu.Lock()
	l.active = false
	l.started = time.Time{}
	l.mu.Unlock()

	<-l.slot
}

// Busy reports whether a run holds the slot.
func (l *RunLimiter) Busy() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until the slot is free or ctx is done.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !l.Busy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunLimiterStatus is a snapshot of the limiter.
type RunLimiterStatus struct {
	Busy      bool       `json:"busy"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Status returns the current limiter state for monitoring.
func (l *RunLimiter) Status() RunLimiterStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	st := RunLimiterStatus{Busy: l.active}
	if l.active {
		started := l.started
		st.StartedAt = &started
	}
	return st
}

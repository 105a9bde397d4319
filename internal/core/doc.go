// Package core implements incremental ingestion of test-stand logs.
//
// Materials test stands append tab-separated measurement blocks to .dat files
// in per-station folders. Each pass picks up where the previous one stopped
// and appends new rows to that station's table.
//
// # Pipeline
//
// For every watched file that changed since the last pass:
//
//  1. The parent folder (or a pinned directory) selects a [Station].
//  2. [ReadLines] reads the file; the persisted resume index gives the first
//     unconsumed line.
//  3. [ParseHeader] finds the first header block after that line.
//  4. [DecodeRows] turns the remaining lines into [Record] values, rejecting
//     malformed rows individually.
//  5. [Loader.Load] provisions the table and its id sequence, then appends
//     the records in batches.
//  6. On success the resume index moves to the end of the file. Every
//     attempt that found a header gets an audit record, loaded or not.
//
// # Resume state
//
// [RunState] wraps three small files in the state directory: resume indexes,
// last seen modification times and the run-id counter. Delivery is
// at-least-once: a failed batch leaves earlier batches in the table and the
// whole range is retried next pass.
//
// # Stations
//
// Stations register at init time with [Register]; see package stations. Each
// owns a disjoint block of surrogate ids starting at its IDBase, so rows from
// different stations never collide when merged.
//
// # Error codes
//
// Sentinel errors map to short codes with [ErrorCode] (STA, FIL, HDR, LOD,
// RUN, DB) that appear in logs and run summaries.
package core

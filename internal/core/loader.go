package core

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultBatchSize is the number of rows appended per transaction.
const DefaultBatchSize = 10000

// LoadResult reports the outcome of one Load call.
type LoadResult struct {
	OK       bool
	Inserted int
	Err      error
}

// Loader appends decoded records to a station's table.
type Loader struct {
	dest      Destination
	prov      *Provisioner
	batchSize int
}

// NewLoader returns a Loader that writes to dest in batches of batchSize rows.
// Non-positive sizes fall back to DefaultBatchSize.
func NewLoader(dest Destination, prov *Provisioner, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if prov == nil {
		prov = NewProvisioner(dest)
	}
	return &Loader{dest: dest, prov: prov, batchSize: batchSize}
}

// Load provisions the destination and appends res.Records.
//
// An empty record set is not a success and touches nothing. A measurement
// column named "id" is dropped so the surrogate key stays database-assigned.
// Each batch commits on its own, so a failure after the first batch leaves
// earlier batches in place; Inserted counts them.
func (l *Loader) Load(ctx context.Context, st Station, res DecodeResult) LoadResult {
	if len(res.Records) == 0 {
		return LoadResult{}
	}

	schema, keep := res.Schema.WithoutIdentifier()
	if err := l.prov.Ensure(ctx, st, schema); err != nil {
		slog.Error("provisioning failed", "table", st.Key, "error", err, "code", ErrorCode(err))
		return LoadResult{Err: err}
	}

	inserted := 0
	for start := 0; start < len(res.Records); start += l.batchSize {
		end := min(start+l.batchSize, len(res.Records))

		rows := make([][]any, 0, end-start)
		for _, rec := range res.Records[start:end] {
			rows = append(rows, project(rec.Row(), keep))
		}

		n, err := l.dest.InsertBatch(ctx, st.Key, schema, rows)
		if err != nil {
			err = fmt.Errorf("%w: table %s rows %d-%d: %w", ErrInsertFailed, st.Key, start, end-1, err)
			slog.Error("batch insert failed",
				"table", st.Key,
				"batch_start", start,
				"batch_rows", len(rows),
				"inserted_before_failure", inserted,
				"error", err,
			)
			return LoadResult{Inserted: inserted, Err: err}
		}
		inserted += int(n)
	}

	slog.Info("inserted rows", "table", st.Key, "rows", inserted)
	return LoadResult{OK: true, Inserted: inserted}
}

func project(row []any, keep []int) []any {
	if len(keep) == len(row) {
		return row
	}
	out := make([]any, len(keep))
	for i, idx := range keep {
		out[i] = row[idx]
	}
	return out
}

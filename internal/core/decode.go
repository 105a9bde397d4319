package core

import (
	"fmt"
	"strings"
	"time"
)

// BuildSchema returns the destination schema for a header block: the three
// metadata columns followed by one float column per measurement.
func BuildSchema(header HeaderBlock) Schema {
	schema := make(Schema, 0, 3+len(header))
	schema = append(schema,
		Column{Name: ColumnRunID, Kind: KindInteger},
		Column{Name: ColumnHeaderTimestamp, Kind: KindTimestamp},
		Column{Name: ColumnStationName, Kind: KindText},
	)
	for _, name := range header {
		schema = append(schema, Column{Name: name, Kind: KindFloat})
	}
	return schema
}

// DecodeRows turns lines[from:] into records shaped by scan's header block.
//
// Every block boundary ("Station Name:" or "Test File Name:") resets the
// decoder; the first line after a boundary is the repeated header row and the
// line after that the units row, and neither is emitted. "Data Header:"
// lines update the timestamp attached to subsequent records. Rows whose field
// count differs from the header, or that hold a non-numeric value, are
// rejected without stopping the decode.
//
// When scan holds no header the result is empty and End equals from.
func DecodeRows(lines []string, from int, scan HeaderScan, runID int64) DecodeResult {
	start := clampIndex(from, len(lines))
	if !scan.Found() {
		return DecodeResult{End: start}
	}

	width := len(scan.Header)
	res := DecodeResult{
		Schema: BuildSchema(scan.Header),
		End:    len(lines),
	}

	var (
		inData    bool
		skipUnits bool
		stamp     *time.Time
	)
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if strings.Contains(line, markerDataHeader) {
			if ts, ok := dataHeaderTimestamp(line); ok {
				stamp = &ts
			} else if len(strings.Split(line, "\t")) >= dataHeaderMinFields {
				res.Warnings = append(res.Warnings, LineError{
					Line:   i + 1,
					Reason: "unparseable data header timestamp, keeping previous",
					Data:   line,
				})
			}
			continue
		}
		if strings.Contains(line, markerStationName) || strings.Contains(line, markerTestFileName) {
			inData = false
			continue
		}
		if !inData {
			inData = true
			skipUnits = true
			continue
		}
		if skipUnits {
			skipUnits = false
			continue
		}
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != width {
			res.Rejected = append(res.Rejected, LineError{
				Line:   i + 1,
				Reason: fmt.Sprintf("expected %d fields, got %d", width, len(fields)),
				Data:   line,
			})
			continue
		}

		values := make([]float64, width)
		var bad error
		for j, f := range fields {
			v, err := ParseMeasurement(f)
			if err != nil {
				bad = fmt.Errorf("column %q: %w", scan.Header[j], err)
				break
			}
			values[j] = v
		}
		if bad != nil {
			res.Rejected = append(res.Rejected, LineError{Line: i + 1, Reason: bad.Error(), Data: line})
			continue
		}

		res.Records = append(res.Records, Record{
			RunID:           runID,
			HeaderTimestamp: stamp,
			StationName:     scan.StationName,
			Values:          values,
			Line:            i + 1,
		})
	}
	return res
}

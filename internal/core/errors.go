package core

// errors.go defines the sentinel errors of the ingestion pipeline and the
// short codes written next to them in logs and run summaries, so operators
// can grep the error logs by category.
//
//	STA001 - No watched directory exists (run aborted)
//	STA002 - File is not under a recognised station folder
//	FIL001 - File disappeared between discovery and read
//	FIL002 - File could not be read
//	HDR001 - No header block after the resume index
//	LOD001 - Destination table layout does not match the file
//	LOD002 - Batch insert failed
//	RUN001 - Another run is in progress
//	DB001  - Destination unreachable
//	DB002  - Destination timeout
//	ERR000 - Anything else

import (
	"errors"
	"io/fs"
	"strings"
)

var (
	ErrNoWatchedDirectories = errors.New("no watched directories exist")
	ErrUnrecognizedCategory = errors.New("file is not under a recognised station folder")
	ErrNoHeader             = errors.New("no header block after resume index")
	ErrSchemaMismatch       = errors.New("destination table layout does not match file")
	ErrInsertFailed         = errors.New("batch insert failed")
	ErrRunInProgress        = errors.New("ingestion run already in progress")
)

type errorCode struct {
	target error
	code   string
}

var sentinelCodes = []errorCode{
	{ErrNoWatchedDirectories, "STA001"},
	{ErrUnrecognizedCategory, "STA002"},
	{fs.ErrNotExist, "FIL001"},
	{ErrNoHeader, "HDR001"},
	{ErrSchemaMismatch, "LOD001"},
	{ErrInsertFailed, "LOD002"},
	{ErrRunInProgress, "RUN001"},
}

// Matched case-insensitively against driver messages that carry no sentinel.
var patternCodes = []struct {
	pattern string
	code    string
}{
	{"connection refused", "DB001"},
	{"connection reset", "DB001"},
	{"no such host", "DB001"},
	{"deadline exceeded", "DB002"},
	{"timeout", "DB002"},
	{"permission denied", "FIL002"},
}

// ErrorCode returns the short code for err, "ERR000" when nothing matches and
// "" for a nil error.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range sentinelCodes {
		if errors.Is(err, ec.target) {
			return ec.code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, pc := range patternCodes {
		if strings.Contains(msg, pc.pattern) {
			return pc.code
		}
	}
	return "ERR000"
}

package core

// convert.go turns raw .dat text into typed values.
//
// Measurements are plain decimal floats written by the controller. Header
// timestamps use the controller's US 12-hour format, e.g.
// "11/5/2024 1:07:33 PM". Timestamps carry no zone and are stored as-is.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HeaderTimestampLayout is the layout of "Data Header:" timestamps.
const HeaderTimestampLayout = "1/2/2006 3:04:05 PM"

// ParseHeaderTimestamp parses a "Data Header:" timestamp. The meridiem is
// matched case-insensitively.
func ParseHeaderTimestamp(s string) (time.Time, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	t, err := time.Parse(HeaderTimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse header timestamp %q: %w", s, err)
	}
	return t, nil
}

// ParseMeasurement parses a single measurement field. Values beyond float64
// range saturate to ±Inf.
func ParseMeasurement(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v, nil
		}
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// afterFirstColon returns the trimmed text following the first colon.
func afterFirstColon(s string) string {
	_, rest, ok := strings.Cut(s, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(rest)
}

package core

import (
	"math"
	"testing"
	"time"
)

func TestParseHeaderTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "afternoon", input: "11/5/2024 1:07:33 PM", want: time.Date(2024, 11, 5, 13, 7, 33, 0, time.UTC)},
		{name: "zero padded", input: "01/05/2024 09:07:03 AM", want: time.Date(2024, 1, 5, 9, 7, 3, 0, time.UTC)},
		{name: "midnight", input: "3/1/2023 12:00:00 AM", want: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "lowercase meridiem", input: " 3/1/2023 12:30:00 pm ", want: time.Date(2023, 3, 1, 12, 30, 0, 0, time.UTC)},
		{name: "24 hour rejected", input: "3/1/2023 13:30:00", wantErr: true},
		{name: "iso rejected", input: "2023-03-01 12:30:00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHeaderTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseHeaderTimestamp(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHeaderTimestamp(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseHeaderTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMeasurement(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "1.0", want: 1},
		{input: " -2.5 ", want: -2.5},
		{input: "1e-3", want: 0.001},
		{input: "42", want: 42},
		{input: "1e400", want: math.Inf(1)},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "1,5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMeasurement(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseMeasurement(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMeasurement(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseMeasurement(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAfterFirstColon(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Station Name: Table Top 2", "Table Top 2"},
		{"Test File Name: C:\\tests\\run1", "C:\\tests\\run1"},
		{"Station Name:", ""},
		{"no colon", ""},
	}
	for _, tt := range tests {
		if got := afterFirstColon(tt.input); got != tt.want {
			t.Errorf("afterFirstColon(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

package captions

import (
	"encoding/json"
	"testing"
)

func TestParseClockForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"bare seconds", "90", 90000},
		{"fractional seconds", "1.5", 1500},
		{"seconds marker", "4s", 4000},
		{"verbose seconds marker", "2.5 seconds", 2500},
		{"millisecond count", "1500ms", 1500},
		{"minutes and seconds", "01:30", 90000},
		{"full clock", "00:00:01.000", 1000},
		{"comma fraction", "00:01:02,500", 62500},
		{"extended fourth segment", "1:02:03:500", 3723500},
		{"bracketed token", "[00:05.25]", 5250},
		{"quoted token", `"2.5"`, 2500},
		{"padded fraction", "0:01.5", 1500},
		{"short fraction", "0:01.05", 1050},
		{"truncated fraction", "0:01.1234", 1123},
		{"zero", "0", 0},
		{"single segment with fraction", "7.25", 7250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			if err != nil {
				t.Fatalf("ParseClock(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseClock(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseClockRejects(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"[]",
		"abc",
		"1:2:3:4:5",
		"1:-2",
		"12:xx",
		"::",
		"1:",
		"NaN",
		"+Inf",
		"-5",
		"-0:30",
		"1:02:03:500.25",
		"ms",
		"xms",
	}

	for _, input := range inputs {
		if got, err := ParseClock(input); err == nil {
			t.Errorf("ParseClock(%q) = %d, want error", input, got)
		}
	}
}

func TestParseClockRoundTrip(t *testing.T) {
	values := []int64{0, 1, 999, 1000, 59999, 60000, 61500, 3599999, 3600000, 3723456, 86399999, 360000000}
	for _, ms := range values {
		formatted := FormatClock(ms)
		parsed, err := ParseClock(formatted)
		if err != nil {
			t.Fatalf("ParseClock(%q) returned error: %v", formatted, err)
		}
		if parsed != ms {
			t.Errorf("ParseClock(FormatClock(%d)) = %d, want %d", ms, parsed, ms)
		}
	}
}

func TestCoerceMillisNumeric(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  int64
	}{
		{"float seconds", 1.5, 1500},
		{"zero", 0.0, 0},
		{"int seconds", 2, 2000},
		{"json number", json.Number("2.5"), 2500},
		{"rounds down", 2.0004, 2000},
		{"rounds up", 2.0006, 2001},
		{"clock string", "00:00:03", 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceMillis(tt.input)
			if err != nil {
				t.Fatalf("CoerceMillis(%v) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("CoerceMillis(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestCoerceMillisRejects(t *testing.T) {
	inputs := []any{nil, true, -1.5, []string{"0"}, "not a clock"}
	for _, input := range inputs {
		if got, err := CoerceMillis(input); err == nil {
			t.Errorf("CoerceMillis(%v) = %d, want error", input, got)
		}
	}
}

func TestFormatClockClampsNegative(t *testing.T) {
	if got := FormatClock(-5); got != "00:00:00.000" {
		t.Errorf("FormatClock(-5) = %q, want 00:00:00.000", got)
	}
}

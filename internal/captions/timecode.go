package captions

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// timestampTrimSet covers the bracket and quote characters upstream models
// occasionally wrap around timestamp tokens.
const timestampTrimSet = "[]\"'"

// secondsMarkers are unit suffixes accepted after a bare seconds value,
// longest first so "secs" is not consumed as "s" with a dangling "ec".
var secondsMarkers = []string{"seconds", "secs", "sec", "s"}

// CoerceMillis converts a timestamp token decoded from a transcription
// payload into milliseconds. Numeric tokens are seconds; string tokens
// accept every form ParseClock handles.
func CoerceMillis(value any) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, fmt.Errorf("missing timestamp")
	case float64:
		return secondsToMillis(v)
	case float32:
		return secondsToMillis(float64(v))
	case int:
		return secondsToMillis(float64(v))
	case int64:
		return secondsToMillis(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", v.String())
		}
		return secondsToMillis(f)
	case string:
		return ParseClock(v)
	default:
		return 0, fmt.Errorf("unsupported timestamp type %T", value)
	}
}

// ParseClock converts one textual timestamp into milliseconds. It accepts
// bare seconds ("90", "1.5", "4s"), millisecond counts ("1500ms"), and
// colon-delimited clocks ("ss", "mm:ss", "hh:mm:ss", "hh:mm:ss:fff") with
// an optional fractional suffix introduced by the last "." or "," in the
// string. The result is never negative; every other shape is an error.
func ParseClock(raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.Trim(trimmed, timestampTrimSet)
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	// A millisecond suffix short-circuits everything else. This check runs
	// before the seconds branch because "ms" itself ends in "s".
	if strings.HasSuffix(strings.ToLower(trimmed), "ms") {
		digits := leadingDigits(trimmed)
		if digits == "" {
			return 0, fmt.Errorf("invalid timestamp %q", raw)
		}
		ms, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", raw)
		}
		return ms, nil
	}

	if candidate := stripSecondsMarker(trimmed); candidate != "" {
		if f, err := strconv.ParseFloat(candidate, 64); err == nil {
			return secondsToMillis(f)
		}
	}

	return parseClockSegments(raw, trimmed)
}

// FormatClock renders milliseconds as an hh:mm:ss.mmm clock string. Values
// below zero clamp to zero. ParseClock round-trips every FormatClock output.
func FormatClock(ms int64) string {
	hours, minutes, seconds, millis := splitClock(ms)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

func splitClock(ms int64) (hours, minutes, seconds, millis int64) {
	if ms < 0 {
		ms = 0
	}
	return ms / 3600000, ms % 3600000 / 60000, ms % 60000 / 1000, ms % 1000
}

func secondsToMillis(seconds float64) (int64, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("timestamp is not a finite number")
	}
	ms := math.Round(seconds * 1000)
	if ms < 0 {
		return 0, fmt.Errorf("negative timestamp")
	}
	return int64(ms), nil
}

// stripSecondsMarker removes one trailing seconds unit so the remainder can
// be tried as a bare number. Strings without a marker pass through.
func stripSecondsMarker(s string) string {
	lower := strings.ToLower(s)
	for _, marker := range secondsMarkers {
		if strings.HasSuffix(lower, marker) {
			return strings.TrimSpace(s[:len(s)-len(marker)])
		}
	}
	return s
}

func parseClockSegments(raw, trimmed string) (int64, error) {
	intPart := trimmed
	fracPart := ""
	hasFrac := false
	if sep := lastFractionSeparator(trimmed); sep >= 0 {
		intPart = trimmed[:sep]
		fracPart = trimmed[sep+1:]
		hasFrac = true
	}

	segments := strings.Split(intPart, ":")
	values := make([]int64, len(segments))
	for i, segment := range segments {
		if !digitsOnly(segment) {
			return 0, fmt.Errorf("invalid timestamp %q", raw)
		}
		v, err := strconv.ParseInt(segment, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", raw)
		}
		values[i] = v
	}

	var hours, minutes, seconds int64
	switch len(values) {
	case 1:
		seconds = values[0]
	case 2:
		minutes, seconds = values[0], values[1]
	case 3:
		hours, minutes, seconds = values[0], values[1], values[2]
	case 4:
		// Extended form carrying the sub-second part as a fourth segment.
		// Combining it with a "." or "," fraction is ambiguous, so fail.
		if hasFrac {
			return 0, fmt.Errorf("invalid timestamp %q", raw)
		}
		hours, minutes, seconds = values[0], values[1], values[2]
		fracPart = segments[3]
		hasFrac = true
	default:
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}

	var millis int64
	if hasFrac {
		ms, err := fractionMillis(fracPart)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", raw)
		}
		millis = ms
	}
	return (hours*3600+minutes*60+seconds)*1000 + millis, nil
}

// lastFractionSeparator returns the index of the fractional separator. The
// last "." or "," wins so "mm:ss.fff" separates correctly even when the
// integer part contains one of those characters.
func lastFractionSeparator(s string) int {
	dot := strings.LastIndexByte(s, '.')
	comma := strings.LastIndexByte(s, ',')
	if comma > dot {
		return comma
	}
	return dot
}

// fractionMillis interprets a fractional suffix as milliseconds: the digits
// are right-padded with zeros to three places, then truncated to three, so
// "5" is 500ms, "05" is 50ms, and "1234" is 123ms.
func fractionMillis(frac string) (int64, error) {
	if frac == "" {
		return 0, nil
	}
	if !digitsOnly(frac) {
		return 0, fmt.Errorf("non-numeric fraction %q", frac)
	}
	if len(frac) > 3 {
		frac = frac[:3]
	}
	for len(frac) < 3 {
		frac += "0"
	}
	return strconv.ParseInt(frac, 10, 64)
}

func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func leadingDigits(s string) string {
	for i, r := range s {
		if r < '0' || r > '9' {
			return s[:i]
		}
	}
	return s
}

// Package timecode parses and formats the time bounds used by timestamp
// range lines. A bound is HH:MM:SS, HH:MM:SS.mmm, MM:SS, or a plain decimal
// number of seconds.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Range is a half-open cut interval in seconds.
type Range struct {
	Start float64
	End   float64
}

// Duration returns the range length in seconds.
func (r Range) Duration() float64 {
	return r.End - r.Start
}

// String renders the range in clock notation.
func (r Range) String() string {
	return Format(r.Start) + "-" + Format(r.End)
}

// ParseRange parses a "start-end" line. Whitespace around the dash is
// tolerated. Ordering is not checked here; the planner owns that rule.
func ParseRange(line string) (Range, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Range{}, fmt.Errorf("empty range")
	}
	parts := strings.SplitN(trimmed, "-", 2)
	if len(parts) != 2 {
		return Range{}, fmt.Errorf("range %q: expected start-end", trimmed)
	}
	start, err := ParseBound(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", trimmed, err)
	}
	end, err := ParseBound(parts[1])
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", trimmed, err)
	}
	return Range{Start: start, End: end}, nil
}

// ParseBound parses a single time bound into seconds.
func ParseBound(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("empty time bound")
	}

	parts := strings.Split(trimmed, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("time %q: too many ':' separators", trimmed)
	}

	// Plain seconds, possibly fractional.
	if len(parts) == 1 {
		seconds, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
			return 0, fmt.Errorf("time %q: not a valid number of seconds", trimmed)
		}
		return seconds, nil
	}

	// Clock notation. Only the trailing seconds field may be fractional,
	// and non-leading fields must stay below 60.
	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 || seconds >= 60 {
		return 0, fmt.Errorf("time %q: seconds field out of range", trimmed)
	}
	total := seconds

	scale := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		field, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || field < 0 {
			return 0, fmt.Errorf("time %q: invalid field %q", trimmed, parts[i])
		}
		if i > 0 && field >= 60 {
			return 0, fmt.Errorf("time %q: field %q out of range", trimmed, parts[i])
		}
		total += float64(field) * scale
		scale *= 60
	}
	return total, nil
}

// Format renders seconds as HH:MM:SS.mmm, the notation the transcoder
// arguments and reports use.
func Format(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	rest := seconds - float64(hours*3600+minutes*60)
	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, rest)
}

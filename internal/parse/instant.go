package parse

import (
	"fmt"
	"strings"
	"time"
)

// zoned layouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
}

// naive layouts are wall-clock values in the deployment zone.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02-15:04",
}

// Instant parses an upstream timestamp. Values without an offset are
// localised to loc rather than read as UTC. A "HH:MM - HH:MM" style range
// keeps only its start.
func Instant(s string, loc *time.Location) (time.Time, error) {
	s = rangeStart(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// DateAndTime combines a calendar date with a clock time or clock range.
func DateAndTime(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = rangeStart(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("missing date or time (%q, %q)", date, clock)
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, date+" "+clock, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date/time %q %q", date, clock)
}

func rangeStart(s string) string {
	if i := strings.Index(s, " - "); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

package model

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the fixed-width storage and wire format for timestamps.
// Zero padding keeps lexical order equal to chronological order, which
// the overlap query and every ORDER BY on start time rely on.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders t in TimeLayout.  Times are kept as wall-clock UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout string.  A trailing fractional part or an
// RFC 3339 "T" separator, as some drivers return, is accepted too.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(TimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05.999999999", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q, want YYYY-MM-DD HH:MM:SS", s)
}

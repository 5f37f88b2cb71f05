// Package datefmt parses statement dates. Ambiguous numeric dates are read
// day-first (15/01/2024 is the 15th of January).
package datefmt

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// layouts are tried before the general-purpose parser. Order matters: the
// slash and dash forms put the day first.
var layouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"2.1.2006",
	"02/01/06",
	"2 Jan 2006",
	"02 Jan 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"2-Jan-06",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
	time.RFC3339,
}

// ParseDayFirst parses s and returns the calendar date at UTC midnight.
func ParseDayFirst(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Truncate(t), nil
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised date %q: %w", s, err)
	}
	return Truncate(t), nil
}

// Truncate drops the time of day, keeping the wall-clock date.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

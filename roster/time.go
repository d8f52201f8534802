package roster

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Civil calendar date (no time, no zone)
// =============================================================================

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Constructors
func NewDate(year int, month time.Month, day int) Date { return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC)) }
func DateOf(t time.Time) Date                          { return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()} }

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Time() time.Time         { return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC) }
func (d Date) Before(other Date) bool  { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool   { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool   { return d == other }
func (d Date) IsZero() bool            { return d == Date{} }

func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day) }

// =============================================================================
// CLOCK - Time of day
// =============================================================================

type Clock struct {
	Hour   int
	Minute int
	Second int
}

// clockLayout is the only accepted roster time format. Single-digit hours
// parse as well ("8:00").
const clockLayout = "15:04"

// ParseClock parses an HH:MM time of day.
func ParseClock(s string) (Clock, bool) {
	t, err := time.Parse(clockLayout, strings.TrimSpace(s))
	if err != nil {
		return Clock{}, false
	}
	return Clock{Hour: t.Hour(), Minute: t.Minute()}, true
}

// String returns the ISO time-of-day form, HH:MM:SS.
func (c Clock) String() string { return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second) }

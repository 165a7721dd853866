package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateFormat is the layout of the Date column.
	DateFormat = "2006-01-02"
	// YearMonthFormat is the layout of a month prefix.
	YearMonthFormat = "2006-01"
)

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf returns the month t falls in.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// String formats the month as YYYY-MM, which is also the prefix matched
// against the Date column.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Contains reports whether a date text belongs to this month.
func (ym YearMonth) Contains(date string) bool {
	return strings.HasPrefix(date, ym.String())
}

// ParseYearMonth parses a YYYY-MM string.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse(YearMonthFormat, strings.TrimSpace(s))
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q want format %q: %w", s, "YYYY-MM", err)
	}
	return YearMonthOf(t), nil
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q want format %q: %w", s, "YYYY-MM-DD", err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// IsMonthEnd reports whether the next calendar day belongs to another month.
func IsMonthEnd(t time.Time) bool {
	return t.AddDate(0, 0, 1).Month() != t.Month()
}

// Clock returns the current time. Shells and services take one so tests can
// pin "today".
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// Today formats the clock's current date as YYYY-MM-DD.
func Today(clock Clock) string {
	if clock == nil {
		clock = SystemClock
	}
	return FormatDate(clock())
}

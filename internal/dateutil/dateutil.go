// Package dateutil provides calendar-date arithmetic and a one-way hash
// helper shared across the sync engine.
package dateutil

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// BeginningOfDay returns midnight at the start of the given day in loc.
func BeginningOfDay(day, month, year int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last second of the given day in loc.
func EndOfDay(day, month, year int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), day, 23, 59, 59, 0, loc)
}

// BeginningOfMonth returns midnight at the first day of the month in loc.
func BeginningOfMonth(month, year int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
}

// EndOfMonth returns the last second of the month in loc.
func EndOfMonth(month, year int, loc *time.Location) time.Time {
	return EndOfDay(DaysInMonth(month, year), month, year, loc)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(month, year int) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ZoneOffset returns the UTC offset in seconds that loc uses at midnight of
// the given day.
func ZoneOffset(day, month, year int, loc *time.Location) int {
	_, offset := BeginningOfDay(day, month, year, loc).Zone()
	return offset
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SHA1Hash returns the lowercase hex SHA-1 digest of s.
func SHA1Hash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

package dateutil

import (
	"testing"
	"time"
)

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		month, year, want int
	}{
		{1, 2026, 31},
		{2, 2026, 28},
		{2, 2024, 29}, // leap year
		{4, 2026, 30},
		{12, 2026, 31},
	}
	for _, c := range cases {
		if got := DaysInMonth(c.month, c.year); got != c.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", c.month, c.year, got, c.want)
		}
	}
}

func TestDayBounds(t *testing.T) {
	begin := BeginningOfDay(15, 6, 2026, time.UTC)
	if !begin.Equal(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("beginning of day: got %v", begin)
	}

	end := EndOfDay(15, 6, 2026, time.UTC)
	if !end.Equal(time.Date(2026, 6, 15, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("end of day: got %v", end)
	}
}

func TestMonthBounds(t *testing.T) {
	begin := BeginningOfMonth(2, 2024, time.UTC)
	if !begin.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("beginning of month: got %v", begin)
	}

	end := EndOfMonth(2, 2024, time.UTC)
	if !end.Equal(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("end of month: got %v", end)
	}
}

func TestStartOfDay(t *testing.T) {
	ts := time.Date(2026, 6, 15, 17, 42, 9, 120, time.UTC)
	if got := StartOfDay(ts); !got.Equal(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start of day: got %v", got)
	}
}

func TestZoneOffset(t *testing.T) {
	if got := ZoneOffset(1, 1, 2026, time.UTC); got != 0 {
		t.Errorf("utc offset: got %d, want 0", got)
	}
	fixed := time.FixedZone("plus2", 2*3600)
	if got := ZoneOffset(1, 1, 2026, fixed); got != 2*3600 {
		t.Errorf("fixed offset: got %d, want %d", got, 2*3600)
	}
}

func TestSHA1Hash(t *testing.T) {
	// Known digest for "abc".
	if got := SHA1Hash("abc"); got != "a9993e364706816aba3e25717850c26c9cd0d89d" {
		t.Errorf("sha1: got %s", got)
	}
	if SHA1Hash("a") == SHA1Hash("b") {
		t.Error("distinct inputs should hash differently")
	}
}

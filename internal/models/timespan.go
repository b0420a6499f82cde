package models

import (
	"time"
)

// TimeSpan classifies how an event relates to one calendar day. It drives
// day-bucketed display so multi-day and all-day events land in every day
// they cover.
type TimeSpan int

const (
	// SpanNone means the day is not covered by the event.
	SpanNone TimeSpan = iota
	// SpanToday means the event lies fully within the day.
	SpanToday
	// SpanTodayAndYesterday means the event started before the day and ends
	// within or after it.
	SpanTodayAndYesterday
	// SpanTodayAndTomorrow means the event starts within the day and ends
	// after it.
	SpanTodayAndTomorrow
)

func (s TimeSpan) String() string {
	switch s {
	case SpanToday:
		return "today"
	case SpanTodayAndYesterday:
		return "today_and_yesterday"
	case SpanTodayAndTomorrow:
		return "today_and_tomorrow"
	}
	return "none"
}

// TimeSpanForDay classifies the given calendar day against the event's
// [Start, End) interval. All-day events are compared at calendar-day
// granularity instead of absolute timestamps.
func (e *Event) TimeSpanForDay(day, month, year int) TimeSpan {
	loc := time.Local
	if e.AllDay {
		return e.allDaySpan(day, month, year, loc)
	}

	dayStart := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	if !e.End.After(dayStart) || !e.Start.Before(dayEnd) {
		return SpanNone
	}
	if e.Start.Before(dayStart) {
		return SpanTodayAndYesterday
	}
	if e.End.After(dayEnd) {
		return SpanTodayAndTomorrow
	}
	return SpanToday
}

// allDaySpan compares by calendar day. The end day is exclusive: an all-day
// event ending at midnight of day N does not cover day N.
func (e *Event) allDaySpan(day, month, year int, loc *time.Location) TimeSpan {
	target := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	first := dayOf(e.Start.In(loc))
	last := dayOf(e.End.In(loc))
	if !last.After(first) {
		last = first.AddDate(0, 0, 1)
	}
	last = last.AddDate(0, 0, -1) // last covered day

	if target.Before(first) || target.After(last) {
		return SpanNone
	}
	if target.After(first) {
		return SpanTodayAndYesterday
	}
	if target.Before(last) {
		return SpanTodayAndTomorrow
	}
	return SpanToday
}

// OccursOnDay reports whether the event covers any part of the given day.
func (e *Event) OccursOnDay(day, month, year int) bool {
	return e.TimeSpanForDay(day, month, year) != SpanNone
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

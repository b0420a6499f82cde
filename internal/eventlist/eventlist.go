// Package eventlist buckets events by calendar day over a date range for
// display. Recurring events are expanded so each occurrence lands on the days
// it covers.
package eventlist

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/marcus/calsync/internal/dateutil"
	"github.com/marcus/calsync/internal/models"
)

// List holds the events of one date window, bucketed per day.
type List struct {
	start  time.Time
	end    time.Time
	events []*models.Event
}

// New creates an empty list covering [start, end).
func New(start, end time.Time) *List {
	return &List{start: start, end: end}
}

// Start returns the inclusive lower bound of the window.
func (l *List) Start() time.Time { return l.start }

// End returns the exclusive upper bound of the window.
func (l *List) End() time.Time { return l.end }

// Events returns every event added to the list.
func (l *List) Events() []*models.Event { return l.events }

// Add inserts an event into the list. Events with a recurrence rule are
// expanded into per-occurrence copies within the window; the copies keep the
// original's identifiers so edits resolve back to the canonical row.
func (l *List) Add(e *models.Event) {
	if e.Status == models.StatusHidden {
		return
	}
	if e.Recurrence == "" {
		l.events = append(l.events, e)
		return
	}
	occurrences, err := expand(e, l.start, l.end)
	if err != nil {
		// An unparsable rule degrades to the base occurrence.
		l.events = append(l.events, e)
		return
	}
	l.events = append(l.events, occurrences...)
}

// HasEventsOnDay reports whether any event covers the given day.
func (l *List) HasEventsOnDay(day time.Time) bool {
	y, m, d := day.Date()
	for _, e := range l.events {
		if e.OccursOnDay(d, int(m), y) {
			return true
		}
	}
	return false
}

// EventsForDate returns the events covering the given day, ordered all-day
// first, then by start time.
func (l *List) EventsForDate(date time.Time) []*models.Event {
	y, m, d := date.Date()
	var out []*models.Event
	for _, e := range l.events {
		if e.OccursOnDay(d, int(m), y) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AllDay != out[j].AllDay {
			return out[i].AllDay
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

// expand materializes the occurrences of a recurring event within [start, end).
func expand(e *models.Event, start, end time.Time) ([]*models.Event, error) {
	opts, err := rrule.StrToROption(e.Recurrence)
	if err != nil {
		return nil, err
	}
	opts.Dtstart = e.Start
	rule, err := rrule.NewRRule(*opts)
	if err != nil {
		return nil, err
	}

	duration := e.End.Sub(e.Start)
	// Include occurrences starting before the window that still reach into it.
	searchFrom := start.Add(-duration)

	var out []*models.Event
	for _, occStart := range rule.Between(searchFrom, end, true) {
		occ := *e
		occ.Start = occStart
		occ.End = occStart.Add(duration)
		if occ.AllDay {
			occ.Start = dateutil.StartOfDay(occ.Start)
			occ.End = occ.Start.Add(duration)
		}
		out = append(out, &occ)
	}
	return out, nil
}

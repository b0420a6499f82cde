package sync

import (
	"context"
	"sync"
	"time"

	"github.com/marcus/calsync/internal/dateutil"
	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/remote"
)

// calendarSource pairs a calendar with the service of its owning account.
type calendarSource struct {
	calendar *models.Calendar
	service  Service
}

// fetchQuery is one queued remote list request: a calendar's full window, or
// a continuation page of it.
type fetchQuery struct {
	source    calendarSource
	pageToken string
}

// fetchResult is one completed list request delivered to the driver loop.
type fetchResult struct {
	calendar *models.Calendar
	page     *remote.EventPage
	err      error
}

// EventFetch issues and tracks one remote list query per calendar over a
// bounded date window. It owns the query queue and the in-flight ticket set;
// completed pages are delivered on the results channel. After cancelTickets
// the fetch is terminal and must not be reused.
type EventFetch struct {
	date           time.Time
	beginTimestamp time.Time
	minStart       time.Time
	maxStart       time.Time

	results chan<- fetchResult

	mu        sync.Mutex
	queue     []fetchQuery
	tickets   ticketSet
	cancelled bool
}

// newEventFetch seeds one full-window query per calendar. The window is
// [date-pastDays, date+futureDays] at day boundaries, half-open at the top.
// The begin timestamp comes from the caller's clock; eviction keys on it.
func newEventFetch(date time.Time, pastDays, futureDays int, sources []calendarSource, results chan<- fetchResult, now func() time.Time) *EventFetch {
	if now == nil {
		now = time.Now
	}
	f := &EventFetch{
		date:           date,
		beginTimestamp: now(),
		minStart:       dateutil.StartOfDay(date.AddDate(0, 0, -pastDays)),
		maxStart:       dateutil.StartOfDay(date.AddDate(0, 0, futureDays)).AddDate(0, 0, 1),
		results:        results,
	}
	for _, src := range sources {
		f.queue = append(f.queue, fetchQuery{source: src})
	}
	return f
}

// MinimumStartTime is the inclusive lower bound of the pull window.
func (f *EventFetch) MinimumStartTime() time.Time { return f.minStart }

// MaximumStartTime is the exclusive upper bound of the pull window.
func (f *EventFetch) MaximumStartTime() time.Time { return f.maxStart }

// BeginTimestamp is the wall-clock time the pull started; stale-row eviction
// keys on it.
func (f *EventFetch) BeginTimestamp() time.Time { return f.beginTimestamp }

// Date is the reference date of the window.
func (f *EventFetch) Date() time.Time { return f.date }

// executeQuery pops the next queued query and issues exactly one remote list
// request for it, registering the resulting ticket. It returns false when the
// queue is empty or the fetch is cancelled.
func (f *EventFetch) executeQuery(ctx context.Context) bool {
	f.mu.Lock()
	if f.cancelled || len(f.queue) == 0 {
		f.mu.Unlock()
		return false
	}
	q := f.queue[0]
	f.queue = f.queue[1:]
	f.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	id := f.tickets.add(cancel)

	go func() {
		defer cancel()
		page, err := q.source.service.ListEvents(ctx, q.source.calendar.RemoteID,
			f.minStart, f.maxStart, q.pageToken)

		// A "more pages" signal re-enqueues a follow-up query for the same
		// calendar with the continuation cursor, preserving window bounds.
		if err == nil && page.NextPageToken != "" {
			f.enqueueContinuation(q.source, page.NextPageToken)
		}

		f.removeTicket(id)
		f.results <- fetchResult{calendar: q.source.calendar, page: page, err: err}
	}()

	return true
}

func (f *EventFetch) enqueueContinuation(src calendarSource, pageToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelled {
		return
	}
	f.queue = append(f.queue, fetchQuery{source: src, pageToken: pageToken})
}

// hasPendingQueries reports whether queries remain queued.
func (f *EventFetch) hasPendingQueries() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue) > 0
}

// hasPendingTickets reports whether requests are in flight. Both this and
// hasPendingQueries false means the pull is fully drained.
func (f *EventFetch) hasPendingTickets() bool {
	return f.tickets.len() > 0
}

// removeTicket deregisters one completed or cancelled request.
func (f *EventFetch) removeTicket(id int) {
	f.tickets.remove(id)
}

// cancelTickets cancels every in-flight request and drops the remaining
// queue. The fetch is terminal afterwards.
func (f *EventFetch) cancelTickets() {
	f.mu.Lock()
	f.cancelled = true
	f.queue = nil
	f.mu.Unlock()
	f.tickets.cancelAll()
}

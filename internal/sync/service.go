package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marcus/calsync/internal/models"
	"github.com/marcus/calsync/internal/remote"
)

const (
	// DefaultPastDays is how far back a pull window reaches.
	DefaultPastDays = 30
	// DefaultFutureDays is how far forward a pull window reaches.
	DefaultFutureDays = 90

	// pullConcurrency bounds in-flight list requests; ordering across
	// calendars is not significant.
	pullConcurrency = 4
)

// EventService drives the pull pipeline: it fans out one list query per
// enabled calendar over a bounded date window, merges the results into the
// store with conflict resolution, and evicts stale rows for calendars whose
// window pulled cleanly. At most one pull is active per service; a new
// trigger stops the previous one first.
type EventService struct {
	store    Store
	provider ServiceProvider
	now      func() time.Time

	PastDays   int
	FutureDays int

	mu        sync.Mutex
	fetch     *EventFetch
	cancelRun context.CancelFunc
	runDone   chan struct{}
	cancelled bool
	lastErrs  map[int64]error
}

// NewEventService creates a pull orchestrator with the default window.
func NewEventService(store Store, provider ServiceProvider) *EventService {
	return &EventService{
		store:      store,
		provider:   provider,
		now:        time.Now,
		PastDays:   DefaultPastDays,
		FutureDays: DefaultFutureDays,
	}
}

// TriggerRemoteEventFetch starts a pull around the given date for every
// enabled calendar. It does not block; use Wait to observe completion.
func (s *EventService) TriggerRemoteEventFetch(date time.Time) error {
	calendars, err := s.store.EnabledCalendars()
	if err != nil {
		return persistErr(err)
	}
	return s.TriggerRemoteEventFetchWithCalendars(date, calendars)
}

// TriggerRemoteEventFetchWithCalendars starts a pull for the given calendars.
// A pull already in flight is stopped first to avoid overlapping writes to
// the same calendar's rows.
func (s *EventService) TriggerRemoteEventFetchWithCalendars(date time.Time, calendars []*models.Calendar) error {
	s.StopRemoteEventFetch()

	var sources []calendarSource
	startErrs := make(map[int64]error)
	for _, cal := range calendars {
		account, err := s.store.AccountForCalendar(cal)
		if err != nil {
			return persistErr(err)
		}
		if account == nil {
			startErrs[cal.ID] = configErr("calendar %q has no account", cal.Title)
			continue
		}
		svc, err := s.provider.ServiceFor(account)
		if err != nil {
			startErrs[cal.ID] = configErr("calendar %q: %v", cal.Title, err)
			continue
		}
		sources = append(sources, calendarSource{calendar: cal, service: svc})
	}

	results := make(chan fetchResult)
	fetch := newEventFetch(date, s.PastDays, s.FutureDays, sources, results, s.now)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.fetch = fetch
	s.cancelRun = cancel
	s.runDone = done
	s.cancelled = false
	s.lastErrs = startErrs
	s.mu.Unlock()

	go s.runPull(ctx, fetch, sources, results, done)
	return nil
}

// runPull is the single-threaded driver loop: it keeps up to pullConcurrency
// queries in flight, merges every completed page, and finishes with stale-row
// eviction for calendars that pulled cleanly.
func (s *EventService) runPull(ctx context.Context, fetch *EventFetch, sources []calendarSource, results <-chan fetchResult, done chan struct{}) {
	defer close(done)

	issued, received := 0, 0
	for {
		for issued-received < pullConcurrency && fetch.executeQuery(ctx) {
			issued++
		}
		if received == issued && !fetch.hasPendingQueries() {
			break
		}
		res := <-results
		received++
		s.handleResult(fetch, res)
	}

	s.finishPull(fetch, sources)
}

func (s *EventService) handleResult(fetch *EventFetch, res fetchResult) {
	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			return
		}
		slog.Warn("pull page failed", "calendar", res.calendar.Title, "err", res.err)
		s.recordError(res.calendar.ID, classifyRemote(res.err))
		return
	}

	for i := range res.page.Items {
		if err := s.mergeRemoteEvent(res.calendar, &res.page.Items[i], fetch.BeginTimestamp()); err != nil {
			slog.Warn("merge remote event", "calendar", res.calendar.Title, "err", err)
			s.recordError(res.calendar.ID, err)
		}
	}
}

// mergeRemoteEvent applies one remote entry to the local store. A pending
// local mutation always wins wholesale: the incoming copy is discarded and
// will reconcile once the event's job completes and a later pull re-observes
// the result.
func (s *EventService) mergeRemoteEvent(cal *models.Calendar, entry *remote.Event, pullTime time.Time) error {
	local, err := s.store.EventByRemoteID(cal.ID, entry.ID)
	if err != nil {
		return persistErr(err)
	}

	if local == nil {
		ev := &models.Event{
			CalendarID:       cal.ID,
			RemoteID:         entry.ID,
			Status:           models.StatusSynchronized,
			SyncTime:         s.now(),
			RemoteUpdateTime: entry.Updated,
		}
		applyWireEvent(ev, entry)
		if err := s.store.SaveEvent(ev); err != nil {
			return persistErr(err)
		}
		return nil
	}

	if local.Status != models.StatusSynchronized {
		// Pending local intent wins; discard the incoming copy entirely.
		slog.Debug("remote copy discarded", "event", local.ID, "status", local.Status.String())
		return nil
	}

	if entry.Updated.After(local.RemoteUpdateTime) {
		applyWireEvent(local, entry)
		local.RemoteUpdateTime = entry.Updated
		local.SyncTime = s.now()
		if err := s.store.SaveEvent(local); err != nil {
			return persistErr(err)
		}
		return nil
	}

	// Unchanged but observed: refresh the sync time so eviction keeps it.
	if err := s.store.TouchEvent(local, s.now()); err != nil {
		return persistErr(err)
	}
	return nil
}

// finishPull evicts stale rows and stamps calendar sync times for every
// calendar whose whole window pulled without error. A cancelled run skips
// eviction entirely; partial data must not drive destructive cleanup.
func (s *EventService) finishPull(fetch *EventFetch, sources []calendarSource) {
	s.mu.Lock()
	cancelled := s.cancelled
	errs := s.lastErrs
	s.mu.Unlock()

	if !cancelled {
		for _, src := range sources {
			cal := src.calendar
			if _, failed := errs[cal.ID]; failed {
				continue
			}
			n, err := s.store.RemoveEventsOlderThan(fetch.BeginTimestamp(),
				fetch.MinimumStartTime(), fetch.MaximumStartTime(), cal.ID)
			if err != nil {
				slog.Warn("evict stale events", "calendar", cal.Title, "err", err)
				s.recordError(cal.ID, persistErr(err))
				continue
			}
			if n > 0 {
				slog.Debug("evicted stale events", "calendar", cal.Title, "count", n)
			}
			if err := s.store.TouchCalendar(cal, s.now()); err != nil {
				s.recordError(cal.ID, persistErr(err))
			}
		}
	}

	s.mu.Lock()
	s.fetch = nil
	s.cancelRun = nil
	s.mu.Unlock()
}

// StopRemoteEventFetch cancels the in-flight pull, if any, and waits for the
// driver to drain. The run counts as cancelled, not failed.
func (s *EventService) StopRemoteEventFetch() {
	s.mu.Lock()
	fetch := s.fetch
	cancel := s.cancelRun
	done := s.runDone
	if fetch == nil {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	s.mu.Unlock()

	fetch.cancelTickets()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Wait blocks until the current pull, if any, completes.
func (s *EventService) Wait() {
	s.mu.Lock()
	done := s.runDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// HasOngoingSync reports whether a pull is in flight.
func (s *EventService) HasOngoingSync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetch != nil
}

// CurrentSyncDate returns the reference date of the in-flight pull, or the
// zero time.
func (s *EventService) CurrentSyncDate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetch == nil {
		return time.Time{}
	}
	return s.fetch.Date()
}

// Errors returns the per-calendar errors of the last pull.
func (s *EventService) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []error
	for id, err := range s.lastErrs {
		out = append(out, fmt.Errorf("calendar %d: %w", id, err))
	}
	return out
}

func (s *EventService) recordError(calendarID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lastErrs[calendarID]; !ok {
		s.lastErrs[calendarID] = err
	}
}

// applyWireEvent copies the mutable fields of a wire entry onto a local event.
func applyWireEvent(e *models.Event, entry *remote.Event) {
	e.Title = entry.Summary
	e.Description = entry.Description
	e.Location = entry.Location
	e.Color = entry.ColorID
	e.Start = entry.Start
	e.End = entry.End
	e.AllDay = entry.AllDay
	e.Recurrence = entry.Recurrence
	if entry.FeedURL != "" {
		e.FeedURL = entry.FeedURL
	}
	if entry.OriginalFeedURL != "" {
		e.OriginalFeedURL = entry.OriginalFeedURL
	}
}
